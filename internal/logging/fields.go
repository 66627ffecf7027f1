package logging

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Chat
	FieldModel       = "model"
	FieldTemperature = "temperature"
	FieldMessageID   = "message_id"
	FieldOperation   = "operation"

	// Service
	FieldService = "service"

	// HeaderRequestID carries the request id between client and server.
	HeaderRequestID = "X-Request-ID"
)
