package history

import (
	"time"
)

// Entry is one persisted exchange: the user's message and the model's reply
type Entry struct {
	ID          int64     `json:"id"`
	UserMessage string    `json:"userMessage"`
	AIResponse  string    `json:"aiResponse"`
	Model       string    `json:"model"`
	Timestamp   time.Time `json:"timestamp"`
	// ResponseTime is the model latency in milliseconds.
	ResponseTime int64 `json:"responseTime"`
}

// entryModel is the GORM model for the messages table.
type entryModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	UserMessage  string    `gorm:"type:text;not null"`
	AIResponse   string    `gorm:"column:ai_response;type:text"`
	Model        string    `gorm:"type:varchar(100);index"`
	Timestamp    time.Time `gorm:"index;not null"`
	ResponseTime int64
}

// TableName specifies the table name for entryModel.
func (entryModel) TableName() string {
	return "messages"
}

func (m *entryModel) toEntry() Entry {
	return Entry{
		ID:           m.ID,
		UserMessage:  m.UserMessage,
		AIResponse:   m.AIResponse,
		Model:        m.Model,
		Timestamp:    m.Timestamp,
		ResponseTime: m.ResponseTime,
	}
}

func entryToModel(e *Entry) *entryModel {
	return &entryModel{
		ID:           e.ID,
		UserMessage:  e.UserMessage,
		AIResponse:   e.AIResponse,
		Model:        e.Model,
		Timestamp:    e.Timestamp,
		ResponseTime: e.ResponseTime,
	}
}

// fileData is the on-disk layout of the JSON store.
type fileData struct {
	NextID  int64   `json:"next_id"`
	Entries []Entry `json:"entries"`
}
