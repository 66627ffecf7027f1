package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// StreamCallbacks receives chunks as they are decoded. Either field may be nil.
type StreamCallbacks struct {
	OnThinking func(string)
	OnAnswer   func(string)
}

// Stream sends a chat request and delivers thinking and answer tokens as they
// arrive. It returns the accumulated thinking and answer text.
func (c *Client) Stream(ctx context.Context, req ChatRequest, callbacks StreamCallbacks) (thinking string, answer string, err error) {
	req.Stream = true

	resp, err := c.post(ctx, c.streamingClient, "/api/chat", req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	thinking, answer, err = streamWithThinking(resp.Body, callbacks)
	if err != nil {
		return thinking, answer, fmt.Errorf("failed to stream response: %w", err)
	}

	return thinking, answer, nil
}

// streamWithThinking reads newline-delimited chunks and separates thinking
// from answer tokens.
func streamWithThinking(body io.Reader, callbacks StreamCallbacks) (thinking string, answer string, err error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var thinkingBuf strings.Builder
	var answerBuf strings.Builder

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Skip malformed lines
			continue
		}

		// Reasoning models send their chain of thought separately.
		if t := chunk.Message.Thinking; t != "" {
			thinkingBuf.WriteString(t)
			if callbacks.OnThinking != nil {
				callbacks.OnThinking(t)
			}
		}

		if a := chunk.Message.Content; a != "" {
			answerBuf.WriteString(a)
			if callbacks.OnAnswer != nil {
				callbacks.OnAnswer(a)
			}
		}

		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return thinkingBuf.String(), answerBuf.String(), fmt.Errorf("failed to read stream: %w", err)
	}

	return thinkingBuf.String(), answerBuf.String(), nil
}
