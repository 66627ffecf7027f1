package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_AddsServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", ServiceName: "chat-server"}, &buf)
	logger.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "chat-server", line[FieldService])
	assert.Equal(t, "hello", line["message"])
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.log")
	logger, closer, err := Open(Config{Level: "debug", File: path})
	require.NoError(t, err)
	logger.Debug().Msg("written")
	require.NoError(t, closer.Close())
	assert.FileExists(t, path)
}

func TestCtx_FallsBackToNop(t *testing.T) {
	logger := Ctx(context.Background())
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())

	var buf bytes.Buffer
	stored := New(Config{}, &buf)
	got := Ctx(WithLogger(context.Background(), stored))
	got.Info().Msg("x")
	assert.NotZero(t, buf.Len())
}
