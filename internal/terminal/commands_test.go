package terminal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/session"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line   string
		want   Command
		wantOK bool
	}{
		{"/quit", Command{Name: "quit"}, true},
		{"  /MODEL  qwen3 ", Command{Name: "model", Arg: "qwen3"}, true},
		{"/temp 0,5", Command{Name: "temp", Arg: "0,5"}, true},
		{"/", Command{}, false},
		{"hello /model", Command{}, false},
		{"", Command{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseCommand(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newManager(t *testing.T, backend *fakeBackend) *session.Manager {
	t.Helper()
	m := session.NewManager(backend, session.Config{Model: "llama2", Temperature: 0.7},
		session.WithModels([]string{"qwen3", "gemma3:1b", "llama3.2"}))
	t.Cleanup(m.Close)
	return m
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, &fakeBackend{history: []chatapi.HistoryEntry{
		entry(`{"id":1,"userMessage":"Bonjour","aiResponse":"Salut","model":"llama2","timestamp":"2025-03-01T10:00:00","responseTime":120}`),
	}})

	res, err := Execute(ctx, m, Command{Name: CmdModel, Arg: "qwen3"})
	require.NoError(t, err)
	assert.Equal(t, "Modèle : qwen3", res.Output)
	assert.True(t, res.Changed)
	assert.Equal(t, "qwen3", m.Config().Model)

	res, err = Execute(ctx, m, Command{Name: CmdModel})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "qwen3")
	assert.False(t, res.Changed)

	res, err = Execute(ctx, m, Command{Name: CmdModels})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "* qwen3")
	assert.Contains(t, res.Output, "  gemma3:1b")

	res, err = Execute(ctx, m, Command{Name: CmdTemp, Arg: "0,3"})
	require.NoError(t, err)
	assert.Equal(t, 0.3, m.Config().Temperature)
	assert.Equal(t, "Température : 0.3", res.Output)
	assert.True(t, res.Changed)

	_, err = Execute(ctx, m, Command{Name: CmdTemp, Arg: "chaud"})
	assert.Error(t, err)
	_, err = Execute(ctx, m, Command{Name: CmdTemp, Arg: "5"})
	assert.Error(t, err)

	res, err = Execute(ctx, m, Command{Name: CmdRecent})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "Bonjour")
	assert.Contains(t, res.Output, "120ms")

	res, err = Execute(ctx, m, Command{Name: CmdHealth})
	require.NoError(t, err)
	assert.Equal(t, "✅ API is running!", res.Output)

	res, err = Execute(ctx, m, Command{Name: CmdClear})
	require.NoError(t, err)
	require.NotNil(t, res.Confirm)
	assert.Equal(t, session.ClearConversation, res.Confirm.Target)
	require.NoError(t, m.Cancel(res.Confirm.Token))

	res, err = Execute(ctx, m, Command{Name: CmdClearHistory})
	require.NoError(t, err)
	require.NotNil(t, res.Confirm)
	assert.Equal(t, session.ClearRemoteHistory, res.Confirm.Target)

	res, err = Execute(ctx, m, Command{Name: CmdExit})
	require.NoError(t, err)
	assert.True(t, res.Quit)

	_, err = Execute(ctx, m, Command{Name: "dance"})
	assert.Error(t, err)
}

func TestExecute_HistoryToggles(t *testing.T) {
	m := newManager(t, &fakeBackend{})

	res, err := Execute(context.Background(), m, Command{Name: CmdHistory})
	require.NoError(t, err)
	assert.True(t, m.HistoryVisible())
	assert.NotEmpty(t, res.Output)

	res, err = Execute(context.Background(), m, Command{Name: CmdHistory})
	require.NoError(t, err)
	assert.False(t, m.HistoryVisible())
	assert.Equal(t, "Historique masqué.", res.Output)
}

func TestIsAffirmative(t *testing.T) {
	for _, s := range []string{"o", "Oui", " y ", "YES"} {
		assert.True(t, IsAffirmative(s), s)
	}
	for _, s := range []string{"", "n", "non", "peut-être"} {
		assert.False(t, IsAffirmative(s), s)
	}
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "Aucun historique.", FormatHistory(nil, 0))

	out := FormatHistory([]chatapi.HistoryEntry{
		entry(`{"userMessage":"Une question\nsur deux lignes","aiResponse":"Réponse très longue","model":"qwen3","timestamp":"2025-03-01T10:05:00Z","responseTime":1500}`),
		entry(`"not an object"`),
	}, 12)

	assert.Contains(t, out, "[01/03 10:05] qwen3 · 1.5s")
	assert.Contains(t, out, "Vous : Une quest...")
	assert.Contains(t, out, "IA   : Réponse t...")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "2025-13-45", FormatTimestamp("2025-13-45"))
	assert.Equal(t, "01/03 10:05", FormatTimestamp("2025-03-01T10:05:00.123"))
	assert.Equal(t, "120ms", FormatDuration(120*time.Millisecond))
	assert.Equal(t, "2.0s", FormatDuration(2*time.Second))
	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "hé...", Truncate("héllo!", 5))
}
