package terminal

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputReader(t *testing.T) {
	r := NewInputReader(strings.NewReader("bonjour\r\nligne un\\\nligne deux\n\nfin sans retour"))

	var got []string
	for {
		msg, err := r.ReadMessage()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, msg)
	}

	assert.Equal(t, []string{"bonjour", "ligne un\nligne deux", "", "fin sans retour"}, got)
}

func TestInputReader_ContinuationAtEOF(t *testing.T) {
	r := NewInputReader(strings.NewReader("a\\\n"))

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "a", msg)

	_, err = r.ReadMessage()
	assert.Equal(t, io.EOF, err)
}
