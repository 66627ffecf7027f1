package terminal

import (
	"bufio"
	"io"
	"strings"
)

// InputReader reads user messages line by line. A line ending in a
// backslash continues the message on the next line.
type InputReader struct {
	reader *bufio.Reader
}

func NewInputReader(r io.Reader) *InputReader {
	return &InputReader{reader: bufio.NewReader(r)}
}

// ReadMessage returns the next message without its trailing newline. It
// returns io.EOF once the input is exhausted and nothing was read.
func (r *InputReader) ReadMessage() (string, error) {
	var lines []string
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if len(lines) > 0 && err == io.EOF {
				return strings.Join(lines, "\n"), nil
			}
			return "", err
		}

		line = strings.TrimRight(line, "\r\n")
		if strings.HasSuffix(line, `\`) && err == nil {
			lines = append(lines, strings.TrimSuffix(line, `\`))
			continue
		}

		lines = append(lines, line)
		return strings.Join(lines, "\n"), nil
	}
}
