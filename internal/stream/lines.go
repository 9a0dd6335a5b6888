package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const maxLineSize = 1 << 20

// ErrLineTooLong is returned when a single line exceeds 1 MiB.
// The stream is not resumable after it.
var ErrLineTooLong = errors.New("stream line exceeds 1 MiB")

// LineReader splits an upstream body into raw chunks.
// SSE framing lines (blank, comments, event/id/retry fields) are skipped;
// data lines and bare JSON lines are returned verbatim.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next chunk, or io.EOF when the body ends.
func (l *LineReader) Next() (string, error) {
	for {
		line, err := l.readLine()
		if len(line) > 0 && keepLine(line) {
			return string(line), nil
		}
		if err != nil {
			return "", err
		}
	}
}

func (l *LineReader) readLine() ([]byte, error) {
	var buf []byte
	for {
		part, isPrefix, err := l.r.ReadLine()
		buf = append(buf, part...)
		if len(buf) > maxLineSize {
			return nil, ErrLineTooLong
		}
		if err != nil {
			return bytes.TrimSpace(buf), err
		}
		if !isPrefix {
			return bytes.TrimSpace(buf), nil
		}
	}
}

func keepLine(line []byte) bool {
	switch {
	case line[0] == ':':
		return false
	case bytes.HasPrefix(line, []byte("event:")),
		bytes.HasPrefix(line, []byte("id:")),
		bytes.HasPrefix(line, []byte("retry:")):
		return false
	// Gemini without alt=sse answers with a JSON array; its framing brackets carry no data.
	case len(line) == 1 && (line[0] == '[' || line[0] == ']' || line[0] == ','):
		return false
	default:
		return true
	}
}
