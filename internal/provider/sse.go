package provider

import (
	"bufio"
	"io"
	"strings"
)

// sseScanner reads "data:" payloads from a server-sent-event stream,
// ignoring event names, comments, and heartbeats.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseScanner{scanner: sc}
}

// Next returns the next data payload. ok is false at end of stream; check
// Err afterwards.
func (s *sseScanner) Next() (string, bool) {
	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")
		data, found := strings.CutPrefix(line, "data:")
		if !found {
			continue
		}
		return strings.TrimSpace(data), true
	}
	return "", false
}

func (s *sseScanner) Err() error {
	return s.scanner.Err()
}
