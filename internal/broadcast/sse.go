package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/ttibu/internal/domain"
)

// SSESink writes session events as server-sent events.
type SSESink struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	writeTimeout time.Duration
}

// NewSSESink wraps w. Each send gets its own write deadline when writeTimeout is positive.
func NewSSESink(w http.ResponseWriter, writeTimeout time.Duration) *SSESink {
	return &SSESink{
		w:            w,
		rc:           http.NewResponseController(w),
		writeTimeout: writeTimeout,
	}
}

// Prepare sets the stream headers and flushes them to the client.
// The server-wide write timeout is lifted so the stream can outlive it.
func (s *SSESink) Prepare() error {
	_ = s.rc.SetWriteDeadline(time.Time{})

	header := s.w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)

	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("streaming not supported: %w", err)
	}
	return nil
}

// Send writes one event frame and flushes it.
func (s *SSESink) Send(event domain.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if s.writeTimeout > 0 {
		// Not every writer supports deadlines; the flush still surfaces a dead peer.
		_ = s.rc.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	return nil
}
