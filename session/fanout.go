package session

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Sink one open push-stream toward a browser client. Many sinks may exist
// per session; none is privileged.
type Sink interface {
	// SendEvent deliver one venue event to the sink. Must never block; an
	// error marks the sink broken and detaches it from the session.
	SendEvent(event json.RawMessage) error
	// Close end the sink. Idempotent.
	Close()
}

// BufferedEventSink channel backed Sink for the SSE endpoint. Events are
// buffered up to a bound; overflow marks the sink broken so a stalled
// client never holds up the fan-out.
type BufferedEventSink struct {
	mu     sync.Mutex
	closed bool
	events chan json.RawMessage
}

// GetBufferedEventSink define a new buffered event sink
func GetBufferedEventSink(bufferLen int) *BufferedEventSink {
	return &BufferedEventSink{events: make(chan json.RawMessage, bufferLen)}
}

// SendEvent deliver one venue event to the sink
func (s *BufferedEventSink) SendEvent(event json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink is closed")
	}
	select {
	case s.events <- event:
		return nil
	default:
		return fmt.Errorf("sink buffer overflow")
	}
}

// Events the channel the sink owner reads delivered events from. The
// channel closes when the sink closes.
func (s *BufferedEventSink) Events() <-chan json.RawMessage {
	return s.events
}

// Close end the sink
func (s *BufferedEventSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
