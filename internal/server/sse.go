package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/jonathan/askdb/internal/pipeline"
)

// SSE event names
const (
	eventProgress = "progress"
	eventAnswer   = "answer"
	eventError    = "error"
	eventComplete = "complete"
)

// eventStream writes the Server-Sent Events of one streamed ask. Each event carries
// an increasing id so clients can tell progress events apart after a reconnect.
type eventStream struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	requestID string

	mu   sync.Mutex
	next int
}

func newEventStream(w http.ResponseWriter, requestID string) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &eventStream{w: w, flusher: flusher, requestID: requestID}, nil
}

func (s *eventStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.next, event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *eventStream) progress(e pipeline.ProgressEvent) error {
	return s.send(eventProgress, e)
}

func (s *eventStream) answer(resp AskResponse) error {
	return s.send(eventAnswer, resp)
}

// fail and complete are best effort: the client may already be gone
func (s *eventStream) fail(message string) {
	_ = s.send(eventError, map[string]string{"request_id": s.requestID, "error": message})
}

func (s *eventStream) complete(status string) {
	_ = s.send(eventComplete, map[string]string{"request_id": s.requestID, "status": status})
}
