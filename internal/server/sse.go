package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// TaskSubscriber is the narrow slice of [taskstore.TaskLog] the SSE
// handler needs: one channel of raw update notifications per task, plus
// its unsubscribe func.
type TaskSubscriber interface {
	Subscribe(ctx context.Context, taskID string) (<-chan []byte, func())
}

// SSEHandler streams one task's status updates as Server-Sent Events at
// /tasks/{id}/stream. It is intentionally the only HTTP handler this
// package exposes beyond the OAuth callback: full REST route handling
// is an out-of-scope collaborator, but the task log's pub/sub contract
// still needs one named HTTP consumer shape.
type SSEHandler struct {
	log TaskSubscriber
}

// NewSSEHandler constructs an SSEHandler streaming updates from log.
func NewSSEHandler(log TaskSubscriber) *SSEHandler {
	return &SSEHandler{log: log}
}

// Routes returns the HTTP routes this handler serves.
func (h *SSEHandler) Routes() []string { return []string{"/tasks/"} }

// ServeHTTP streams raw update notifications for the task id found in
// the request path as text/event-stream frames until the client
// disconnects or the subscription closes.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/stream")
	if taskID == "" {
		http.Error(w, "missing task id", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, unsubscribe := h.log.Subscribe(r.Context(), taskID)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
