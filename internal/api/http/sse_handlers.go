package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/settlement-hub/settlement-hub/internal/infrastructure/sse"
)

func (s *Server) sseEndpoint(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}

	account := s.actorFromRequest(r)
	client := sse.NewClient(uuid.NewString(), account)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(client.ClientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Initial comment flushes headers and confirms the stream is live.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case evt := <-client.Events:
			if evt == nil {
				return
			}
			payload, _ := json.Marshal(evt)
			_, _ = w.Write([]byte("event: "))
			_, _ = w.Write([]byte(evt.Type))
			_, _ = w.Write([]byte("\ndata: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-client.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}
