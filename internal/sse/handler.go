package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/debemdeboas/post-editor/internal/config"
	"github.com/debemdeboas/post-editor/internal/model"
)

// Handler streams events for the post named by the "post" query parameter.
func (s *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("post")
	if raw == "" {
		http.Error(w, "Post parameter required", http.StatusBadRequest)
		return
	}
	postID, err := model.ParsePostID(raw)
	if err != nil {
		http.Error(w, "Invalid post parameter", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	client := s.Subscribe(postID)
	sseLogger.Debug().Int64("post_id", int64(postID)).Msg("New SSE client connected")

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	defer func() {
		s.Delete(client)
		sseLogger.Debug().Int64("post_id", int64(postID)).Msg("SSE client disconnected")
	}()

	notify := r.Context().Done()
	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}
