package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/directory"
)

const (
	// Time between keepalive pings
	pingPeriod = 30 * time.Second
)

// ServeDirectory streams the room directory to one client: the current
// snapshot first, then every delta in publication order. The subscription is
// cancelled when the client disconnects; a client that stops draining is
// evicted by the directory and sees its stream end.
func ServeDirectory(w http.ResponseWriter, r *http.Request, dir *directory.Directory, filter model.Stage) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	snapshot, sub := dir.Subscribe(filter)
	defer sub.Cancel()

	if err := writeEvent(w, "snapshot", snapshot); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case delta, ok := <-sub.Updates():
			if !ok {
				// Evicted or directory shut down
				return
			}
			if err := writeEvent(w, string(delta.Kind), delta); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// writeEvent renders one SSE event with a JSON payload
func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
