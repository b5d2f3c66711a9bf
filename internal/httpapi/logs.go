package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	ilog "github.com/yourusername/sunviewfinder/internal/log"
)

// LogsSnapshot returns the current contents of the shared log buffer.
// Pass ?clear=true to drain the buffer as part of the read.
func (h *Handlers) LogsSnapshot(w http.ResponseWriter, r *http.Request) {
	clear := r.URL.Query().Get("clear") == "true"
	entries := ilog.GetLogBuffer().GetLogs(clear)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// StreamLogs tails new log entries as server-sent events until the
// client disconnects.
func (h *Handlers) StreamLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	buf := ilog.GetLogBuffer()
	ch := buf.Subscribe()
	defer buf.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case entry, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(entry)
			if err != nil {
				if h.logger != nil {
					h.logger.Errorw("failed to marshal log entry", "error", err)
				}
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
