package http

import (
	"fmt"
	"net/http"
	"time"
)

const eventsKeepAlive = 30 * time.Second

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.deps.State.Snapshot()).Write(w)
}

// handleEvents streams a server-sent event for every new state version.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// the stream outlives the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	updates, cancel := s.deps.State.Subscribe(8)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(version uint64) error {
		if _, err := fmt.Fprintf(w, "event: state\ndata: {\"version\":%d}\n\n", version); err != nil {
			return err
		}
		return rc.Flush()
	}
	if err := send(s.deps.State.Snapshot().Version); err != nil {
		return
	}

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case version, ok := <-updates:
			if !ok || send(version) != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil || rc.Flush() != nil {
				return
			}
		}
	}
}
