// Package spectatorgateway streams room snapshots to read-only viewers over
// server-sent events.
package spectatorgateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"stake-arena/internal/match"

	"github.com/go-chi/chi/v5"
)

var pingInterval = 15 * time.Second

// Feeds is the part of the match registry a spectator needs.
type Feeds interface {
	Subscribe(roomID string) (<-chan match.Snapshot, func(), error)
}

// EventsHandler serves GET /api/rooms/{room_id}/stream. Each snapshot is sent
// with its seq as the event id; a reconnecting client that presents
// Last-Event-ID skips what it has already seen.
func EventsHandler(rooms Feeds) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "room_id")
		ch, unsubscribe, err := rooms.Subscribe(roomID)
		if err != nil {
			code, _ := match.Code(err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
			return
		}
		defer unsubscribe()
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		metricSpectatorsTotal.Add(1)
		metricSpectatorsActive.Add(1)
		defer metricSpectatorsActive.Add(-1)

		setSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		lastSeq := int64(-1)
		if v, err := strconv.ParseInt(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
			lastSeq = v
		}
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case snap, ok := <-ch:
				if !ok {
					_ = writeSSE(w, "", "room_closed", map[string]any{"room_id": roomID})
					flusher.Flush()
					return
				}
				if snap.Seq <= lastSeq {
					continue
				}
				lastSeq = snap.Seq
				if err := writeSSE(w, strconv.FormatInt(snap.Seq, 10), "state_update", snap); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if err := writeSSE(w, "", "ping", map[string]any{"ts": time.Now().UnixMilli()}); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
