package httptransport

import (
	"encoding/json"
	"net/http"

	"stake-arena/internal/ledger"
	"stake-arena/internal/match"

	"github.com/go-chi/chi/v5"
)

type RoomHandlers struct {
	rooms *match.Registry
}

func NewRoomHandlers(rooms *match.Registry) *RoomHandlers {
	return &RoomHandlers{rooms: rooms}
}

// eventRequest is the HTTP form of a room event. Disconnects are only raised
// by the socket transport.
type eventRequest struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Cell     *int   `json:"cell"`
	Stake    int64  `json:"stake"`
	Asset    string `json:"asset"`
}

var httpEventKinds = map[string]match.EventKind{
	string(match.EventJoin):    match.EventJoin,
	string(match.EventReady):   match.EventReady,
	string(match.EventStart):   match.EventStart,
	string(match.EventMove):    match.EventMove,
	string(match.EventLeave):   match.EventLeave,
	string(match.EventRematch): match.EventRematch,
}

func (h *RoomHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": h.rooms.Rooms()})
	}
}

func (h *RoomHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := h.rooms.Snapshot(chi.URLParam(r, "room_id"))
		if err != nil {
			writeMatchError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func (h *RoomHandlers) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricEventRequests.Add(1)
		var body eventRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			metricEventErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		kind, ok := httpEventKinds[body.Type]
		if !ok || body.PlayerID == "" {
			metricEventErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		ev := match.Event{
			Kind:     kind,
			PlayerID: body.PlayerID,
			Cell:     -1,
			Stake:    body.Stake,
			Asset:    ledger.Asset(body.Asset),
		}
		if body.Cell != nil {
			ev.Cell = *body.Cell
		}
		snap, err := h.rooms.Dispatch(r.Context(), chi.URLParam(r, "room_id"), ev)
		if err != nil {
			metricEventErrors.Add(1)
			writeMatchError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(snap)
	}
}
