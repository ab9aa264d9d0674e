package ws

import "stake-arena/internal/match"

// Inbound is every client message. Cell is only read for move; stake and
// asset only for the join that opens a room.
type Inbound struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	Cell     *int   `json:"cell,omitempty"`
	Stake    int64  `json:"stake,omitempty"`
	Asset    string `json:"asset,omitempty"`
}

type StateUpdate struct {
	Type string `json:"type"`
	match.Snapshot
}

type ErrorMessage struct {
	Type   string `json:"type"`
	Event  string `json:"event,omitempty"`
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
