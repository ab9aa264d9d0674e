package match

import (
	"time"

	"stake-arena/internal/ledger"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

type Seat int

const (
	SeatNone Seat = -1
	SeatA    Seat = 0
	SeatB    Seat = 1
)

func (s Seat) String() string {
	switch s {
	case SeatA:
		return "A"
	case SeatB:
		return "B"
	default:
		return ""
	}
}

func (s Seat) other() Seat {
	return 1 - s
}

func (s Seat) mark() Mark {
	if s == SeatA {
		return MarkX
	}
	return MarkO
}

// Wager terms are fixed for a round once escrow succeeds.
type Wager struct {
	Asset ledger.Asset `json:"asset"`
	Stake int64        `json:"stake"`
}

type Result struct {
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason"`
}

type SeatView struct {
	PlayerID      string `json:"player_id,omitempty"`
	Connected     bool   `json:"connected"`
	Ready         bool   `json:"ready"`
	Paid          bool   `json:"paid"`
	RematchVote   bool   `json:"rematch_vote"`
	Wins          int    `json:"wins"`
	PauseBudgetMS int64  `json:"pause_budget_ms"`
}

// Snapshot is a value copy of a match; Seq increases with every published
// mutation of the room.
type Snapshot struct {
	RoomID         string      `json:"room_id"`
	Seq            int64       `json:"seq"`
	Status         Status      `json:"status"`
	Round          int         `json:"round"`
	Board          [9]string   `json:"board"`
	Turn           string      `json:"turn,omitempty"`
	Seats          [2]SeatView `json:"seats"`
	Wager          Wager       `json:"wager"`
	Draws          int         `json:"draws"`
	TurnDeadlineMS int64       `json:"turn_deadline_ms,omitempty"`
	PausedSeat     string      `json:"paused_seat,omitempty"`
	PauseUntilMS   int64       `json:"pause_until_ms,omitempty"`
	LastFailReason string      `json:"last_fail_reason,omitempty"`
	Result         *Result     `json:"result,omitempty"`
}

func (m *Match) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{
		RoomID:         m.roomID,
		Seq:            m.seq,
		Status:         m.status,
		Round:          m.round,
		Board:          m.board.Cells(),
		Turn:           m.turn.String(),
		Wager:          m.wager,
		Draws:          m.draws,
		PausedSeat:     m.pausedSeat.String(),
		LastFailReason: m.lastFailReason,
	}
	for i := range m.seats {
		st := m.seats[i]
		budget := st.pauseBudget
		if m.status == StatusPaused && m.pausedSeat == Seat(i) {
			budget = remaining(m.pauseUntil, now, budget)
		}
		snap.Seats[i] = SeatView{
			PlayerID:      st.playerID,
			Connected:     st.connected,
			Ready:         st.ready,
			Paid:          st.paid,
			RematchVote:   st.rematch,
			Wins:          st.wins,
			PauseBudgetMS: budget.Milliseconds(),
		}
	}
	if !m.turnDeadline.IsZero() {
		snap.TurnDeadlineMS = m.turnDeadline.UnixMilli()
	}
	if !m.pauseUntil.IsZero() {
		snap.PauseUntilMS = m.pauseUntil.UnixMilli()
	}
	if m.result != nil {
		r := *m.result
		snap.Result = &r
	}
	return snap
}

// remaining is what is left of a pause window, never more than budget.
func remaining(until, now time.Time, budget time.Duration) time.Duration {
	left := until.Sub(now)
	if left < 0 {
		left = 0
	}
	if left > budget {
		left = budget
	}
	return left
}
