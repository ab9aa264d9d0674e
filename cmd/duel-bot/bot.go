package main

import (
	"math/rand"

	"stake-arena/internal/match"
	"stake-arena/internal/ws"
)

// bot answers each new snapshot with at most one event.
type bot struct {
	playerID string
	rematch  bool
	rnd      *rand.Rand
	lastSeq  int64
}

func (b *bot) seat(s match.Snapshot) string {
	switch b.playerID {
	case s.Seats[0].PlayerID:
		return "A"
	case s.Seats[1].PlayerID:
		return "B"
	default:
		return ""
	}
}

func (b *bot) decide(s match.Snapshot) *ws.Inbound {
	if s.Seq <= b.lastSeq {
		return nil
	}
	b.lastSeq = s.Seq
	me := b.seat(s)
	if me == "" {
		return nil
	}

	switch s.Status {
	case match.StatusWaiting:
		if me == "B" && !s.Seats[1].Ready {
			return &ws.Inbound{Type: "ready"}
		}
		// A failed escrow is not retried; the operator has to fund the seats.
		if me == "A" && s.Seats[1].PlayerID != "" && s.Seats[1].Ready && s.LastFailReason == "" {
			return &ws.Inbound{Type: "start"}
		}
	case match.StatusPlaying:
		if s.Turn != me {
			return nil
		}
		free := make([]int, 0, len(s.Board))
		for i, c := range s.Board {
			if c == "" {
				free = append(free, i)
			}
		}
		if len(free) == 0 {
			return nil
		}
		cell := free[b.rnd.Intn(len(free))]
		return &ws.Inbound{Type: "move", Cell: &cell}
	case match.StatusFinished:
		idx := 0
		if me == "B" {
			idx = 1
		}
		if b.rematch && !s.Seats[idx].RematchVote {
			return &ws.Inbound{Type: "rematch"}
		}
	}
	return nil
}
