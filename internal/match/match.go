package match

import (
	"context"
	"sync"
	"time"
)

type seatState struct {
	playerID    string
	connected   bool
	ready       bool
	paid        bool
	rematch     bool
	wins        int
	pauseBudget time.Duration
}

// Match is the state of one room. All fields are guarded by mu; the
// registry holds mu across an event and the snapshot it publishes.
type Match struct {
	mu sync.Mutex

	roomID string
	seats  [2]seatState
	board  Board
	turn   Seat
	status Status
	wager  Wager
	draws  int
	round  int
	result *Result

	pausedSeat     Seat
	pauseUntil     time.Time
	turnDeadline   time.Time
	lastFailReason string
	settledRound   int

	seq     int64
	changed bool
	removed bool
	feed    *feed

	turnTimeout time.Duration
	pauseBudget time.Duration
	// budgets keeps what a vacated player had left; it lives as long as the
	// match, so rejoining never refills a spent budget.
	budgets map[string]time.Duration
}

func newMatch(roomID string, wager Wager, turnTimeout, pauseBudget time.Duration) *Match {
	return &Match{
		roomID:      roomID,
		status:      StatusWaiting,
		wager:       wager,
		round:       1,
		turn:        SeatNone,
		pausedSeat:  SeatNone,
		feed:        newFeed(),
		turnTimeout: turnTimeout,
		pauseBudget: pauseBudget,
		budgets:     make(map[string]time.Duration),
	}
}

func (m *Match) seatOf(playerID string) Seat {
	for i := range m.seats {
		if m.seats[i].playerID != "" && m.seats[i].playerID == playerID {
			return Seat(i)
		}
	}
	return SeatNone
}

func (m *Match) empty() bool {
	return m.seats[SeatA].playerID == "" && m.seats[SeatB].playerID == ""
}

// apply runs one event. A pause that already ran out is enforced first, the
// same way a tick would.
func (m *Match) apply(ctx context.Context, w Wallet, ev Event, now time.Time) (*settlement, error) {
	m.changed = false
	var plan *settlement
	if m.status == StatusPaused && !now.Before(m.pauseUntil) {
		plan = m.expirePause(now)
	}

	var (
		next *settlement
		err  error
	)
	switch ev.Kind {
	case EventJoin:
		next, err = m.join(ev.PlayerID, now)
	case EventReady:
		err = m.ready(ev.PlayerID)
	case EventStart:
		err = m.start(ctx, w, ev.PlayerID, now)
	case EventMove:
		next, err = m.move(ev.PlayerID, ev.Cell, now)
	case EventLeave, EventDisconnect:
		next, err = m.leave(ev.PlayerID, now)
	case EventRematch:
		err = m.rematchVote(ev.PlayerID)
	default:
		err = ErrUnknownEvent
	}
	if plan == nil {
		plan = next
	}
	return plan, err
}

func (m *Match) join(playerID string, now time.Time) (*settlement, error) {
	if s := m.seatOf(playerID); s != SeatNone {
		m.seats[s].connected = true
		m.changed = true
		if m.status == StatusPaused && m.pausedSeat == s {
			return m.resume(now), nil
		}
		return nil, nil
	}
	for i := range m.seats {
		if m.seats[i].playerID == "" {
			budget, ok := m.budgets[playerID]
			if !ok {
				budget = m.pauseBudget
			}
			m.seats[i] = seatState{
				playerID:    playerID,
				connected:   true,
				pauseBudget: budget,
			}
			m.changed = true
			return nil, nil
		}
	}
	return nil, ErrMatchFull
}

// resume ends the pause of the reconnected seat. An opponent that dropped
// during the pause is handled as if it left now.
func (m *Match) resume(now time.Time) *settlement {
	s := m.pausedSeat
	m.seats[s].pauseBudget = remaining(m.pauseUntil, now, m.seats[s].pauseBudget)
	m.pausedSeat = SeatNone
	m.pauseUntil = time.Time{}
	m.status = StatusPlaying
	m.turnDeadline = now.Add(m.turnTimeout)
	if o := s.other(); !m.seats[o].connected {
		return m.suspend(o, now)
	}
	return nil
}

// suspend pauses a playing round for the disconnected seat s, or forfeits it
// when s has no budget left.
func (m *Match) suspend(s Seat, now time.Time) *settlement {
	if m.seats[s].pauseBudget <= 0 {
		metricForfeits.Add(1)
		return m.finish(s.other(), "forfeit")
	}
	m.status = StatusPaused
	m.pausedSeat = s
	m.pauseUntil = now.Add(m.seats[s].pauseBudget)
	m.turnDeadline = time.Time{}
	return nil
}

// vacate empties seat s, remembering its budget.
func (m *Match) vacate(s Seat) {
	if id := m.seats[s].playerID; id != "" {
		m.budgets[id] = m.seats[s].pauseBudget
	}
	m.seats[s] = seatState{}
}

func (m *Match) ready(playerID string) error {
	s := m.seatOf(playerID)
	if s == SeatNone {
		return ErrNotSeated
	}
	if m.status != StatusWaiting {
		return ErrInvalidState
	}
	if s == SeatB && !m.seats[SeatB].ready {
		m.seats[SeatB].ready = true
		m.changed = true
	}
	return nil
}

func (m *Match) start(ctx context.Context, w Wallet, playerID string, now time.Time) error {
	s := m.seatOf(playerID)
	switch {
	case s == SeatNone:
		return ErrNotSeated
	case s != SeatA:
		return ErrNotHost
	case m.status != StatusWaiting:
		return ErrInvalidState
	case m.seats[SeatB].playerID == "":
		return ErrSeatEmpty
	case !m.seats[SeatB].ready:
		return ErrOpponentNotReady
	}
	if err := m.escrow(ctx, w); err != nil {
		m.changed = true
		return err
	}
	m.board = Board{}
	m.result = nil
	m.lastFailReason = ""
	m.seats[SeatA].rematch = false
	m.seats[SeatB].rematch = false
	m.status = StatusPlaying
	m.turn = m.firstMover()
	m.turnDeadline = now.Add(m.turnTimeout)
	m.changed = true
	return nil
}

// firstMover alternates by round: A opens odd rounds, B even ones.
func (m *Match) firstMover() Seat {
	if m.round%2 == 1 {
		return SeatA
	}
	return SeatB
}

func (m *Match) move(playerID string, cell int, now time.Time) (*settlement, error) {
	s := m.seatOf(playerID)
	if s == SeatNone {
		return nil, ErrNotSeated
	}
	if m.status != StatusPlaying {
		return nil, ErrNotPlaying
	}
	if now.After(m.turnDeadline) {
		m.turn = m.turn.other()
		m.turnDeadline = now.Add(m.turnTimeout)
		m.changed = true
	}
	if s != m.turn {
		return nil, ErrNotYourTurn
	}
	if err := m.board.Place(cell, s.mark()); err != nil {
		return nil, err
	}
	m.changed = true
	if m.board.Winner() != MarkEmpty {
		return m.finish(s, "line"), nil
	}
	if m.board.Full() {
		return m.finish(SeatNone, "draw"), nil
	}
	m.turn = s.other()
	m.turnDeadline = now.Add(m.turnTimeout)
	return nil, nil
}

func (m *Match) leave(playerID string, now time.Time) (*settlement, error) {
	s := m.seatOf(playerID)
	if s == SeatNone {
		return nil, ErrNotSeated
	}
	m.changed = true
	switch m.status {
	case StatusWaiting:
		m.vacate(s)
		if s == SeatA {
			m.seats[SeatA], m.seats[SeatB] = m.seats[SeatB], seatState{}
		}
		m.seats[SeatA].ready = false
		m.seats[SeatB].ready = false
	case StatusPlaying:
		m.seats[s].connected = false
		return m.suspend(s, now), nil
	case StatusPaused:
		m.seats[s].connected = false
	case StatusFinished:
		m.vacate(s)
	}
	return nil, nil
}

func (m *Match) rematchVote(playerID string) error {
	s := m.seatOf(playerID)
	if s == SeatNone {
		return ErrNotSeated
	}
	if m.status != StatusFinished {
		return ErrInvalidState
	}
	m.seats[s].rematch = true
	m.changed = true
	a, b := &m.seats[SeatA], &m.seats[SeatB]
	if a.playerID == "" || b.playerID == "" || !a.rematch || !b.rematch {
		return nil
	}
	m.round++
	m.board = Board{}
	m.turn = SeatNone
	m.result = nil
	for _, st := range []*seatState{a, b} {
		st.ready = false
		st.paid = false
		st.rematch = false
	}
	m.status = StatusWaiting
	return nil
}

// tick forfeits a pause whose window has closed. An expired turn deadline is
// left for the next move to enforce.
func (m *Match) tick(now time.Time) *settlement {
	m.changed = false
	if m.status == StatusPaused && !now.Before(m.pauseUntil) {
		return m.expirePause(now)
	}
	return nil
}

func (m *Match) expirePause(now time.Time) *settlement {
	s := m.pausedSeat
	m.seats[s].pauseBudget = 0
	m.changed = true
	metricForfeits.Add(1)
	return m.finish(s.other(), "pause_expired")
}

// finish is the only transition into finished. The settled marker makes a
// second decision in the same round produce no settlement.
func (m *Match) finish(winner Seat, reason string) *settlement {
	m.status = StatusFinished
	m.result = &Result{Winner: winner.String(), Reason: reason}
	if winner == SeatNone {
		m.draws++
	} else {
		m.seats[winner].wins++
	}
	m.turn = SeatNone
	m.turnDeadline = time.Time{}
	m.pausedSeat = SeatNone
	m.pauseUntil = time.Time{}

	var plan *settlement
	if m.settledRound != m.round {
		m.settledRound = m.round
		if m.wager.Stake > 0 && m.seats[SeatA].paid && m.seats[SeatB].paid {
			plan = &settlement{
				roomID:  m.roomID,
				round:   m.round,
				wager:   m.wager,
				winner:  winner,
				players: [2]string{m.seats[SeatA].playerID, m.seats[SeatB].playerID},
			}
		}
	}
	for i := range m.seats {
		m.seats[i].paid = false
		if m.seats[i].playerID != "" && !m.seats[i].connected {
			m.vacate(Seat(i))
		}
	}
	return plan
}
