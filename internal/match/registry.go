package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"stake-arena/internal/identity"
	"stake-arena/internal/ledger"
)

const (
	DefaultTurnTimeout = 10 * time.Second
	DefaultPauseBudget = 30 * time.Second
)

type EventKind string

const (
	EventJoin       EventKind = "join"
	EventReady      EventKind = "ready"
	EventStart      EventKind = "start"
	EventMove       EventKind = "move"
	EventLeave      EventKind = "leave"
	EventDisconnect EventKind = "disconnect"
	EventRematch    EventKind = "rematch"
)

// Event is one inbound action addressed to a room. Stake and Asset are only
// read from the join that creates the room.
type Event struct {
	Kind     EventKind
	PlayerID string
	Cell     int
	Stake    int64
	Asset    ledger.Asset
}

// SnapshotSink receives every published snapshot. Implementations must not
// block.
type SnapshotSink interface {
	PublishSnapshot(Snapshot)
}

type Options struct {
	TurnTimeout  time.Duration
	PauseBudget  time.Duration
	DefaultStake int64
	DefaultAsset ledger.Asset
	Now          func() time.Time
	Sinks        []SnapshotSink
}

// Registry owns the live matches of this process.
type Registry struct {
	mu      sync.Mutex
	matches map[string]*Match
	closed  bool

	wallet   Wallet
	opts     Options
	inflight sync.WaitGroup
}

func NewRegistry(wallet Wallet, opts Options) *Registry {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = DefaultTurnTimeout
	}
	if opts.PauseBudget <= 0 {
		opts.PauseBudget = DefaultPauseBudget
	}
	if opts.DefaultAsset == "" {
		opts.DefaultAsset = ledger.AssetCoins
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		matches: make(map[string]*Match),
		wallet:  wallet,
		opts:    opts,
	}
}

// Dispatch applies ev to the room and returns the resulting snapshot. Only a
// join may create a room.
func (r *Registry) Dispatch(ctx context.Context, roomID string, ev Event) (Snapshot, error) {
	if roomID == "" {
		return Snapshot{}, ErrRoomNotFound
	}
	player, err := identity.Canonical(ev.PlayerID)
	if err != nil {
		return Snapshot{}, ErrInvalidPlayer
	}
	ev.PlayerID = player
	for {
		m, err := r.lookup(roomID, ev)
		if err != nil {
			return Snapshot{}, err
		}
		snap, gone, err := r.dispatchTo(ctx, m, ev)
		r.inflight.Done()
		if gone {
			if ev.Kind == EventJoin {
				continue
			}
			return Snapshot{}, ErrRoomNotFound
		}
		if err != nil {
			log.Debug().
				Str("room_id", roomID).
				Str("player_id", ev.PlayerID).
				Str("event", string(ev.Kind)).
				Err(err).
				Msg("event rejected")
			return snap, err
		}
		return snap, nil
	}
}

// dispatchTo runs ev against m and then its settlement, if any. gone reports
// that m was removed before the event could apply.
func (r *Registry) dispatchTo(ctx context.Context, m *Match, ev Event) (Snapshot, bool, error) {
	m.mu.Lock()
	if m.removed {
		m.mu.Unlock()
		return Snapshot{}, true, nil
	}
	now := r.opts.Now()
	plan, err := m.apply(ctx, r.wallet, ev, now)
	var snap Snapshot
	if m.changed {
		snap = r.publishLocked(m, now)
	} else {
		snap = m.snapshotLocked(now)
	}
	r.reapLocked(m)
	m.mu.Unlock()

	if plan != nil {
		plan.execute(ctx, r.wallet)
	}
	return snap, false, err
}

// lookup finds or creates the room and reserves an inflight slot the caller
// must release.
func (r *Registry) lookup(roomID string, ev Event) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if m, ok := r.matches[roomID]; ok {
		r.inflight.Add(1)
		return m, nil
	}
	if ev.Kind != EventJoin {
		return nil, ErrRoomNotFound
	}
	wager, err := r.termsFor(ev)
	if err != nil {
		return nil, err
	}
	m := newMatch(roomID, wager, r.opts.TurnTimeout, r.opts.PauseBudget)
	r.matches[roomID] = m
	r.inflight.Add(1)
	metricMatchesActive.Add(1)
	log.Info().
		Str("room_id", roomID).
		Str("asset", string(wager.Asset)).
		Int64("stake", wager.Stake).
		Msg("match created")
	return m, nil
}

func (r *Registry) termsFor(ev Event) (Wager, error) {
	w := Wager{Asset: ev.Asset, Stake: ev.Stake}
	if w.Asset == "" {
		w.Asset = r.opts.DefaultAsset
	}
	if w.Stake == 0 {
		w.Stake = r.opts.DefaultStake
	}
	if w.Stake < 0 || !w.Asset.Valid() {
		return Wager{}, ErrInvalidWager
	}
	return w, nil
}

func (r *Registry) publishLocked(m *Match, now time.Time) Snapshot {
	m.seq++
	snap := m.snapshotLocked(now)
	m.feed.publish(snap)
	for _, sink := range r.opts.Sinks {
		sink.PublishSnapshot(snap)
	}
	return snap
}

// reapLocked drops a match with no seated player. Callers hold m.mu.
func (r *Registry) reapLocked(m *Match) {
	if !m.empty() || m.removed {
		return
	}
	m.removed = true
	m.feed.close()
	r.mu.Lock()
	if r.matches[m.roomID] == m {
		delete(r.matches, m.roomID)
		metricMatchesActive.Add(-1)
	}
	r.mu.Unlock()
	log.Info().Str("room_id", m.roomID).Msg("match removed")
}

func (r *Registry) get(roomID string) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[roomID]
	return m, ok
}

func (r *Registry) Snapshot(roomID string) (Snapshot, error) {
	m, ok := r.get(roomID)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return Snapshot{}, ErrRoomNotFound
	}
	return m.snapshotLocked(r.opts.Now()), nil
}

// Subscribe streams the room's snapshots, starting with the current one. The
// channel is closed when the room is removed or the registry closes.
func (r *Registry) Subscribe(roomID string) (<-chan Snapshot, func(), error) {
	m, ok := r.get(roomID)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil, nil, ErrRoomNotFound
	}
	ch, unsubscribe := m.feed.subscribe(m.snapshotLocked(r.opts.Now()))
	return ch, unsubscribe, nil
}

func (r *Registry) Rooms() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.matches))
	for id := range r.matches {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) list() []*Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	return out
}

// Tick sweeps every match once. A match whose lock is held is skipped; it is
// being touched and will be looked at on the next sweep. Settlements run in
// their own goroutines.
func (r *Registry) Tick(ctx context.Context, now time.Time) {
	for _, m := range r.list() {
		if !r.reserve() {
			return
		}
		plan := r.sweep(m, now)
		if plan == nil {
			r.inflight.Done()
			continue
		}
		go func(p *settlement) {
			defer r.inflight.Done()
			p.execute(context.WithoutCancel(ctx), r.wallet)
		}(plan)
	}
}

// reserve takes an inflight slot unless the registry is closed. Close waits
// for every slot taken before it set closed.
func (r *Registry) reserve() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.inflight.Add(1)
	return true
}

func (r *Registry) sweep(m *Match, now time.Time) *settlement {
	if !m.mu.TryLock() {
		return nil
	}
	defer m.mu.Unlock()
	if m.removed {
		return nil
	}
	plan := m.tick(now)
	if m.changed {
		r.publishLocked(m, now)
	}
	r.reapLocked(m)
	return plan
}

// Close stops accepting events, waits for running settlements and closes
// every room feed.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.inflight.Wait()
	for _, m := range r.list() {
		m.mu.Lock()
		m.feed.close()
		m.mu.Unlock()
	}
}
