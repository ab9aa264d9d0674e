package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stake-arena/internal/economy"
	"stake-arena/internal/ledger"
)

const (
	playerA = "tg:1"
	playerB = "tg:2"
	room    = "room-1"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	t      *testing.T
	reg    *Registry
	gw     *economy.Gateway
	mem    *ledger.Memory
	clock  *fakeClock
	ctx    context.Context
	stake  int64
	roomID string
}

func newHarness(t *testing.T, stake int64, balA, balB int64) *harness {
	t.Helper()
	mem := ledger.NewMemory(nil)
	return newHarnessOn(t, mem, mem, time.Second, stake, balA, balB)
}

// newHarnessOn runs the registry over l, which must keep its balances in mem.
func newHarnessOn(t *testing.T, l ledger.Ledger, mem *ledger.Memory, timeout time.Duration, stake, balA, balB int64) *harness {
	t.Helper()
	gw := economy.New(l, timeout)
	clock := newFakeClock()
	h := &harness{
		t:      t,
		gw:     gw,
		mem:    mem,
		clock:  clock,
		ctx:    context.Background(),
		stake:  stake,
		roomID: room,
		reg: NewRegistry(gw, Options{
			TurnTimeout: 10 * time.Second,
			PauseBudget: 30 * time.Second,
			Now:         clock.Now,
		}),
	}
	for player, bal := range map[string]int64{playerA: balA, playerB: balB} {
		if bal == 0 {
			continue
		}
		if err := gw.Grant(h.ctx, economy.Request{PlayerID: player, Amount: bal, Asset: ledger.AssetCoins}); err != nil {
			t.Fatalf("grant %s: %v", player, err)
		}
	}
	t.Cleanup(h.reg.Close)
	return h
}

func (h *harness) send(kind EventKind, player string) (Snapshot, error) {
	return h.reg.Dispatch(h.ctx, h.roomID, Event{Kind: kind, PlayerID: player, Stake: h.stake, Asset: ledger.AssetCoins})
}

func (h *harness) must(kind EventKind, player string) Snapshot {
	h.t.Helper()
	snap, err := h.send(kind, player)
	if err != nil {
		h.t.Fatalf("%s by %s: %v", kind, player, err)
	}
	return snap
}

func (h *harness) move(player string, cell int) (Snapshot, error) {
	return h.reg.Dispatch(h.ctx, h.roomID, Event{Kind: EventMove, PlayerID: player, Cell: cell})
}

func (h *harness) mustMove(player string, cell int) Snapshot {
	h.t.Helper()
	snap, err := h.move(player, cell)
	if err != nil {
		h.t.Fatalf("move %s cell %d: %v", player, cell, err)
	}
	return snap
}

// seatAndStart brings the room to playing with A to move.
func (h *harness) seatAndStart() Snapshot {
	h.t.Helper()
	h.must(EventJoin, playerA)
	h.must(EventJoin, playerB)
	h.must(EventReady, playerB)
	snap := h.must(EventStart, playerA)
	if snap.Status != StatusPlaying {
		h.t.Fatalf("expected playing, got %s", snap.Status)
	}
	return snap
}

func (h *harness) coins(player string) int64 {
	h.t.Helper()
	b, err := h.gw.Balances(h.ctx, player)
	if err != nil {
		h.t.Fatalf("balances %s: %v", player, err)
	}
	return b.Coins
}

func (h *harness) potCoins() int64 {
	b, _ := h.mem.Balances(h.ctx, ledger.PotAccount(h.roomID))
	return b.Coins
}

func (h *harness) entryCount() int {
	h.t.Helper()
	entries, err := h.mem.Entries(h.ctx, ledger.EntryFilter{}, 0, 0)
	if err != nil {
		h.t.Fatalf("entries: %v", err)
	}
	return len(entries)
}

func (h *harness) tick() {
	h.reg.Tick(h.ctx, h.clock.Now())
	h.reg.inflight.Wait()
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

// errStall makes a faultLedger call block until its context expires.
var errStall = errors.New("stall")

// faultLedger fails chosen Debit and Credit calls, counted from 1, and passes
// the rest to the embedded Memory.
type faultLedger struct {
	*ledger.Memory

	mu         sync.Mutex
	debits     int
	credits    int
	failDebit  map[int]error
	failCredit map[int]error
}

func newFaultLedger() *faultLedger {
	return &faultLedger{
		Memory:     ledger.NewMemory(nil),
		failDebit:  make(map[int]error),
		failCredit: make(map[int]error),
	}
}

func (f *faultLedger) Debit(ctx context.Context, op ledger.Op) (int64, error) {
	f.mu.Lock()
	f.debits++
	err := f.failDebit[f.debits]
	f.mu.Unlock()
	if err != nil {
		return 0, f.fail(ctx, err)
	}
	return f.Memory.Debit(ctx, op)
}

func (f *faultLedger) Credit(ctx context.Context, op ledger.Op) (int64, error) {
	f.mu.Lock()
	f.credits++
	err := f.failCredit[f.credits]
	f.mu.Unlock()
	if err != nil {
		return 0, f.fail(ctx, err)
	}
	return f.Memory.Credit(ctx, op)
}

func (f *faultLedger) fail(ctx context.Context, err error) error {
	if errors.Is(err, errStall) {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *faultLedger) calls() (debits, credits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.debits, f.credits
}
