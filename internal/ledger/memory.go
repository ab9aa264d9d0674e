package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"stake-arena/internal/store"
)

// TreasuryAccount is the counterparty for every non-match reference.
const TreasuryAccount = "treasury"

// PotAccount names the synthetic escrow account of a room.
func PotAccount(roomID string) string {
	return "pot:" + roomID
}

type memAccount struct {
	mu   sync.Mutex
	bal  Balances
	kind string
}

func (a *memAccount) add(asset Asset, delta int64) int64 {
	if asset == AssetGems {
		a.bal.Gems += delta
		return a.bal.Gems
	}
	a.bal.Coins += delta
	return a.bal.Coins
}

// Memory keeps balances in process. Every operation is a transfer between a
// player account and a counterparty (room pot or treasury); both account
// locks are taken in sorted order.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]*memAccount

	entriesMu sync.RWMutex
	entries   []Entry

	supplyMu sync.Mutex
	caps     map[Asset]int64
	issued   map[Asset]int64

	now func() time.Time
}

func NewMemory(caps map[Asset]int64) *Memory {
	m := &Memory{
		accounts: make(map[string]*memAccount),
		caps:     make(map[Asset]int64),
		issued:   make(map[Asset]int64),
		now:      time.Now,
	}
	for asset, limit := range caps {
		m.caps[asset] = limit
	}
	return m
}

func (m *Memory) account(id string) *memAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		acc = &memAccount{}
		m.accounts[id] = acc
	}
	return acc
}

func counterparty(op Op) string {
	if op.RefType == RefMatch && op.RefID != "" {
		return PotAccount(op.RefID)
	}
	return TreasuryAccount
}

// lockPair locks both accounts in id order and returns the unlock func.
func (m *Memory) lockPair(a, b string) (*memAccount, *memAccount, func()) {
	accA, accB := m.account(a), m.account(b)
	if a == b {
		accA.mu.Lock()
		return accA, accB, accA.mu.Unlock
	}
	ids := []string{a, b}
	sort.Strings(ids)
	first, second := m.account(ids[0]), m.account(ids[1])
	first.mu.Lock()
	second.mu.Lock()
	return accA, accB, func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

func (m *Memory) Debit(ctx context.Context, op Op) (int64, error) {
	if err := op.validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cp := counterparty(op)
	player, other, unlock := m.lockPair(op.AccountID, cp)
	defer unlock()
	if player.bal.Of(op.Asset) < op.Amount {
		return 0, ErrInsufficientFunds
	}
	bal := player.add(op.Asset, -op.Amount)
	other.add(op.Asset, op.Amount)
	m.record(op, op.AccountID, -op.Amount)
	m.record(op, cp, op.Amount)
	return bal, nil
}

func (m *Memory) Credit(ctx context.Context, op Op) (int64, error) {
	if err := op.validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cp := counterparty(op)
	player, other, unlock := m.lockPair(op.AccountID, cp)
	defer unlock()
	if cp != TreasuryAccount && other.bal.Of(op.Asset) < op.Amount {
		return 0, ErrInsufficientFunds
	}
	other.add(op.Asset, -op.Amount)
	bal := player.add(op.Asset, op.Amount)
	m.record(op, cp, -op.Amount)
	m.record(op, op.AccountID, op.Amount)
	return bal, nil
}

// Mint issues new supply from the treasury, bounded by the asset cap.
func (m *Memory) Mint(ctx context.Context, op Op) (int64, error) {
	if err := op.validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.supplyMu.Lock()
	limit, capped := m.caps[op.Asset]
	if capped && m.issued[op.Asset]+op.Amount > limit {
		m.supplyMu.Unlock()
		return 0, ErrSupplyCapExceeded
	}
	m.issued[op.Asset] += op.Amount
	m.supplyMu.Unlock()

	player := m.account(op.AccountID)
	player.mu.Lock()
	defer player.mu.Unlock()
	bal := player.add(op.Asset, op.Amount)
	m.record(op, op.AccountID, op.Amount)
	return bal, nil
}

func (m *Memory) Balances(ctx context.Context, accountID string) (Balances, error) {
	m.mu.Lock()
	acc, ok := m.accounts[accountID]
	m.mu.Unlock()
	if !ok {
		return Balances{}, nil
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.bal, nil
}

func (m *Memory) Entries(ctx context.Context, f EntryFilter, limit, offset int) ([]Entry, error) {
	m.entriesMu.RLock()
	defer m.entriesMu.RUnlock()
	out := make([]Entry, 0)
	skipped := 0
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if f.AccountID != "" && e.AccountID != f.AccountID {
			continue
		}
		if f.RefType != "" && e.RefType != f.RefType {
			continue
		}
		if f.RefID != "" && e.RefID != f.RefID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// record appends one entry; callers hold the account lock.
func (m *Memory) record(op Op, accountID string, amount int64) {
	e := Entry{
		ID:        store.NewID(),
		AccountID: accountID,
		Asset:     op.Asset,
		Amount:    amount,
		Kind:      op.Kind,
		RefType:   op.RefType,
		RefID:     op.RefID,
		Metadata:  op.Metadata,
		CreatedAt: m.now().UTC(),
	}
	m.entriesMu.Lock()
	m.entries = append(m.entries, e)
	m.entriesMu.Unlock()
}
