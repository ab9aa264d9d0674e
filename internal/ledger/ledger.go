package ledger

import (
	"context"
	"errors"
	"time"
)

type Asset string

const (
	AssetCoins Asset = "coins"
	AssetGems  Asset = "gems"
)

func (a Asset) Valid() bool {
	return a == AssetCoins || a == AssetGems
}

type EntryKind string

const (
	KindWagerDebit  EntryKind = "wager_debit"
	KindWagerCredit EntryKind = "wager_credit"
	KindRefund      EntryKind = "refund"
	KindManual      EntryKind = "manual"
)

// RefMatch marks entries that move money into or out of a room's pot.
const RefMatch = "match"

var (
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidAsset      = errors.New("invalid_asset")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrSupplyCapExceeded = errors.New("supply_cap_exceeded")
)

type Balances struct {
	Coins int64 `json:"coins"`
	Gems  int64 `json:"gems"`
}

func (b Balances) Of(asset Asset) int64 {
	if asset == AssetGems {
		return b.Gems
	}
	return b.Coins
}

type Entry struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id"`
	Asset     Asset          `json:"asset"`
	Amount    int64          `json:"amount"`
	Kind      EntryKind      `json:"kind"`
	RefType   string         `json:"ref_type,omitempty"`
	RefID     string         `json:"ref_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Op is one requested balance change. Amount must be positive.
type Op struct {
	AccountID string
	Asset     Asset
	Amount    int64
	Kind      EntryKind
	RefType   string
	RefID     string
	Metadata  map[string]any
}

func (op Op) validate() error {
	if op.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !op.Asset.Valid() {
		return ErrInvalidAsset
	}
	return nil
}

type EntryFilter struct {
	AccountID string
	RefType   string
	RefID     string
}

// Ledger is the balance store behind the economy gateway. A debit or credit
// either changes one balance and appends one entry, or has no effect.
type Ledger interface {
	Debit(ctx context.Context, op Op) (int64, error)
	Credit(ctx context.Context, op Op) (int64, error)
	Mint(ctx context.Context, op Op) (int64, error)
	Balances(ctx context.Context, accountID string) (Balances, error)
	Entries(ctx context.Context, f EntryFilter, limit, offset int) ([]Entry, error)
}
