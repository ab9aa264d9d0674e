package ledger

import (
	"context"
	"encoding/json"
	"errors"

	"stake-arena/internal/store"
)

// Postgres is the durable backend. Every operation runs as one transaction
// holding the account row lock.
type Postgres struct {
	Store *store.Store
}

func NewPostgres(s *store.Store) *Postgres {
	return &Postgres{Store: s}
}

// EnsureSupply registers per-asset issuance caps used by Mint.
func (p *Postgres) EnsureSupply(ctx context.Context, caps map[Asset]int64) error {
	for asset, limit := range caps {
		if err := p.Store.EnsureSupplyCap(ctx, string(asset), limit); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) Debit(ctx context.Context, op Op) (int64, error) {
	params, err := toParams(op)
	if err != nil {
		return 0, err
	}
	bal, err := p.Store.Debit(ctx, params)
	return bal, mapStoreErr(err)
}

func (p *Postgres) Credit(ctx context.Context, op Op) (int64, error) {
	params, err := toParams(op)
	if err != nil {
		return 0, err
	}
	bal, err := p.Store.Credit(ctx, params)
	return bal, mapStoreErr(err)
}

func (p *Postgres) Mint(ctx context.Context, op Op) (int64, error) {
	params, err := toParams(op)
	if err != nil {
		return 0, err
	}
	bal, err := p.Store.Mint(ctx, params)
	return bal, mapStoreErr(err)
}

func (p *Postgres) Balances(ctx context.Context, accountID string) (Balances, error) {
	acc, err := p.Store.GetAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return Balances{}, nil
	}
	if err != nil {
		return Balances{}, err
	}
	return Balances{Coins: acc.Coins, Gems: acc.Gems}, nil
}

func (p *Postgres) Entries(ctx context.Context, f EntryFilter, limit, offset int) ([]Entry, error) {
	rows, err := p.Store.ListLedgerEntries(ctx, store.LedgerFilter{
		AccountID: f.AccountID,
		RefType:   f.RefType,
		RefID:     f.RefID,
	}, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := Entry{
			ID:        r.ID,
			AccountID: r.AccountID,
			Asset:     Asset(r.Asset),
			Amount:    r.Amount,
			Kind:      EntryKind(r.EntryType),
			RefType:   r.RefType,
			RefID:     r.RefID,
			CreatedAt: r.CreatedAt,
		}
		if len(r.Metadata) > 0 {
			_ = json.Unmarshal(r.Metadata, &e.Metadata)
		}
		out = append(out, e)
	}
	return out, nil
}

func toParams(op Op) (store.EntryParams, error) {
	if err := op.validate(); err != nil {
		return store.EntryParams{}, err
	}
	var meta []byte
	if len(op.Metadata) > 0 {
		b, err := json.Marshal(op.Metadata)
		if err != nil {
			return store.EntryParams{}, err
		}
		meta = b
	}
	return store.EntryParams{
		AccountID: op.AccountID,
		Asset:     string(op.Asset),
		Amount:    op.Amount,
		EntryType: string(op.Kind),
		RefType:   op.RefType,
		RefID:     op.RefID,
		Metadata:  meta,
	}, nil
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrInsufficientBalance):
		return ErrInsufficientFunds
	case errors.Is(err, store.ErrSupplyCapExceeded):
		return ErrSupplyCapExceeded
	case errors.Is(err, store.ErrInvalidAmount):
		return ErrInvalidAmount
	case errors.Is(err, store.ErrInvalidAsset):
		return ErrInvalidAsset
	default:
		return err
	}
}
