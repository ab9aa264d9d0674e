package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

func (s *Store) EnsureAccount(ctx context.Context, accountID string) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO accounts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, accountID)
	return err
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var a Account
	err := s.Pool.QueryRow(ctx,
		`SELECT id, coins, gems, updated_at FROM accounts WHERE id = $1`, accountID,
	).Scan(&a.ID, &a.Coins, &a.Gems, &a.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &a, nil
}

func (s *Store) Debit(ctx context.Context, p EntryParams) (int64, error) {
	return s.apply(ctx, p, -p.Amount, false)
}

func (s *Store) Credit(ctx context.Context, p EntryParams) (int64, error) {
	return s.apply(ctx, p, p.Amount, false)
}

// Mint credits p.AccountID out of the asset's remaining supply.
func (s *Store) Mint(ctx context.Context, p EntryParams) (int64, error) {
	return s.apply(ctx, p, p.Amount, true)
}

// EnsureSupplyCap creates or updates the issuance cap for an asset. Already
// issued supply is left untouched.
func (s *Store) EnsureSupplyCap(ctx context.Context, asset string, limit int64) error {
	if _, err := balanceColumn(asset); err != nil {
		return err
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO asset_supply (asset, cap) VALUES ($1, $2)
		 ON CONFLICT (asset) DO UPDATE SET cap = EXCLUDED.cap`, asset, limit)
	return err
}

func (s *Store) SupplyIssued(ctx context.Context, asset string) (int64, error) {
	var issued int64
	err := s.Pool.QueryRow(ctx, `SELECT issued FROM asset_supply WHERE asset = $1`, asset).Scan(&issued)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return issued, nil
}

// apply runs one balance change as a single transaction holding the account
// row lock from read to commit.
func (s *Store) apply(ctx context.Context, p EntryParams, delta int64, mint bool) (int64, error) {
	if p.Amount <= 0 {
		return 0, ErrInvalidAmount
	}
	col, err := balanceColumn(p.Asset)
	if err != nil {
		return 0, err
	}
	meta := p.Metadata
	if len(meta) == 0 {
		meta = []byte("{}")
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO accounts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, p.AccountID); err != nil {
		return 0, err
	}
	if mint {
		// A missing supply row is an uncapped asset; issuance is still counted.
		tag, err := tx.Exec(ctx,
			`INSERT INTO asset_supply AS s (asset, cap, issued) VALUES ($2, NULL, $1)
			 ON CONFLICT (asset) DO UPDATE SET issued = s.issued + EXCLUDED.issued
			 WHERE s.cap IS NULL OR s.issued + EXCLUDED.issued <= s.cap`,
			p.Amount, p.Asset)
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrSupplyCapExceeded
		}
	}

	var bal int64
	if err := tx.QueryRow(ctx, `SELECT `+col+` FROM accounts WHERE id = $1 FOR UPDATE`, p.AccountID).Scan(&bal); err != nil {
		return 0, mapNotFound(err)
	}
	newBal := bal + delta
	if newBal < 0 {
		return 0, ErrInsufficientBalance
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET `+col+` = $1, updated_at = now() WHERE id = $2`, newBal, p.AccountID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO ledger_entries (id, account_id, asset, amount, entry_type, ref_type, ref_id, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		NewID(), p.AccountID, p.Asset, delta, p.EntryType, p.RefType, p.RefID, meta,
	); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBal, nil
}
