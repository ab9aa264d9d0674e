package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func (s *Store) ListLedgerEntries(ctx context.Context, f LedgerFilter, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, account_id, asset, amount, entry_type, ref_type, ref_id, metadata, created_at
		 FROM ledger_entries
		 WHERE ($1 = '' OR account_id = $1)
		   AND ($2 = '' OR asset = $2)
		   AND ($3 = '' OR ref_type = $3)
		   AND ($4 = '' OR ref_id = $4)
		   AND ($5::timestamptz IS NULL OR created_at >= $5)
		   AND ($6::timestamptz IS NULL OR created_at < $6)
		 ORDER BY id DESC
		 LIMIT $7 OFFSET $8`,
		f.AccountID, f.Asset, f.RefType, f.RefID, timeParam(f.From), timeParam(f.To), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LedgerEntry, 0, limit)
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Asset, &e.Amount, &e.EntryType, &e.RefType, &e.RefID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SumLedger returns the sum of signed entry amounts for one account and asset.
func (s *Store) SumLedger(ctx context.Context, accountID, asset string) (int64, error) {
	var sum int64
	err := s.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::bigint FROM ledger_entries WHERE account_id = $1 AND asset = $2`,
		accountID, asset).Scan(&sum)
	return sum, err
}

func timeParam(v *time.Time) pgtype.Timestamptz {
	if v == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *v, Valid: true}
}
