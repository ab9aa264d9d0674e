package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidAsset        = errors.New("invalid_asset")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrSupplyCapExceeded   = errors.New("supply_cap_exceeded")
)

// Store wraps DB access.
type Store struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// balanceColumn maps an asset name onto its accounts column. Only these two
// literals are ever interpolated into SQL.
func balanceColumn(asset string) (string, error) {
	switch asset {
	case "coins":
		return "coins", nil
	case "gems":
		return "gems", nil
	default:
		return "", ErrInvalidAsset
	}
}
