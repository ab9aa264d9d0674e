package store

import (
	"encoding/json"
	"time"
)

type Account struct {
	ID        string
	Coins     int64
	Gems      int64
	UpdatedAt time.Time
}

type LedgerEntry struct {
	ID        string
	AccountID string
	Asset     string
	Amount    int64
	EntryType string
	RefType   string
	RefID     string
	Metadata  json.RawMessage
	CreatedAt time.Time
}

// EntryParams describes one balance change. Amount is always positive; the
// direction comes from the operation.
type EntryParams struct {
	AccountID string
	Asset     string
	Amount    int64
	EntryType string
	RefType   string
	RefID     string
	Metadata  json.RawMessage
}

type LedgerFilter struct {
	AccountID string
	Asset     string
	RefType   string
	RefID     string
	From      *time.Time
	To        *time.Time
}
