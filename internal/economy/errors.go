package economy

import (
	"context"
	"errors"
	"fmt"

	"stake-arena/internal/identity"
	"stake-arena/internal/ledger"
)

const (
	ReasonInsufficientCoins = "insufficient_coins"
	ReasonInsufficientGems  = "insufficient_gems"
	ReasonIdentityNotFound  = "identity_not_found"
	ReasonTimeout           = "timeout"
	ReasonInvalidAmount     = "invalid_amount"
	ReasonInvalidAsset      = "invalid_asset"
	ReasonSupplyCapExceeded = "supply_cap_exceeded"
	ReasonBackendError      = "backend_error"
)

// Error is the uniform failure result of a gateway call.
type Error struct {
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf returns the classified reason of err, or "" for nil.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonBackendError
}

func classify(err error, asset ledger.Asset) string {
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return ReasonIdentityNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ledger.ErrInsufficientFunds):
		if asset == ledger.AssetGems {
			return ReasonInsufficientGems
		}
		return ReasonInsufficientCoins
	case errors.Is(err, ledger.ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, ledger.ErrInvalidAsset):
		return ReasonInvalidAsset
	case errors.Is(err, ledger.ErrSupplyCapExceeded):
		return ReasonSupplyCapExceeded
	default:
		return ReasonBackendError
	}
}
