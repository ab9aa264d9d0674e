// Package economy is the money facade used by matches and admin tooling.
// The ledger backend is fixed when the Gateway is built.
package economy

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"stake-arena/internal/identity"
	"stake-arena/internal/ledger"
)

const DefaultTimeout = 3 * time.Second

type Request struct {
	PlayerID string
	Amount   int64
	Asset    ledger.Asset
	Kind     ledger.EntryKind
	RoomID   string
	Round    int
	Note     string
}

type EntryQuery struct {
	PlayerID string
	RoomID   string
}

type Gateway struct {
	ledger  ledger.Ledger
	timeout time.Duration
}

func New(l ledger.Ledger, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{ledger: l, timeout: timeout}
}

func (g *Gateway) Debit(ctx context.Context, req Request) error {
	return g.apply(ctx, "debit", req, g.ledger.Debit)
}

func (g *Gateway) Credit(ctx context.Context, req Request) error {
	return g.apply(ctx, "credit", req, g.ledger.Credit)
}

// Grant mints new supply into a player account.
func (g *Gateway) Grant(ctx context.Context, req Request) error {
	if req.Kind == "" {
		req.Kind = ledger.KindManual
	}
	return g.apply(ctx, "grant", req, g.ledger.Mint)
}

func (g *Gateway) Balances(ctx context.Context, playerID string) (ledger.Balances, error) {
	account, err := identity.ResolveAccount(playerID)
	if err != nil {
		return ledger.Balances{}, &Error{Op: "balances", Reason: ReasonIdentityNotFound, Err: err}
	}
	callCtx, cancel := g.callContext(ctx)
	defer cancel()
	b, err := g.ledger.Balances(callCtx, account)
	if err != nil {
		return ledger.Balances{}, &Error{Op: "balances", Reason: classify(err, ""), Err: err}
	}
	return b, nil
}

func (g *Gateway) Entries(ctx context.Context, q EntryQuery, limit, offset int) ([]ledger.Entry, error) {
	f := ledger.EntryFilter{}
	if q.PlayerID != "" {
		account, err := identity.ResolveAccount(q.PlayerID)
		if err != nil {
			return nil, &Error{Op: "entries", Reason: ReasonIdentityNotFound, Err: err}
		}
		f.AccountID = account
	}
	if q.RoomID != "" {
		f.RefType = ledger.RefMatch
		f.RefID = q.RoomID
	}
	callCtx, cancel := g.callContext(ctx)
	defer cancel()
	entries, err := g.ledger.Entries(callCtx, f, limit, offset)
	if err != nil {
		return nil, &Error{Op: "entries", Reason: classify(err, ""), Err: err}
	}
	return entries, nil
}

type ledgerCall func(context.Context, ledger.Op) (int64, error)

func (g *Gateway) apply(ctx context.Context, op string, req Request, call ledgerCall) error {
	account, err := identity.ResolveAccount(req.PlayerID)
	if err != nil {
		return g.fail(op, req, err)
	}
	lop := ledger.Op{
		AccountID: account,
		Asset:     req.Asset,
		Amount:    req.Amount,
		Kind:      req.Kind,
		Metadata:  map[string]any{"player_id": req.PlayerID},
	}
	if req.RoomID != "" {
		lop.RefType = ledger.RefMatch
		lop.RefID = req.RoomID
		lop.Metadata["round"] = req.Round
	}
	if req.Note != "" {
		lop.Metadata["note"] = req.Note
	}

	callCtx, cancel := g.callContext(ctx)
	defer cancel()
	if _, err := call(callCtx, lop); err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			err = context.DeadlineExceeded
		}
		return g.fail(op, req, err)
	}
	return nil
}

// callContext detaches from the caller's cancellation; only the gateway
// timeout bounds a ledger call.
func (g *Gateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
}

func (g *Gateway) fail(op string, req Request, err error) error {
	e := &Error{Op: op, Reason: classify(err, req.Asset), Err: err}
	log.Warn().
		Str("op", op).
		Str("player_id", req.PlayerID).
		Str("room_id", req.RoomID).
		Str("asset", string(req.Asset)).
		Int64("amount", req.Amount).
		Str("reason", e.Reason).
		Err(err).
		Msg("economy call failed")
	return e
}
