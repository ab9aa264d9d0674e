package match

import (
	"context"

	"github.com/rs/zerolog/log"

	"stake-arena/internal/economy"
	"stake-arena/internal/ledger"
)

// Wallet moves stakes between player accounts and the room pot.
type Wallet interface {
	Debit(ctx context.Context, req economy.Request) error
	Credit(ctx context.Context, req economy.Request) error
}

func (m *Match) wagerRequest(s Seat, amount int64, kind ledger.EntryKind, note string) economy.Request {
	return economy.Request{
		PlayerID: m.seats[s].playerID,
		Amount:   amount,
		Asset:    m.wager.Asset,
		Kind:     kind,
		RoomID:   m.roomID,
		Round:    m.round,
		Note:     note,
	}
}

// escrow takes the stake from A then B. If B cannot pay, A is refunded
// before returning, so a failed start never leaves a partial pot.
func (m *Match) escrow(ctx context.Context, w Wallet) error {
	if m.wager.Stake <= 0 {
		return nil
	}
	debitA := m.wagerRequest(SeatA, m.wager.Stake, ledger.KindWagerDebit, "escrow")
	if err := w.Debit(ctx, debitA); err != nil {
		return m.escrowFailed(SeatA, err)
	}
	m.seats[SeatA].paid = true

	debitB := m.wagerRequest(SeatB, m.wager.Stake, ledger.KindWagerDebit, "escrow")
	if err := w.Debit(ctx, debitB); err != nil {
		refund := m.wagerRequest(SeatA, m.wager.Stake, ledger.KindRefund, "escrow_compensation")
		if rerr := w.Credit(ctx, refund); rerr != nil {
			metricSettlementFailures.Add(1)
			log.Error().
				Str("room_id", m.roomID).
				Int("round", m.round).
				Str("player_id", refund.PlayerID).
				Int64("amount", refund.Amount).
				Str("reason", economy.ReasonOf(rerr)).
				Err(rerr).
				Msg("escrow refund failed, reconciliation required")
		}
		m.seats[SeatA].paid = false
		return m.escrowFailed(SeatB, err)
	}
	m.seats[SeatB].paid = true
	return nil
}

func (m *Match) escrowFailed(s Seat, err error) error {
	reason := economy.ReasonOf(err)
	m.lastFailReason = reason
	metricEscrowFailures.Add(1)
	log.Info().
		Str("room_id", m.roomID).
		Int("round", m.round).
		Str("seat", s.String()).
		Str("reason", reason).
		Msg("escrow aborted")
	return &PaymentError{Reason: reason}
}

// settlement is the money movement decided by one finished round. It is
// built under the match lock and executed after it is released.
type settlement struct {
	roomID  string
	round   int
	wager   Wager
	winner  Seat
	players [2]string
}

func (p *settlement) execute(ctx context.Context, w Wallet) {
	if p.winner == SeatNone {
		for s := SeatA; s <= SeatB; s++ {
			p.pay(ctx, w, s, p.wager.Stake, ledger.KindRefund)
		}
		return
	}
	p.pay(ctx, w, p.winner, 2*p.wager.Stake, ledger.KindWagerCredit)
}

func (p *settlement) pay(ctx context.Context, w Wallet, s Seat, amount int64, kind ledger.EntryKind) {
	req := economy.Request{
		PlayerID: p.players[s],
		Amount:   amount,
		Asset:    p.wager.Asset,
		Kind:     kind,
		RoomID:   p.roomID,
		Round:    p.round,
		Note:     "settlement",
	}
	if err := w.Credit(ctx, req); err != nil {
		metricSettlementFailures.Add(1)
		log.Error().
			Str("room_id", p.roomID).
			Int("round", p.round).
			Str("player_id", req.PlayerID).
			Str("asset", string(req.Asset)).
			Int64("amount", amount).
			Str("reason", economy.ReasonOf(err)).
			Err(err).
			Msg("settlement failed, reconciliation required")
		return
	}
	metricSettlements.Add(1)
	log.Info().
		Str("room_id", p.roomID).
		Int("round", p.round).
		Str("player_id", req.PlayerID).
		Int64("amount", amount).
		Str("kind", string(kind)).
		Msg("settled")
}
