package match

import "errors"

var (
	ErrNotPlaying       = errors.New("not_playing")
	ErrNotYourTurn      = errors.New("not_your_turn")
	ErrInvalidMove      = errors.New("invalid_move")
	ErrMatchFull        = errors.New("match_full")
	ErrNotHost          = errors.New("not_host")
	ErrOpponentNotReady = errors.New("opponent_not_ready")
	ErrSeatEmpty        = errors.New("seat_empty")
	ErrNotSeated        = errors.New("not_seated")
	ErrInvalidState     = errors.New("invalid_state")
	ErrRoomNotFound     = errors.New("room_not_found")
	ErrInvalidWager     = errors.New("invalid_wager")
	ErrInvalidPlayer    = errors.New("invalid_player")
	ErrUnknownEvent     = errors.New("unknown_event")
	ErrRegistryClosed   = errors.New("registry_closed")
	ErrPaymentFailed    = errors.New("payment_failed")
)

// PaymentError is an escrow failure; Reason is the economy reason code.
type PaymentError struct {
	Reason string
}

func (e *PaymentError) Error() string {
	return "payment_failed: " + e.Reason
}

func (e *PaymentError) Is(target error) bool {
	return target == ErrPaymentFailed
}

var codes = []error{
	ErrNotPlaying,
	ErrNotYourTurn,
	ErrInvalidMove,
	ErrMatchFull,
	ErrNotHost,
	ErrOpponentNotReady,
	ErrSeatEmpty,
	ErrNotSeated,
	ErrInvalidState,
	ErrRoomNotFound,
	ErrInvalidWager,
	ErrInvalidPlayer,
	ErrUnknownEvent,
	ErrRegistryClosed,
}

// Code returns the wire error code for err and, for payment failures, the
// economy reason behind it.
func Code(err error) (code, reason string) {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return ErrPaymentFailed.Error(), pe.Reason
	}
	for _, c := range codes {
		if errors.Is(err, c) {
			return c.Error(), ""
		}
	}
	return "internal_error", ""
}
