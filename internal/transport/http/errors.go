package httptransport

import (
	"errors"
	"net/http"

	"stake-arena/internal/economy"
	"stake-arena/internal/match"
)

// matchStatus maps a rejected room event onto an HTTP status. Anything not
// listed is a protocol violation and reported as a conflict.
func matchStatus(err error) int {
	switch {
	case errors.Is(err, match.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, match.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, match.ErrInvalidWager),
		errors.Is(err, match.ErrInvalidPlayer),
		errors.Is(err, match.ErrInvalidMove),
		errors.Is(err, match.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.Is(err, match.ErrRegistryClosed):
		return http.StatusServiceUnavailable
	}
	if code, _ := match.Code(err); code == "internal_error" {
		return http.StatusInternalServerError
	}
	return http.StatusConflict
}

func writeMatchError(w http.ResponseWriter, err error) {
	code, reason := match.Code(err)
	body := map[string]any{"error": code}
	if reason != "" {
		body["reason"] = reason
	}
	WriteJSON(w, matchStatus(err), body)
}

func economyStatus(reason string) int {
	switch reason {
	case economy.ReasonIdentityNotFound:
		return http.StatusNotFound
	case economy.ReasonInvalidAmount, economy.ReasonInvalidAsset:
		return http.StatusBadRequest
	case economy.ReasonSupplyCapExceeded:
		return http.StatusConflict
	case economy.ReasonTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeEconomyError(w http.ResponseWriter, err error) {
	reason := economy.ReasonOf(err)
	WriteHTTPError(w, economyStatus(reason), reason)
}
