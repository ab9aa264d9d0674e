package httptransport

import (
	"encoding/json"
	"net/http"

	"stake-arena/internal/economy"

	"github.com/go-chi/chi/v5"
)

type PlayerHandlers struct {
	economy *economy.Gateway
}

func NewPlayerHandlers(gw *economy.Gateway) *PlayerHandlers {
	return &PlayerHandlers{economy: gw}
}

func (h *PlayerHandlers) Balances() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := chi.URLParam(r, "player_id")
		b, err := h.economy.Balances(r.Context(), playerID)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"player_id": playerID,
			"coins":     b.Coins,
			"gems":      b.Gems,
		})
	}
}
