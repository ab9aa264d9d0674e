package httptransport

import (
	"encoding/json"
	"net/http"

	"stake-arena/internal/economy"
	"stake-arena/internal/ledger"

	"github.com/rs/zerolog/log"
)

type AdminHandlers struct {
	economy *economy.Gateway
	health  Pinger
}

func NewAdminHandlers(gw *economy.Gateway, health Pinger) *AdminHandlers {
	return &AdminHandlers{economy: gw, health: health}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.health == nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "ledger": "memory"})
			return
		}
		if err := h.health.Ping(r.Context()); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "ledger": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "ledger": "up"})
	}
}

func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		q := economy.EntryQuery{
			PlayerID: r.URL.Query().Get("player_id"),
			RoomID:   r.URL.Query().Get("room_id"),
		}
		items, err := h.economy.Entries(r.Context(), q, limit, offset)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		if items == nil {
			items = []ledger.Entry{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

// Grant mints new supply into a player account.
func (h *AdminHandlers) Grant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerID string `json:"player_id"`
			Amount   int64  `json:"amount"`
			Asset    string `json:"asset"`
			Note     string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.PlayerID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if body.Asset == "" {
			body.Asset = string(ledger.AssetCoins)
		}
		req := economy.Request{
			PlayerID: body.PlayerID,
			Amount:   body.Amount,
			Asset:    ledger.Asset(body.Asset),
			Kind:     ledger.KindManual,
			Note:     body.Note,
		}
		if err := h.economy.Grant(r.Context(), req); err != nil {
			metricGrantErrors.Add(1)
			writeEconomyError(w, err)
			return
		}
		metricGrants.Add(1)
		log.Info().
			Str("player_id", body.PlayerID).
			Str("asset", body.Asset).
			Int64("amount", body.Amount).
			Msg("admin grant")

		b, err := h.economy.Balances(r.Context(), body.PlayerID)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "balances": b})
	}
}
