package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"stake-arena/internal/config"
	"stake-arena/internal/economy"
	"stake-arena/internal/match"
	"stake-arena/internal/spectatorgateway"
	"stake-arena/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether a durable ledger backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Config  config.ServerConfig
	Rooms   *match.Registry
	Economy *economy.Gateway
	// Health is nil for the in-memory ledger.
	Health Pinger
}

func NewRouter(d Deps) *chi.Mux {
	roomHandlers := NewRoomHandlers(d.Rooms)
	playerHandlers := NewPlayerHandlers(d.Economy)
	adminHandlers := NewAdminHandlers(d.Economy, d.Health)
	wsServer := ws.NewServer(d.Rooms)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.Get("/ws", wsServer.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/rooms", roomHandlers.List())
		r.Get("/rooms/{room_id}", roomHandlers.Get())
		r.Get("/rooms/{room_id}/stream", spectatorgateway.EventsHandler(d.Rooms))
		r.With(BodyCaptureMiddleware(4096)).Post("/rooms/{room_id}/events", roomHandlers.Events())
		r.Get("/players/{player_id}/balances", playerHandlers.Balances())

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Config.AdminAPIKey))
			r.Get("/ledger", adminHandlers.Ledger())
			r.With(BodyCaptureMiddleware(4096)).Post("/grant", adminHandlers.Grant())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
