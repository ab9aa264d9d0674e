package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stake-arena/internal/config"
	"stake-arena/internal/economy"
	"stake-arena/internal/logging"
	"stake-arena/internal/scheduler"
	httptransport "stake-arena/internal/transport/http"

	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	srvCfg := cfg.Server

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openLedger(ctx, srvCfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", srvCfg.LedgerBackend).Msg("ledger init failed")
	}
	gw := economy.New(backend.ledger, srvCfg.LedgerTimeout)

	sinks, err := openSinks(ctx, srvCfg)
	if err != nil {
		backend.close()
		log.Fatal().Err(err).Msg("snapshot mirror init failed")
	}
	reg := newRegistry(srvCfg, gw, sinks.list)

	sched, err := scheduler.Start(ctx, reg, srvCfg.TickInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler start failed")
	}

	r := httptransport.NewRouter(httptransport.Deps{
		Config:  srvCfg,
		Rooms:   reg,
		Economy: gw,
		Health:  backend.health,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              srvCfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srvCfg.HTTPAddr).Msg("http listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}
	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("scheduler stop failed")
	}
	reg.Close()
	sinks.close()
	backend.close()
	log.Info().Msg("server stopped")
}
