package main

import (
	"context"
	"fmt"

	"stake-arena/internal/config"
	"stake-arena/internal/economy"
	"stake-arena/internal/fanout"
	"stake-arena/internal/ledger"
	"stake-arena/internal/match"
	"stake-arena/internal/migrations"
	"stake-arena/internal/store"
	httptransport "stake-arena/internal/transport/http"

	"github.com/rs/zerolog/log"
)

// ledgerBackend is the ledger chosen at startup. The match code never sees
// which one it is.
type ledgerBackend struct {
	ledger ledger.Ledger
	health httptransport.Pinger
	close  func()
}

func supplyCaps(cfg config.ServerConfig) map[ledger.Asset]int64 {
	return map[ledger.Asset]int64{
		ledger.AssetCoins: cfg.CoinsSupplyCap,
		ledger.AssetGems:  cfg.GemsSupplyCap,
	}
}

func openLedger(ctx context.Context, cfg config.ServerConfig) (ledgerBackend, error) {
	switch cfg.LedgerBackend {
	case config.LedgerBackendMemory:
		log.Warn().Msg("using in-memory ledger; balances are lost on restart")
		return ledgerBackend{ledger: ledger.NewMemory(supplyCaps(cfg)), close: func() {}}, nil
	case config.LedgerBackendPostgres:
		if cfg.MigrateOnStart {
			if err := migrations.Run(cfg.PostgresDSN, cfg.MigrationsPath); err != nil {
				return ledgerBackend{}, fmt.Errorf("migrate: %w", err)
			}
		}
		st, err := store.New(cfg.PostgresDSN)
		if err != nil {
			return ledgerBackend{}, err
		}
		if err := st.Ping(ctx); err != nil {
			st.Close()
			return ledgerBackend{}, fmt.Errorf("db ping: %w", err)
		}
		pg := ledger.NewPostgres(st)
		if err := pg.EnsureSupply(ctx, supplyCaps(cfg)); err != nil {
			st.Close()
			return ledgerBackend{}, fmt.Errorf("ensure supply: %w", err)
		}
		return ledgerBackend{ledger: pg, health: st, close: st.Close}, nil
	default:
		return ledgerBackend{}, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

type snapshotSinks struct {
	list  []match.SnapshotSink
	close func()
}

// openSinks connects the Redis snapshot mirror when REDIS_URL is set.
func openSinks(ctx context.Context, cfg config.ServerConfig) (snapshotSinks, error) {
	if cfg.RedisURL == "" {
		return snapshotSinks{close: func() {}}, nil
	}
	client, err := fanout.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return snapshotSinks{}, err
	}
	mirror := fanout.NewRedisMirror(client, 0, 0)
	log.Info().Msg("snapshot mirror enabled")
	return snapshotSinks{
		list: []match.SnapshotSink{mirror},
		close: func() {
			mirror.Close()
			_ = client.Close()
		},
	}, nil
}

func newRegistry(cfg config.ServerConfig, gw *economy.Gateway, sinks []match.SnapshotSink) *match.Registry {
	return match.NewRegistry(gw, match.Options{
		TurnTimeout:  cfg.TurnTimeout,
		PauseBudget:  cfg.PauseBudget,
		DefaultStake: cfg.DefaultStake,
		DefaultAsset: ledger.Asset(cfg.DefaultAsset),
		Sinks:        sinks,
	})
}
