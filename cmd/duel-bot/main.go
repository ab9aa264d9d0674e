package main

import (
	"encoding/json"
	"math/rand"
	"time"

	"stake-arena/internal/config"
	"stake-arena/internal/identity"
	"stake-arena/internal/logging"
	"stake-arena/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}
	if cfg.PlayerID == "" {
		log.Fatal().Msg("PLAYER_ID is required")
	}
	if cfg.PlayerID, err = identity.Canonical(cfg.PlayerID); err != nil {
		log.Fatal().Err(err).Msg("PLAYER_ID is not a known identity")
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.WSURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.WSURL).Msg("dial failed")
	}
	defer conn.Close()

	join := ws.Inbound{Type: "join", RoomID: cfg.RoomID, PlayerID: cfg.PlayerID, Stake: cfg.Stake, Asset: cfg.Asset}
	if err := conn.WriteJSON(join); err != nil {
		log.Fatal().Err(err).Msg("join failed")
	}

	b := &bot{
		playerID: cfg.PlayerID,
		rematch:  cfg.Rematch,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		lastSeq:  -1,
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Msg("connection closed")
			return
		}
		var base struct {
			Type   string `json:"type"`
			Event  string `json:"event"`
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(data, &base); err != nil {
			continue
		}
		if base.Type == "error" {
			log.Warn().Str("event", base.Event).Str("error", base.Error).Str("reason", base.Reason).Msg("server rejected event")
			continue
		}
		if base.Type != "state_update" {
			continue
		}
		var update ws.StateUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			continue
		}
		msg := b.decide(update.Snapshot)
		if msg == nil {
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Error().Err(err).Msg("write failed")
			return
		}
	}
}
