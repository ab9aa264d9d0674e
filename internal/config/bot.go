package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL    string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	RoomID   string `env:"ROOM_ID" envDefault:"lobby-1"`
	PlayerID string `env:"PLAYER_ID" envDefault:""`
	Stake    int64  `env:"BOT_STAKE" envDefault:"0"`
	Asset    string `env:"BOT_ASSET" envDefault:"coins"`
	Rematch  bool   `env:"BOT_REMATCH" envDefault:"true"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
