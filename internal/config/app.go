package config

import "github.com/joho/godotenv"

type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
}

// LoadApp reads an optional .env file before parsing the environment.
func LoadApp() (AppConfig, error) {
	_ = godotenv.Load()

	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Log:    logCfg,
	}, nil
}
