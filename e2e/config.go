package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_ADDR points at a running instance, e.g. http://localhost:8080.
	// The suite is skipped when unset.
	ServerAddr string `envconfig:"E2E_SERVER_ADDR"`
	JWTSecret  string `envconfig:"E2E_JWT_SECRET" default:"secret"`
	UserID     string `envconfig:"E2E_USER_ID" default:"alice"`
	PeerID     string `envconfig:"E2E_PEER_ID" default:"bob"`
	ChatID     string `envconfig:"E2E_CHAT_ID" default:"chat-1"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
