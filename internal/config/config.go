// Package config reads the relay configuration from the environment: the
// hub endpoints, the platform credential, and the hub-supplied JSON blob.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/polaris-im/telegram-relay/internal/models"
)

const (
	envServer      = "SERVER"
	envLocalServer = "LOCAL_SERVER"
	envToken       = "TELEGRAM_TOKEN"
	envConfig      = "CONFIG"
	envRedisURL    = "REDIS_URL"
	envDebug       = "DEBUG"
)

// Config is the resolved process configuration.
type Config struct {
	Server      string
	LocalServer string
	Token       string
	RedisURL    string
	Debug       bool

	// Relay is the parsed CONFIG blob; RawRelay keeps the blob verbatim for
	// the init envelope so hub-side fields this schema does not model still
	// round-trip.
	Relay    RelayConfig
	RawRelay json.RawMessage
}

// RelayConfig is the hub-supplied routing configuration.
type RelayConfig struct {
	BroadcastConversationID models.Numberish `json:"broadcastConversationId"`
	BroadcastReceiverID     models.Numberish `json:"broadcastReceiverId"`
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[Config] No .env file loaded")
	}

	cfg := &Config{
		Server:      os.Getenv(envServer),
		LocalServer: os.Getenv(envLocalServer),
		Token:       os.Getenv(envToken),
		RedisURL:    os.Getenv(envRedisURL),
		Debug:       os.Getenv(envDebug) == "true",
	}

	if raw := os.Getenv(envConfig); raw != "" {
		cfg.RawRelay = json.RawMessage(raw)
		if err := json.Unmarshal(cfg.RawRelay, &cfg.Relay); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", envConfig, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Server == "" {
		missing = append(missing, envServer)
	}
	if c.Token == "" {
		missing = append(missing, envToken)
	}
	if len(c.RawRelay) == 0 {
		missing = append(missing, envConfig)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env variables: %s", strings.Join(missing, ", "))
	}
	if c.LocalServer == "" {
		log.Printf("[Config] Missing env variable %s, no fallback endpoint", envLocalServer)
	}
	return nil
}

func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Server: %s\n", c.Server))
	sb.WriteString(fmt.Sprintf("  Local server: %s\n", c.LocalServer))
	sb.WriteString(fmt.Sprintf("  Telegram token: %s\n", maskSecret(c.Token)))
	sb.WriteString(fmt.Sprintf("  Redis: %s\n", c.RedisURL))
	sb.WriteString(fmt.Sprintf("  Broadcast source: %s\n", c.Relay.BroadcastConversationID))
	sb.WriteString(fmt.Sprintf("  Broadcast receiver: %s\n", c.Relay.BroadcastReceiverID))
	return sb.String()
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
