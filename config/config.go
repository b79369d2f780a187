package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-sourced service configuration. Required values
// missing at startup fail the process immediately.
type Config struct {
	BotToken string `env:"BOT_TOKEN,required"`
	AppID    string `env:"CLIENT_ID,required"`
	GuildID  string `env:"GUILD_ID,required"`

	AllowlistURL    string `env:"ALLOWLIST_URL" envDefault:"https://manifest.human.tech/api/covenant/signers-export"`
	AllowlistAPIKey string `env:"ALLOWLIST_API_KEY,required"`

	PublicBaseURL string `env:"PUBLIC_BASE_URL,required"`
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":3000"`
	WebDir        string `env:"WEB_DIR" envDefault:"web"`

	RoleName       string        `env:"VERIFIED_ROLE_NAME" envDefault:"Human ID Verified"`
	CooldownWindow time.Duration `env:"COOLDOWN_WINDOW" envDefault:"1m"`
	ChallengeTTL   time.Duration `env:"CHALLENGE_TTL" envDefault:"10m"`
	CloseGrace     time.Duration `env:"CLOSE_GRACE" envDefault:"5s"`

	LinkTokenSecret string `env:"LINK_TOKEN_SECRET,required"`

	// Optional redis tier; memory stores are used when unset
	RedisURL string `env:"REDIS_URL"`

	// Optional on-chain token gate; disabled when either value is unset
	RPCURL      string `env:"RPC_URL"`
	SBTContract string `env:"SBT_CONTRACT"`
}

// Load parses the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// TokenGateEnabled reports whether the on-chain gate is configured
func (c *Config) TokenGateEnabled() bool {
	return c.RPCURL != "" && c.SBTContract != ""
}
