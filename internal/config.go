// Package internal carries process-level plumbing: configuration and the
// debug inspector.
package internal

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
)

// Config is loaded from the environment. Paths and the token secret are
// mandatory; everything else has a sensible default.
type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=8080"`
	DebugPort int    `env:"DEBUG_PORT,default=0"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`

	BadgerPath string `env:"BADGER_PATH,required=true"`
	// Empty disables full-text search.
	BlugePath string `env:"BLUGE_PATH"`

	JWTSecret   string        `env:"JWT_SECRET,required=true"`
	TokenIssuer string        `env:"TOKEN_ISSUER,default=pairchat"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,default=24h"`

	EventBuffer     int           `env:"EVENT_BUFFER,default=256"`
	SessionBuffer   int           `env:"SESSION_BUFFER,default=64"`
	SinkTimeout     time.Duration `env:"SINK_TIMEOUT,default=5s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=3s"`
	HistoryLimit    int           `env:"HISTORY_LIMIT,default=50"`
	TimelineSize    int           `env:"TIMELINE_SIZE,default=500"`

	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=1m"`

	ModerationEnabled bool   `env:"MODERATION_ENABLED,default=true"`
	CharReplacement   string `env:"CHAR_REPLACEMENT,default=*"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) DebugAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.DebugPort)
}

// ReplacementRune returns the masking character for the moderator.
func (c Config) ReplacementRune() rune {
	for _, r := range c.CharReplacement {
		return r
	}
	return '*'
}
