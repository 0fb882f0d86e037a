package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration, loaded from environment variables.
type Config struct {
	MongoURI  string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB   string `env:"MONGO_DB" envDefault:"dugout"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	HTTPPort  string `env:"HTTP_PORT" envDefault:"8080"`

	// SessionTTL is how long a shared session (and its join code) stays
	// joinable after creation.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`

	// CreateTimeout bounds the create-session path; the store call has
	// no timeout of its own and a stalled network must not hang the
	// caller forever.
	CreateTimeout time.Duration `env:"CREATE_TIMEOUT" envDefault:"20s"`

	// CodeDigits and CodeMaxAttempts tune the join-code allocator.
	CodeDigits      int `env:"CODE_DIGITS" envDefault:"6"`
	CodeMaxAttempts int `env:"CODE_MAX_ATTEMPTS" envDefault:"10"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
