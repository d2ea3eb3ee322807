package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		// Port the HTTP API listens on
		Port string `env:"SERVER_PORT" envDefault:"5250"`

		// Allowed CORS origins, comma separated. "*" allows any origin.
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	}

	// Database configuration
	Database struct {
		// Path to the SQLite database file
		Path string `env:"DATABASE_PATH" envDefault:"database/presale.db"`
	}

	// Stats cache configuration
	Stats struct {
		// How long a computed district aggregate stays servable without recompute (in hours)
		CacheTTLHours int `env:"CACHE_TTL_HOURS" envDefault:"24"`

		// Cron expression for the scheduled cache re-warm
		RefreshCron string `env:"STATS_REFRESH_CRON" envDefault:"0 3 * * *"`

		// Whether the scheduled re-warm runs at all
		RefreshEnabled bool `env:"STATS_REFRESH_ENABLED" envDefault:"true"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
