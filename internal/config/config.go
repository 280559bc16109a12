package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config carries everything the SDK's default wiring reads from the
// environment. Embedding applications that construct the stages directly do
// not need it.
type Config struct {
	AuthBaseURL  string        `env:"AUTH_BASE_URL" envDefault:"https://auth.iblai.app"`
	APIBaseURL   string        `env:"API_BASE_URL" envDefault:"https://api.iblai.app"`
	TokenURL     string        `env:"TOKEN_URL"`
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	ParentDomain string        `env:"PARENT_DOMAIN"`
	AppDomain    string        `env:"APP_DOMAIN"`
	MainTenant   string        `env:"MAIN_TENANT" envDefault:"main"`
	PollInterval time.Duration `env:"SYNC_POLL_INTERVAL" envDefault:"2s"`
	CookieTTL    time.Duration `env:"COOKIE_TTL" envDefault:"8760h"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "[Load] parsing environment")
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = cfg.AuthBaseURL + "/oauth2/token"
	}
	return cfg, nil
}
