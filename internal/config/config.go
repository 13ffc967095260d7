package config

import "time"

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

var globalConfig *Config

func Global() *Config {
	return globalConfig
}

func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

type Config struct {
	Env      string `env:"ENV" env-required:"true"`
	HTTP     HTTPConfig
	Postgres PostgresConfig
	N8N      N8NConfig
	CORS     CORSConfig
}

type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type PostgresConfig struct {
	Host           string        `env:"POSTGRES_HOST" env-required:"true"`
	Port           int           `env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `env:"POSTGRES_USERNAME" env-required:"true"`
	Password       string        `env:"POSTGRES_PASSWORD" env-required:"true"`
	Database       string        `env:"POSTGRES_DATABASE" env-required:"true"`
	SSLMode        string        `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
	MigrationsPath string        `env:"POSTGRES_MIGRATIONS_PATH" env-default:"migrations"`
}

type N8NConfig struct {
	ChatWebhookURL      string        `env:"N8N_CHAT_WEBHOOK_URL"`
	WebhookURL          string        `env:"N8N_WEBHOOK_URL"`
	EvolutionWebhookURL string        `env:"N8N_EVOLUTION_WEBHOOK_URL"`
	APIKey              string        `env:"N8N_API_KEY"`
	Timeout             time.Duration `env:"N8N_TIMEOUT" env-default:"30s"`
}

// ChatURL returns the chat webhook URL, falling back to the generic
// webhook URL when the dedicated one is not configured.
func (c N8NConfig) ChatURL() string {
	if c.ChatWebhookURL != "" {
		return c.ChatWebhookURL
	}
	return c.WebhookURL
}

type CORSConfig struct {
	AllowOrigins []string `env:"CORS_ALLOW_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}
