package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Backend selects where meme and template records live.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Config holds the service configuration. Values are read from
// environment variables prefixed with MEME_, e.g. MEME_HTTP_PORT.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int         `envconfig:"HTTP_PORT" default:"8080"`

	Backend       string `envconfig:"BACKEND" default:"memory"`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"memesdb"`

	NATSEnabled bool   `envconfig:"NATS_ENABLED" default:"false"`
	NATSUrl     string `envconfig:"NATS_URL" default:"nats://localhost:4222"`

	// ConnectTimeout bounds the retries spent reaching Mongo and NATS at startup.
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"30s"`

	SimulateLatency bool `envconfig:"SIMULATE_LATENCY" default:"false"`

	LibraryPath string `envconfig:"LIBRARY_PATH" default:"data/library.db"`

	// Template import. A zero TemplateRefresh disables periodic refresh.
	TemplateRefresh time.Duration `envconfig:"TEMPLATE_REFRESH" default:"0s"`
	ImgflipURL      string        `envconfig:"IMGFLIP_URL" default:"https://api.imgflip.com/get_memes"`
	RedditURL       string        `envconfig:"REDDIT_URL" default:"https://www.reddit.com/r/memes/top.json?limit=20&t=day"`

	// Media host settings.
	Platform        string `envconfig:"PLATFORM" default:"mp-weixin"`
	MediaDir        string `envconfig:"MEDIA_DIR" default:"data/media"`
	AlbumDir        string `envconfig:"ALBUM_DIR" default:"data/album"`
	WeChatWebhook   string `envconfig:"WECHAT_WEBHOOK" default:""`
	DingTalkWebhook string `envconfig:"DINGTALK_WEBHOOK" default:""`
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendMongo:
	default:
		return fmt.Errorf("unsupported BACKEND: %s", c.Backend)
	}
	switch c.Platform {
	case "mp-weixin", "mp-alipay", "h5":
	default:
		return fmt.Errorf("unsupported PLATFORM: %s", c.Platform)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	return nil
}

// New parses the environment into a Config.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("MEME", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("backend", cfg.Backend).
		Int("port", cfg.HTTPPort).
		Bool("nats_enabled", cfg.NATSEnabled).
		Bool("simulate_latency", cfg.SimulateLatency).
		Str("platform", cfg.Platform).
		Str("library_path", cfg.LibraryPath).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting returns a config that needs no external services.
func NewForTesting() *Config {
	return &Config{
		Environment:    EnvTesting,
		LogLevel:       "debug",
		HTTPPort:       8080,
		Backend:        BackendMemory,
		MongoDatabase:  "memesdb_test",
		ConnectTimeout: time.Second,
		Platform:       "mp-weixin",
	}
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP listen address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
