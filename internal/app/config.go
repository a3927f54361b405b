package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the server configuration, loadable from environment variables
// (BILLING_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (BILLING_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	StaticDir     string `default:"static" usage:"Directory served under /static, uploads go to its uploads subdirectory" flag:"static-dir"`
	MaxUploadSize int64  `default:"8388608" usage:"Maximum product form size in bytes" flag:"max-upload-size"`
	SeedCatalog   bool   `default:"true" usage:"Insert sample products into an empty catalog on start" flag:"seed-catalog"`
	WriteLimit    WriteLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// WriteLimitConfig throttles POST, PUT and DELETE requests per client.
type WriteLimitConfig struct {
	Max    int           `default:"120" usage:"Writes allowed per window and route, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Write limit window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from flags, environment variables and YAML
// config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "BILLING",
		Files:     []string{"config.yaml", "/etc/billing/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set BILLING_DATABASE_URL or DATABASE_URL")
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, errors.Errorf("max upload size must be positive, got %d", cfg.MaxUploadSize)
	}
	return &cfg, nil
}

// applyPlatformDefaults honors the DATABASE_URL and PORT variables set by
// hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
