package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "BILLING",
		SkipFlags: true,
		SkipFiles: true,
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("BILLING_DATABASE_URL", "postgres://billing@db/billing")
	t.Setenv("BILLING_STATIC_DIR", "/srv/static")
	t.Setenv("BILLING_GRACEFUL_SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "postgres://billing@db/billing", cfg.DatabaseURL)
	assert.Equal(t, "/srv/static", cfg.StaticDir)
	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, int64(8<<20), cfg.MaxUploadSize)
	assert.True(t, cfg.SeedCatalog)
	assert.Equal(t, 120, cfg.WriteLimit.Max)
	assert.Equal(t, time.Minute, cfg.WriteLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 30*time.Second, cfg.Graceful.ShutdownTimeout)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "5000")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr)
}

func TestLoadConfig_ExplicitAddrWins(t *testing.T) {
	t.Setenv("BILLING_DATABASE_URL", "postgres://billing@db/billing")
	t.Setenv("BILLING_ADDR", "127.0.0.1:9090")
	t.Setenv("PORT", "5000")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := loadConfig(testLoader())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}
