package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5*time.Minute, cfg.Watcher.TickInterval)
	assert.Equal(t, 10*time.Second, cfg.Watcher.SelectorTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Watcher.DateSettle)
	assert.Equal(t, "Valencia", cfg.Watcher.DefaultLocation)
	assert.EqualValues(t, 5, cfg.Watcher.MaxDates)
	assert.EqualValues(t, 5, cfg.Browser.MaxPages)
	assert.False(t, cfg.PgSql.Enabled)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen.Addr())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LISTEN_PORT", "9090")
	t.Setenv("POSTGRES_ENABLED", "true")
	t.Setenv("POSTGRES_MAX_CONNS", "4")
	t.Setenv("WATCHER_TICK_INTERVAL", "90s")
	t.Setenv("WATCHER_PORTAL_RATE_LIMIT", "true")
	t.Setenv("BROWSER_FLAGS", "--no-sandbox,--headless=new")
	t.Setenv("WATCHER_STEP_SETTLE", "not-a-duration")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.EqualValues(t, 9090, cfg.Listen.Port)
	assert.True(t, cfg.PgSql.Enabled)
	assert.EqualValues(t, 4, cfg.PgSql.MaxConns)
	assert.EqualValues(t, 2, cfg.PgSql.MinConns)
	assert.Equal(t, 90*time.Second, cfg.Watcher.TickInterval)
	assert.True(t, cfg.Watcher.PortalRateLimit)
	assert.Equal(t, []string{"--no-sandbox", "--headless=new"}, cfg.Browser.Flags)
	// invalid values keep the default
	assert.Equal(t, 2*time.Second, cfg.Watcher.StepSettle)
}

func TestPgSqlConnStr(t *testing.T) {
	p := defaultPgSql()
	p.User = "cita"
	p.Password = "secret"

	assert.Equal(t, "host=localhost port=5432 user=cita password=secret database=cita_watcher sslmode=disable", p.ConnStr())
}
