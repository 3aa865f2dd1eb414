package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func loadEnvString(key string, result *string) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	*result = s
}

func loadEnvUint(key string, result *uint) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return
	}
	*result = uint(n)
}

func loadEnvBool(key string, result *bool) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Warn().Str("key", key).Str("value", s).Msg("Ignoring invalid boolean")
		return
	}
	*result = b
}

// loadEnvDuration accepts Go duration strings ("90s", "5m").
func loadEnvDuration(key string, result *time.Duration) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warn().Str("key", key).Str("value", s).Msg("Ignoring invalid duration")
		return
	}
	*result = d
}

/* Configuration */

/* PgSQL Configuration */
type pgSqlConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Database string `json:"database"`
	SslMode  string `json:"ssl_mode"`
	User     string `json:"user"`
	Password string `json:"password"`
	MaxConns uint   `json:"max_conns"`
	MinConns uint   `json:"min_conns"`
}

func (p pgSqlConfig) ConnStr() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s", p.Host, p.Port, p.User, p.Password, p.Database, p.SslMode)
}

func defaultPgSql() pgSqlConfig {
	return pgSqlConfig{
		Enabled:  false,
		Host:     "localhost",
		Port:     5432,
		Database: "cita_watcher",
		User:     "",
		Password: "",
		SslMode:  "disable",
		MaxConns: 10,
		MinConns: 2,
	}
}

func (p *pgSqlConfig) loadFromEnv() {
	loadEnvBool("POSTGRES_ENABLED", &p.Enabled)
	loadEnvString("POSTGRES_HOST", &p.Host)
	loadEnvUint("POSTGRES_PORT", &p.Port)
	loadEnvString("POSTGRES_DB_NAME", &p.Database)
	loadEnvString("POSTGRES_SSLMODE", &p.SslMode)
	loadEnvString("POSTGRES_USERNAME", &p.User)
	loadEnvString("POSTGRES_PASSWORD", &p.Password)
	loadEnvUint("POSTGRES_MAX_CONNS", &p.MaxConns)
	loadEnvUint("POSTGRES_MIN_CONNS", &p.MinConns)
}

/* Listen Configuration */

type listenConfig struct {
	Host string `json:"host"`
	Port uint   `json:"port"`
}

func (l listenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

func defaultListenConfig() listenConfig {
	return listenConfig{
		Host: "127.0.0.1",
		Port: 8080,
	}
}

func (l *listenConfig) loadFromEnv() {
	loadEnvString("LISTEN_HOST", &l.Host)
	loadEnvUint("LISTEN_PORT", &l.Port)
}

type natsConfig struct {
	Enabled  bool
	Host     string
	Port     uint
	Username string
	Password string
	Stream   string
}

func (c *natsConfig) loadFromEnv() {
	loadEnvBool("NATS_ENABLED", &c.Enabled)
	c.Host = getEnv("NATS_HOST", c.Host)

	if portStr := getEnv("NATS_PORT", ""); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Port = uint(port)
		}
	}

	c.Username = getEnv("NATS_USER", "")
	c.Password = getEnv("NATS_PASSWORD", "")
	loadEnvString("NATS_NOTIFICATION_STREAM", &c.Stream)
}

func (c *natsConfig) URL() string {
	return fmt.Sprintf("nats://%s:%d", c.Host, c.Port)
}

func defaultNatsConfig() natsConfig {
	return natsConfig{
		Enabled:  false,
		Host:     "localhost",
		Port:     4222,
		Username: "",
		Password: "",
		Stream:   "CITA_NOTIFICATIONS",
	}
}

type securityConfig struct {
	BackendApiKey string
}

func (s *securityConfig) loadFromEnv() {
	s.BackendApiKey = getEnv("BACKEND_API_KEY", "")
}

func defaultSecurityConfig() securityConfig {
	return securityConfig{
		BackendApiKey: "",
	}
}

type redisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

func (r *redisConfig) loadFromEnv() {
	loadEnvBool("REDIS_ENABLED", &r.Enabled)
	loadEnvString("REDIS_HOST", &r.Host)
	loadEnvUint("REDIS_PORT", &r.Port)
	loadEnvString("REDIS_PASSWORD", &r.Password)

	if dbStr := getEnv("REDIS_DB", "0"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
	log.Info().Interface("redis", r).Msg("Redis config loaded")
}

func (r redisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func defaultRedisConfig() redisConfig {
	return redisConfig{
		Enabled:  false,
		Host:     "localhost",
		Port:     6379,
		Password: "",
		DB:       0,
	}
}

type GCSConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsFile string
	Bucket          string
}

func (g *GCSConfig) loadFromEnv() {
	loadEnvBool("GCS_ENABLED", &g.Enabled)
	g.ProjectID = getEnv("GCS_PROJECT_ID", "")
	g.CredentialsFile = getEnv("GCS_CREDENTIALS_FILE", "")
	g.Bucket = getEnv("GCS_STORAGE_BUCKET", "")
}

func defaultGcsConfig() GCSConfig {
	return GCSConfig{
		Enabled:         false,
		ProjectID:       "",
		CredentialsFile: "",
		Bucket:          "",
	}
}

// BrowserConfig controls the shared headless Chromium process.
type BrowserConfig struct {
	Headless bool
	Bin      string
	Flags    []string
	MaxPages uint
}

func (b *BrowserConfig) loadFromEnv() {
	loadEnvBool("BROWSER_HEADLESS", &b.Headless)
	loadEnvString("BROWSER_BIN", &b.Bin)
	loadEnvUint("BROWSER_MAX_PAGES", &b.MaxPages)
	if flags := getEnv("BROWSER_FLAGS", ""); flags != "" {
		b.Flags = strings.Split(flags, ",")
	}
}

func defaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless: true,
		Flags:    []string{"--no-sandbox", "--disable-setuid-sandbox", "--disable-dev-shm-usage", "--disable-gpu"},
		MaxPages: 5,
	}
}

// WatcherConfig holds scheduler timings. Settle delays give client-side
// rendering on the portals time to catch up and must stay above zero in
// production.
type WatcherConfig struct {
	TickInterval     time.Duration
	StepSettle       time.Duration
	DateSettle       time.Duration
	SelectorTimeout  time.Duration
	CheckTimeout     time.Duration
	MaxDates         uint
	UserAgent        string
	DefaultLocation  string
	PortalsFile      string
	PortalRateLimit  bool
	CaptureSnapshots bool
}

func (w *WatcherConfig) loadFromEnv() {
	loadEnvDuration("WATCHER_TICK_INTERVAL", &w.TickInterval)
	loadEnvDuration("WATCHER_STEP_SETTLE", &w.StepSettle)
	loadEnvDuration("WATCHER_DATE_SETTLE", &w.DateSettle)
	loadEnvDuration("WATCHER_SELECTOR_TIMEOUT", &w.SelectorTimeout)
	loadEnvDuration("WATCHER_CHECK_TIMEOUT", &w.CheckTimeout)
	loadEnvUint("WATCHER_MAX_DATES", &w.MaxDates)
	loadEnvString("WATCHER_USER_AGENT", &w.UserAgent)
	loadEnvString("WATCHER_DEFAULT_LOCATION", &w.DefaultLocation)
	loadEnvString("WATCHER_PORTALS_FILE", &w.PortalsFile)
	loadEnvBool("WATCHER_PORTAL_RATE_LIMIT", &w.PortalRateLimit)
	loadEnvBool("WATCHER_CAPTURE_SNAPSHOTS", &w.CaptureSnapshots)
}

func defaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		TickInterval:     5 * time.Minute,
		StepSettle:       2 * time.Second,
		DateSettle:       1500 * time.Millisecond,
		SelectorTimeout:  10 * time.Second,
		CheckTimeout:     3 * time.Minute,
		MaxDates:         5,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		DefaultLocation:  "Valencia",
		CaptureSnapshots: true,
	}
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func (l *LogConfig) loadFromEnv() {
	loadEnvString("LOG_LEVEL", &l.Level)
	loadEnvBool("LOG_PRETTY", &l.Pretty)
}

func defaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Pretty: false,
	}
}

type Config struct {
	Listen   listenConfig
	PgSql    pgSqlConfig
	Security securityConfig
	Nats     natsConfig
	Redis    redisConfig
	GCS      GCSConfig
	Browser  BrowserConfig
	Watcher  WatcherConfig
	Log      LogConfig
}

func (c *Config) LoadFromEnv() {
	c.Listen.loadFromEnv()
	c.PgSql.loadFromEnv()
	c.Security.loadFromEnv()
	c.Nats.loadFromEnv()
	c.Redis.loadFromEnv()
	c.GCS.loadFromEnv()
	c.Browser.loadFromEnv()
	c.Watcher.loadFromEnv()
	c.Log.loadFromEnv()
}

func DefaultConfig() Config {
	return Config{
		Listen:   defaultListenConfig(),
		PgSql:    defaultPgSql(),
		Security: defaultSecurityConfig(),
		Nats:     defaultNatsConfig(),
		Redis:    defaultRedisConfig(),
		GCS:      defaultGcsConfig(),
		Browser:  defaultBrowserConfig(),
		Watcher:  defaultWatcherConfig(),
		Log:      defaultLogConfig(),
	}
}
