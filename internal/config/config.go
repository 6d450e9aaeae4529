package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	State     StateConfig     `mapstructure:"state"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Forms     FormsConfig     `mapstructure:"forms"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
	// TrustedProxies may set X-Forwarded-For; empty trusts none.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              string        `mapstructure:"db"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StateConfig struct {
	Backend string `mapstructure:"backend"` // "redis" | "memory"
}

type JWTConfig struct {
	SigningKey     string        `mapstructure:"signing_key"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type AuthConfig struct {
	CookieName   string          `mapstructure:"cookie_name"`
	CookieSecure bool            `mapstructure:"cookie_secure"`
	CookieDomain string          `mapstructure:"cookie_domain"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
	SeedUsers    []SeedUser      `mapstructure:"seed_users"`
}

// RateLimitConfig bounds login attempts per client IP and per account.
type RateLimitConfig struct {
	IPLimit     int           `mapstructure:"ip_limit"`
	IPWindow    time.Duration `mapstructure:"ip_window"`
	EmailLimit  int           `mapstructure:"email_limit"`
	EmailWindow time.Duration `mapstructure:"email_window"`
}

// FormsConfig bounds anonymous contact and career submissions per client IP.
type FormsConfig struct {
	IPLimit  int           `mapstructure:"ip_limit"`
	IPWindow time.Duration `mapstructure:"ip_window"`
}

// SeedUser is a demo account created at startup when missing.
type SeedUser struct {
	Email    string `mapstructure:"email"`
	Name     string `mapstructure:"name"`
	Password string `mapstructure:"password"`
	Role     string `mapstructure:"role"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DashboardConfig struct {
	StatsCacheTTL   time.Duration `mapstructure:"stats_cache_ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	PickupThreshold int           `mapstructure:"pickup_threshold"`
	FullestLimit    int           `mapstructure:"fullest_limit"`
}

type NotifyConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	To      string     `mapstructure:"to"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	FromEmail     string `mapstructure:"from_email"`
	FromName      string `mapstructure:"from_name"`
	UseSTARTTLS   bool   `mapstructure:"use_starttls"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads config.yaml, overlays environment variables, and returns Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	// Environment variable override: DATABASE_POSTGRES_HOST -> database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.graceful_shutdown_timeout", 10*time.Second)

	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.max_open_conns", 20)
	v.SetDefault("database.postgres.conn_max_lifetime", time.Hour)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("state.backend", "memory")

	v.SetDefault("jwt.issuer", "smartbin-portal")
	v.SetDefault("jwt.access_token_ttl", 8*time.Hour)

	v.SetDefault("auth.cookie_name", "smartbin_session")
	v.SetDefault("auth.rate_limit.ip_limit", 10)
	v.SetDefault("auth.rate_limit.ip_window", time.Minute)
	v.SetDefault("auth.rate_limit.email_limit", 5)
	v.SetDefault("auth.rate_limit.email_window", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("dashboard.stats_cache_ttl", 30*time.Second)
	v.SetDefault("dashboard.refresh_interval", time.Minute)
	v.SetDefault("dashboard.fetch_timeout", 10*time.Second)
	v.SetDefault("dashboard.pickup_threshold", 80)
	v.SetDefault("dashboard.fullest_limit", 5)

	v.SetDefault("notify.smtp.port", 587)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("forms.ip_limit", 5)
	v.SetDefault("forms.ip_window", 10*time.Minute)
}
