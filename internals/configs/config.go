package configs

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and shared read-only.
type Config struct {
	Env  string
	Port string

	Database DatabaseConfig
	JWT      JWTConfig
	GLPI     GLPIConfig
	Session  SessionConfig
	Redis    RedisConfig

	CORSAllowOrigins  []string
	AutoMigrate       bool
	SeedOnStart       bool
	SeedAdminPassword string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a URL assembled from the parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode + "&application_name=loginuv",
	}
	return u.String()
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type GLPIConfig struct {
	BaseURL      string
	AppToken     string
	UserToken    string
	Timeout      time.Duration
	VerifySSL    bool
	RunTimeout   time.Duration
	SyncInterval time.Duration
}

// Configured reports whether every credential needed to open a GLPI session is present.
func (g GLPIConfig) Configured() bool {
	return g.BaseURL != "" && g.AppToken != "" && g.UserToken != ""
}

type SessionConfig struct {
	// Timeout closes active sessions whose machine stopped reporting. Zero disables the sweep.
	Timeout       time.Duration
	SweepInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// =======================
// ENV LOADER
// =======================

// LoadEnv reads .env (when present) and builds the process configuration.
func LoadEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] .env not found, using process environment")
	} else {
		log.Println("[CONFIG] .env loaded")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary key lookup.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	r := envReader{lookup: lookup}

	cfg := &Config{
		Env:  r.str("APP_ENV", "dev"),
		Port: r.str("PORT", "8000"),
		Database: DatabaseConfig{
			URL:      r.str("DATABASE_URL", ""),
			Host:     r.str("DB_HOST", "localhost"),
			Port:     r.str("DB_PORT", "5432"),
			User:     r.str("DB_USER", "postgres"),
			Password: r.str("DB_PASSWORD", ""),
			Name:     r.str("DB_NAME", "loginuv"),
			SSLMode:  r.str("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:    r.str("JWT_SECRET", ""),
			ExpiresIn: r.seconds("JWT_EXPIRES_IN_SECONDS", 900),
		},
		GLPI: GLPIConfig{
			BaseURL:      strings.TrimRight(r.str("GLPI_BASE_URL", ""), "/"),
			AppToken:     r.str("GLPI_APP_TOKEN", ""),
			UserToken:    r.str("GLPI_USER_TOKEN", ""),
			Timeout:      r.seconds("GLPI_TIMEOUT_SECONDS", 20),
			VerifySSL:    r.boolean("GLPI_VERIFY_SSL", true),
			RunTimeout:   r.seconds("GLPI_RUN_TIMEOUT_SECONDS", 0),
			SyncInterval: time.Duration(r.integer("GLPI_SYNC_INTERVAL_MINUTES", 0)) * time.Minute,
		},
		Session: SessionConfig{
			Timeout:       r.seconds("SESSION_TIMEOUT_SECONDS", 0),
			SweepInterval: r.seconds("SESSION_SWEEP_INTERVAL_SECONDS", 60),
		},
		Redis: RedisConfig{
			Addr:     r.str("REDIS_ADDR", ""),
			Password: r.str("REDIS_PASSWORD", ""),
			DB:       r.integer("REDIS_DB", 0),
		},
		CORSAllowOrigins:  r.list("CORS_ALLOW_ORIGINS", []string{"http://localhost:5173"}),
		AutoMigrate:       r.boolean("DB_AUTO_MIGRATE", true),
		SeedOnStart:       r.boolean("SEED_ON_START", false),
		SeedAdminPassword: r.str("SEED_ADMIN_PASSWORD", "Admin123*"),
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(r.errs, "; "))
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("invalid configuration: JWT_SECRET is required")
	}
	if cfg.JWT.ExpiresIn <= 0 {
		return nil, fmt.Errorf("invalid configuration: JWT_EXPIRES_IN_SECONDS must be positive")
	}
	if cfg.GLPI.Timeout <= 0 {
		return nil, fmt.Errorf("invalid configuration: GLPI_TIMEOUT_SECONDS must be positive")
	}
	if cfg.Session.Timeout > 0 && cfg.Session.SweepInterval <= 0 {
		return nil, fmt.Errorf("invalid configuration: SESSION_SWEEP_INTERVAL_SECONDS must be positive")
	}
	return cfg, nil
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (r *envReader) str(key, def string) string {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func (r *envReader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		r.errs = append(r.errs, fmt.Sprintf("%s=%q is not a non-negative integer", key, v))
		return def
	}
	return n
}

func (r *envReader) seconds(key string, def int) time.Duration {
	return time.Duration(r.integer(key, def)) * time.Second
}

func (r *envReader) boolean(key string, def bool) bool {
	v := strings.ToLower(r.str(key, ""))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	r.errs = append(r.errs, fmt.Sprintf("%s=%q is not a boolean", key, v))
	return def
}

func (r *envReader) list(key string, def []string) []string {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
