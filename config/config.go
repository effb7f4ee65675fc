// Package config loads application settings from a .env file, environment
// variables and command-line flags.
// Flags win over environment variables, which win over .env file values.
package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// Server
	Debug       bool
	Port        string
	TLSDomains  []string
	CORSOrigins []string
	RateLimit   float64

	// Auth
	StoreTimeout time.Duration
	BcryptCost   int

	// Attachments – disabled when S3Bucket is empty.
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3PresignTTL time.Duration

	// MySQL – used only by cmd/migrate.
	MySQLDSN string
}

// Load reads configuration from a .env file (if present), environment
// variables and the given command-line arguments.
func Load(args []string) (*Config, error) {
	v := newViper()

	// Defaults
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "todo_app")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", ":3000")
	v.SetDefault("DEBUG", false)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT", 10)
	v.SetDefault("STORE_TIMEOUT", 5*time.Second)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PRESIGN_TTL", 15*time.Minute)

	// Connection flags keep the names of the original todo backend:
	// --port is the database port, the listen address is --addr.
	fs := pflag.NewFlagSet("todoapi", pflag.ContinueOnError)
	fs.String("user", "", "database user")
	fs.String("password", "", "database password")
	fs.String("host", "", "database host")
	fs.String("port", "", "database port")
	fs.String("database", "", "database name")
	fs.String("addr", "", "listen address, e.g. :3000")
	fs.Bool("debug", false, "debug mode")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	bindings := map[string]string{
		"DB_USER": "user",
		"DB_PASS": "password",
		"DB_HOST": "host",
		"DB_PORT": "port",
		"DB_NAME": "database",
		"PORT":    "addr",
		"DEBUG":   "debug",
	}
	for key, name := range bindings {
		// Only explicitly set flags override, so empty flag defaults
		// never shadow the environment.
		if f := fs.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: bind %s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:  v.GetString("DATABASE_URL"),
		DBUser:       v.GetString("DB_USER"),
		DBPass:       v.GetString("DB_PASS"),
		DBHost:       v.GetString("DB_HOST"),
		DBPort:       v.GetString("DB_PORT"),
		DBName:       v.GetString("DB_NAME"),
		DBSSLMode:    v.GetString("DB_SSLMODE"),
		Debug:        v.GetBool("DEBUG"),
		Port:         v.GetString("PORT"),
		TLSDomains:   splitTrimmed(v.GetString("TLS_DOMAINS")),
		CORSOrigins:  splitTrimmed(v.GetString("CORS_ORIGINS")),
		RateLimit:    v.GetFloat64("RATE_LIMIT"),
		StoreTimeout: v.GetDuration("STORE_TIMEOUT"),
		BcryptCost:   v.GetInt("BCRYPT_COST"),
		S3Bucket:     v.GetString("S3_BUCKET"),
		S3Region:     v.GetString("S3_REGION"),
		S3Endpoint:   v.GetString("S3_ENDPOINT"),
		S3AccessKey:  v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:  v.GetString("S3_SECRET_KEY"),
		S3PresignTTL: v.GetDuration("S3_PRESIGN_TTL"),
		MySQLDSN:     v.GetString("MYSQL_DSN"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// AttachmentsEnabled reports whether an S3 bucket is configured.
func (c *Config) AttachmentsEnabled() bool {
	return c.S3Bucket != ""
}

// RateBurst is the token bucket size for the login and register limiter.
func (c *Config) RateBurst() int {
	return int(math.Ceil(c.RateLimit))
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.DBPass == "" {
		return errors.New("config: DATABASE_URL or DB_PASS must be set")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("config: STORE_TIMEOUT must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST %d out of range [4, 31]", c.BcryptCost)
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("config: RATE_LIMIT %g must be at least 1 request per second", c.RateLimit)
	}
	if c.AttachmentsEnabled() && c.S3PresignTTL <= 0 {
		return errors.New("config: S3_PRESIGN_TTL must be positive")
	}
	return nil
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
