// Package config loads runtime configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/erazemk/vitrina/internal/validation"
)

type Config struct {
	Host           string `env:"HOST,             default=0.0.0.0"`
	Port           int    `env:"PORT,             default=3000" validate:"gte=1,lte=65535"`
	Env            string `env:"APP_ENV,          default=development"`
	DatabasePath   string `env:"DATABASE_PATH,    default=data/database.sqlite" validate:"required"`
	UploadsDir     string `env:"UPLOADS_DIR,      default=uploads" validate:"required"`
	PublicURL      string `env:"PUBLIC_URL"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES, default=10485760" validate:"gt=0"`
	BcryptCost     int    `env:"BCRYPT_COST,      default=10" validate:"gte=4,lte=31"`
	CORSOrigins    string `env:"CORS_ORIGINS,     default=*"`

	Session SessionConfig
	Admin   AdminConfig
	Log     LogConfig
}

type SessionConfig struct {
	Secret        string        `env:"SESSION_SECRET"`
	Backend       string        `env:"SESSION_BACKEND,        default=file" validate:"oneof=file memory"`
	Dir           string        `env:"SESSION_DIR,            default=data/sessions"`
	TTL           time.Duration `env:"SESSION_TTL,            default=24h" validate:"gt=0"`
	Cookie        string        `env:"SESSION_COOKIE,         default=vitrina_session" validate:"required"`
	Secure        bool          `env:"SESSION_SECURE,         default=false"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL, default=1h" validate:"gt=0"`
}

type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME, default=admin" validate:"required"`
	Email    string `env:"ADMIN_EMAIL,    default=admin@esparfumerie.com" validate:"required,email"`
	Password string `env:"ADMIN_PASSWORD, default=admin123" validate:"required"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,  default=info"`
	Pretty bool   `env:"LOG_PRETTY, default=false"`
	File   string `env:"LOG_FILE"`
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file. A missing envFile is ignored.
func Load(ctx context.Context, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that envconfig cannot express.
func (c *Config) Validate() error {
	if err := validation.New().Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SetAddr overrides host and port from a host:port string such as ":8080".
func (c *Config) SetAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parsing listen address: %w", err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	c.Host = host
	c.Port = p
	return nil
}

// IsDevelopment reports whether error details may be shown to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Origins returns the allowed CORS origins.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
