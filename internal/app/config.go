package app

import (
	"os"
	"slices"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (KART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Storage     StorageConfig
	Session     SessionConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// StorageConfig selects where session snapshots are persisted.
type StorageConfig struct {
	Backend  string `default:"memory" usage:"Snapshot backend: memory, file or postgres"`
	Dir      string `default:"data/sessions" usage:"Directory for the file backend"`
	Compress bool   `default:"false" usage:"Gzip snapshot files"`
}

// SessionConfig controls session identification and persistence.
type SessionConfig struct {
	Key          string        `default:"cart-storage" usage:"Storage identifier of the snapshot slot"`
	Cookie       string        `default:"kart_session" usage:"Session cookie name"`
	SecureCookie bool          `default:"false" usage:"Mark the session cookie Secure" flag:"secure-cookie"`
	TTL          time.Duration `default:"720h" usage:"Session cookie lifetime"`
	SaveTimeout  time.Duration `default:"5s" usage:"Timeout of a single snapshot write" flag:"save-timeout"`
	LoadTimeout  time.Duration `default:"5s" usage:"Timeout of a snapshot read at restore" flag:"load-timeout"`
	IdleTimeout  time.Duration `default:"30m" usage:"Drop in-memory sessions idle for this long" flag:"idle-timeout"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies); requires explicit origins" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from command-line args, environment
// variables and YAML config files, then validates it.
func LoadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KART",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.Dir == "" {
			return errors.New("storage dir is required for the file backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for the postgres backend: set KART_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Session.Key == "" {
		return errors.New("session key must not be empty")
	}
	if c.CORS.AllowCredentials && (len(c.CORS.Origins) == 0 || slices.Contains(c.CORS.Origins, "*")) {
		return errors.New("CORS credentials require explicit origins")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (DATABASE_URL, PORT) to the KART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
