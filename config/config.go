// Package config loads client settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
//
// A minimal file:
//
//	endpoint: ovh-eu
//	application_key: 7kbG7Bk7S9Nt7ZSV
//	application_secret: EXEgWIz07P0HYwtQDs7cNIqCiQaWSuHF
//	storage:
//	  driver: file
//
// Recognized variables: OVH_ENDPOINT, OVH_APPLICATION_KEY,
// OVH_APPLICATION_SECRET, OVH_CONSUMER_KEY, OVH_STORAGE_DRIVER,
// OVH_STORAGE_PATH, OVH_REDIS_ADDR, OVH_SQLITE_DSN.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cmstar/go-errx"
	"github.com/joho/godotenv"
	"golang.org/x/net/http/httpguts"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/ovhapi/credstore"
	"github.com/vitalvas/ovhapi/ovh"
)

// Environment variables applied over the file.
const (
	EnvEndpoint          = "OVH_ENDPOINT"
	EnvApplicationKey    = "OVH_APPLICATION_KEY"
	EnvApplicationSecret = "OVH_APPLICATION_SECRET"
	EnvConsumerKey       = "OVH_CONSUMER_KEY"
	EnvStorageDriver     = "OVH_STORAGE_DRIVER"
	EnvStoragePath       = "OVH_STORAGE_PATH"
	EnvRedisAddr         = "OVH_REDIS_ADDR"
	EnvSQLiteDSN         = "OVH_SQLITE_DSN"
)

var (
	ErrMissingApplicationKey    = errors.New("config: application_key is required")
	ErrMissingApplicationSecret = errors.New("config: application_secret is required")
	ErrInvalidValue             = errors.New("config: invalid value")
)

// Config is the file layout.
type Config struct {
	Endpoint          string           `yaml:"endpoint"`
	ApplicationKey    string           `yaml:"application_key"`
	ApplicationSecret string           `yaml:"application_secret"`
	ConsumerKey       string           `yaml:"consumer_key"`
	AccessRules       []ovh.AccessRule `yaml:"access_rules"`
	Timeout           time.Duration    `yaml:"timeout"`
	Storage           Storage          `yaml:"storage"`
	Callback          Callback         `yaml:"callback"`
}

// Storage selects where the consumer key is kept.
type Storage struct {
	// Driver is one of memory, file, redis, sqlite. Defaults to file.
	Driver string       `yaml:"driver"`
	Path   string       `yaml:"path"`
	Redis  RedisStorage `yaml:"redis"`
	SQLite struct {
		DSN string `yaml:"dsn"`
	} `yaml:"sqlite"`
}

type RedisStorage struct {
	Addr     string        `yaml:"addr"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Callback configures the login callback server.
type Callback struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// Loader reads a Config.
type Loader struct {
	useDotEnv   bool
	dotEnvFiles []string
}

// NewLoader returns a loader reading ./.env.
func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles .env loading. files default to ".env".
func (l *Loader) WithDotEnv(enabled bool, files ...string) *Loader {
	l.useDotEnv = enabled
	l.dotEnvFiles = files
	return l
}

// Load reads path with the default loader.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Load reads the YAML file at path, when path is not empty, then applies
// the environment and validates the result. Variables from .env do not
// replace variables already set.
func (l *Loader) Load(path string) (*Config, error) {
	if l.useDotEnv {
		if err := godotenv.Load(l.dotEnvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errx.Wrap("config: load .env", err)
		}
	}

	cfg := &Config{}

	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return errx.Wrap("config: open "+path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return errx.Wrap("config: decode "+path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, name string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	set(&c.Endpoint, EnvEndpoint)
	set(&c.ApplicationKey, EnvApplicationKey)
	set(&c.ApplicationSecret, EnvApplicationSecret)
	set(&c.ConsumerKey, EnvConsumerKey)
	set(&c.Storage.Driver, EnvStorageDriver)
	set(&c.Storage.Path, EnvStoragePath)
	set(&c.Storage.Redis.Addr, EnvRedisAddr)
	set(&c.Storage.SQLite.DSN, EnvSQLiteDSN)
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = credstore.DriverFile
	}

	if c.Timeout <= 0 {
		c.Timeout = ovh.DefaultTimeout
	}
}

// Validate checks that the keys can be sent as header values and that
// the endpoint, rules and storage are usable.
func (c *Config) Validate() error {
	if c.ApplicationKey == "" {
		return ErrMissingApplicationKey
	}

	if c.ApplicationSecret == "" {
		return ErrMissingApplicationSecret
	}

	for name, v := range map[string]string{
		"application_key":    c.ApplicationKey,
		"application_secret": c.ApplicationSecret,
		"consumer_key":       c.ConsumerKey,
	} {
		if !httpguts.ValidHeaderFieldValue(v) || strings.TrimSpace(v) != v {
			return fmt.Errorf("%w: %s contains forbidden characters", ErrInvalidValue, name)
		}
	}

	if _, err := ovh.ResolveEndpoint(c.Endpoint); err != nil {
		return fmt.Errorf("%w: endpoint: %w", ErrInvalidValue, err)
	}

	for i, rule := range c.AccessRules {
		switch rule.Method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			return fmt.Errorf("%w: access_rules[%d].method %q", ErrInvalidValue, i, rule.Method)
		}

		if !strings.HasPrefix(rule.Path, "/") {
			return fmt.Errorf("%w: access_rules[%d].path %q", ErrInvalidValue, i, rule.Path)
		}
	}

	switch c.Storage.Driver {
	case credstore.DriverMemory, credstore.DriverFile:
	case credstore.DriverRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("%w: storage.redis.addr is required", ErrInvalidValue)
		}
	case credstore.DriverSQLite:
		if c.Storage.SQLite.DSN == "" {
			return fmt.Errorf("%w: storage.sqlite.dsn is required", ErrInvalidValue)
		}
	default:
		return fmt.Errorf("%w: storage.driver %q", ErrInvalidValue, c.Storage.Driver)
	}

	return nil
}

// StoreConfig returns the credstore settings.
func (c *Config) StoreConfig() credstore.Config {
	sc := credstore.Config{Driver: c.Storage.Driver}

	switch c.Storage.Driver {
	case credstore.DriverFile:
		sc.File = &credstore.FileConfig{Path: c.Storage.Path}
	case credstore.DriverRedis:
		r := c.Storage.Redis
		sc.Redis = &credstore.RedisConfig{
			Addr:     r.Addr,
			Username: r.Username,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      r.TTL,
		}
	case credstore.DriverSQLite:
		sc.SQLite = &credstore.SQLiteConfig{DSN: c.Storage.SQLite.DSN}
	}

	return sc
}

// ClientConfig returns the ovh.Config for these settings. Storage,
// navigator and logger are left to the caller.
func (c *Config) ClientConfig() ovh.Config {
	return ovh.Config{
		Endpoint:          c.Endpoint,
		ApplicationKey:    c.ApplicationKey,
		ApplicationSecret: c.ApplicationSecret,
		ConsumerKey:       c.ConsumerKey,
		AccessRules:       c.AccessRules,
		Timeout:           c.Timeout,
	}
}
