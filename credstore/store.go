// Package credstore provides the key-value persistence used to keep the
// OVH consumer key across process restarts.
//
// Four drivers are available: memory (process lifetime only), file (YAML
// document on disk), redis and sqlite. Use New to build one from Config.
package credstore

import (
	"context"
	"errors"
	"time"
)

// Store is a minimal string key-value capability.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("credstore: key not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("credstore: store is closed")
)

// Config describes the store selection parameters.
type Config struct {
	Driver string
	File   *FileConfig
	Redis  *RedisConfig
	SQLite *SQLiteConfig
}

// FileConfig configures the file driver.
type FileConfig struct {
	// Path of the YAML document. Defaults to DefaultFilePath().
	Path string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// Prefix is prepended to every key. Defaults to "ovhapi:".
	Prefix string

	// TTL expires stored values. Zero keeps them forever.
	TTL time.Duration
}

// SQLiteConfig provides the database location.
type SQLiteConfig struct {
	DSN string
}
