package credstore

import "fmt"

// Driver identifiers supported by New.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// New creates a store based on the provided configuration. An empty
// driver selects the memory store.
func New(cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		var path string
		if cfg.File != nil {
			path = cfg.File.Path
		}
		return NewFile(path)
	case DriverRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis driver requires configuration")
		}
		return NewRedis(*cfg.Redis)
	case DriverSQLite:
		if cfg.SQLite == nil || cfg.SQLite.DSN == "" {
			return nil, fmt.Errorf("sqlite driver requires a DSN")
		}
		return OpenSQLite(cfg.SQLite.DSN)
	default:
		return nil, fmt.Errorf("unsupported credential store driver: %s", driver)
	}
}
