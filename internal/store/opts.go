package store

import (
	"log/slog"
	"strings"
)

// Opts holds configuration for store backends.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite or a
	// postgres:// URL / key=value string for PostgreSQL.
	DSN string
	// Driver forces a backend ("sqlite3" or "postgres"); when empty the
	// backend is detected from the DSN.
	Driver string
}

// Option configures store creation.
type Option func(*Opts)

// WithSQLiteDSN configures an SQLite store at the given file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn; o.Driver = "sqlite3" }
}

// WithPostgresDSN configures a PostgreSQL store with the given DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn; o.Driver = "postgres" }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite" based on its shape.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// NewStore creates a store backend from the provided options. With no DSN an
// in-memory store is returned, suitable for tests and local development.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Debug("store.NewStore: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	case cfg.Driver == "postgres" || (cfg.Driver == "" && DetectDSNType(cfg.DSN) == "postgres"):
		slog.Debug("store.NewStore: creating Postgres store", "dsn_set", true)
		return NewPostgresStore(opts...)
	default:
		slog.Debug("store.NewStore: creating SQLite store", "db_path", cfg.DSN)
		return NewSQLiteStore(opts...)
	}
}
