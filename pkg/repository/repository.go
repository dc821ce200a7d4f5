package repository

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/interfaces"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

// Repository is a Gateway that owns its connection and can be seeded
type Repository interface {
	interfaces.Gateway

	// Seed writes the records of s. Existing records with the same keys are replaced.
	Seed(ctx context.Context, s *Seed) error

	// Close releases the underlying connection
	Close() error
}

// New opens a repository described by dsn:
//
//	""                         in-memory
//	sqlite:<path>              SQLite file
//	postgres://...             PostgreSQL
//	firestore://<project>/<db> Cloud Firestore
func New(ctx context.Context, dsn string) (Repository, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemory(), nil

	case strings.HasPrefix(dsn, "sqlite:"):
		return NewSQL(ctx, DriverSQLite, strings.TrimPrefix(dsn, "sqlite:"))

	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewSQL(ctx, DriverPostgres, dsn)

	case strings.HasPrefix(dsn, "firestore://"):
		parts := strings.SplitN(strings.TrimPrefix(dsn, "firestore://"), "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, goerr.Wrap(model.ErrConfiguration, "firestore DSN must be firestore://<project>/<database>", goerr.V("dsn", dsn))
		}
		return NewFirestore(ctx, parts[0], parts[1])

	default:
		return nil, goerr.Wrap(model.ErrConfiguration, "unsupported database DSN", goerr.V("dsn", dsn))
	}
}
