package docstore

import (
	"context"
	"fmt"

	"github.com/alaga-care/care-service/internal/db"
)

const (
	DriverMemory    = "memory"
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
)

// Config selects and configures a Store driver.
type Config struct {
	Driver string

	FirestoreProject     string
	FirestoreCredentials string

	Postgres db.Config
}

// Open returns the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverFirestore:
		return NewFirestore(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials)
	case DriverPostgres:
		conn, err := db.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgres(ctx, conn, cfg.Postgres.DSN())
		if err != nil {
			conn.Close()
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown document store driver %q", cfg.Driver)
}
