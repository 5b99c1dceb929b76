package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	bunrepo "github.com/goliatone/go-live-notifications/internal/storage/bun"
	"github.com/goliatone/go-live-notifications/internal/storage/memory"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

var errDSNRequired = errors.New("storage: dsn is required")

// Providers exposes all repositories needed by services.
type Providers struct {
	Inbox    store.InboxRepository
	Sessions store.SessionRepository
	// DB is set for bun-backed providers.
	DB *bun.DB
}

// Models lists the persisted records.
func Models() []any {
	return []any{
		(*domain.InboxItem)(nil),
		(*domain.SessionRecord)(nil),
	}
}

// NewMemoryProviders returns repositories backed by in-memory maps.
func NewMemoryProviders() Providers {
	return Providers{
		Inbox:    memory.NewInboxRepository(),
		Sessions: memory.NewSessionRepository(),
	}
}

// NewBunProviders wires Bun-backed repositories using go-repository-bun.
// The caller owns the *bun.DB lifecycle.
func NewBunProviders(db *bun.DB) Providers {
	if db == nil {
		panic("storage: bun DB is required")
	}

	// Register models so go-persistence-bun migrations can pick them up.
	persistence.RegisterModel(Models()...)

	return Providers{
		Inbox:    bunrepo.NewInboxRepository(db),
		Sessions: bunrepo.NewSessionRepository(db),
		DB:       db,
	}
}

// OpenSQLite opens a sqlite database and creates the tables for Models.
func OpenSQLite(ctx context.Context, dsn string) (*bun.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errDSNRequired
	}
	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := CreateTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateTables creates missing tables for Models.
func CreateTables(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table: %w", err)
		}
	}
	return nil
}
