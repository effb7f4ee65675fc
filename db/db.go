package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/padraicbc/todoapi/config"
	"github.com/padraicbc/todoapi/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	return Open(ctx, cfg.PostgresDSN(), cfg.Debug)
}

// Open connects to dsn and verifies the connection with a ping.
// The returned *bun.DB owns a connection pool shared by all callers.
func Open(ctx context.Context, dsn string, debug bool) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetMaxOpenConns(20)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)
	db := bun.NewDB(sqldb, pgdialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return db, nil
}

// CreateTables creates all tables and indexes if they are missing.
func CreateTables(ctx context.Context, db bun.IDB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Task)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	_, err := db.NewCreateIndex().
		Model((*models.Task)(nil)).
		Index("todo_assignee_idx").
		Column("assignee").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("creating todo_assignee_idx: %w", err)
	}

	return nil
}
