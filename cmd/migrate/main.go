// cmd/migrate/main.go
// Imports users and todos from a legacy MySQL todo database into PostgreSQL.
// Password hashes are copied as-is; session tokens are not, so every
// imported user has to log in again.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/todo_app?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"

	"github.com/padraicbc/todoapi/config"
	bundb "github.com/padraicbc/todoapi/db"
	"github.com/padraicbc/todoapi/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/todo_app?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	// --- PostgreSQL ---
	pgDB, err := bundb.Setup(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pgDB.Close()
	log.Println("connected to PostgreSQL")

	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"userdb", func() (int, error) { return migrateUsers(ctx, myDB, pgDB) }},
		{"todo", func() (int, error) { return migrateTasks(ctx, myDB, pgDB) }},
	}

	for _, s := range steps {
		n, err := s.fn()
		if err != nil {
			log.Fatalf("migrate %s: %v", s.name, err)
		}
		log.Printf("%-8s  %d rows migrated", s.name, n)
	}

	resetSequences(ctx, pgDB)
	log.Println("migration complete")
}

// bulkInsert inserts a batch, skipping rows that already exist (idempotent re-runs).
func bulkInsert[T any](ctx context.Context, pgDB *bun.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := pgDB.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

// copyRows streams query results from MySQL into PostgreSQL in batches.
func copyRows[T any](ctx context.Context, myDB *sql.DB, pgDB *bun.DB, query string, scan func(*sql.Rows, *T) error) (int, error) {
	rows, err := myDB.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []T
	total := 0
	for rows.Next() {
		var r T
		if err := scan(rows, &r); err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := bulkInsert(ctx, pgDB, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	if err := bulkInsert(ctx, pgDB, batch); err != nil {
		return total, err
	}
	return total + len(batch), nil
}

func migrateUsers(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT id, username, password_hash FROM userdb",
		func(rows *sql.Rows, u *models.User) error {
			if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
				return err
			}
			if strings.Contains(u.Username, ":") {
				log.Printf("userdb: username %q contains ':' and cannot log in", u.Username)
			}
			return nil
		})
}

func migrateTasks(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT id, title, assignee, done, image_key FROM todo",
		func(rows *sql.Rows, t *models.Task) error {
			var key sql.NullString
			if err := rows.Scan(&t.ID, &t.Title, &t.Assignee, &t.Done, &key); err != nil {
				return err
			}
			if key.Valid && key.String != "" {
				t.ImageKey = &key.String
			}
			return nil
		})
}

// resetSequences moves each serial past the imported ids.
func resetSequences(ctx context.Context, pgDB *bun.DB) {
	for _, table := range []string{"userdb", "todo"} {
		q := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 1))",
			table, table,
		)
		if _, err := pgDB.ExecContext(ctx, q); err != nil {
			log.Printf("reset sequence %s: %v", table, err)
		}
	}
}
