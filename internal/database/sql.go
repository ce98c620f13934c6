package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know about
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type positioned[R any] interface {
	*R
	setPosition(int)
}

func (r *UserRow) setPosition(i int)      { r.Position = i }
func (r *PortfolioRow) setPosition(i int) { r.Position = i }
func (r *HoldingRow) setPosition(i int)   { r.Position = i }

// table keeps a collection in one SQL table. ReplaceAll swaps the whole
// content inside a transaction; position preserves sequence order.
type table[R any, P positioned[R]] struct {
	db      *sqlx.DB
	name    string
	columns []string
	log     *logrus.Logger
}

func newTable[R any, P positioned[R]](db *sqlx.DB, name string, columns []string, log *logrus.Logger) *table[R, P] {
	return &table[R, P]{db: db, name: name, columns: columns, log: log}
}

func (t *table[R, P]) LoadAll(ctx context.Context) ([]R, error) {
	rows := []R{}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY position ASC", strings.Join(t.columns, ", "), t.name)
	if err := t.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("load %s: %w", t.name, err)
	}
	return rows, nil
}

func (t *table[R, P]) ReplaceAll(ctx context.Context, items []R) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", t.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
		return fmt.Errorf("clear %s: %w", t.name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)", t.name,
		strings.Join(t.columns, ", "), strings.Join(t.columns, ", :"))
	for i := range items {
		row := items[i]
		P(&row).setPosition(i)
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("insert into %s: %w", t.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", t.name, err)
	}
	t.log.Debugf("replaced %d rows in %s", len(items), t.name)
	return nil
}

var (
	userColumns      = []string{"position", "id", "username", "password_hash", "recovery_phrase", "created_at"}
	portfolioColumns = []string{"position", "id", "user_id", "total_value"}
	holdingColumns   = []string{"position", "id", "user_id", "token_address", "token_symbol", "token_name", "quantity", "average_price"}
)

// schema returns the DDL for a driver. Postgres keeps amounts as NUMERIC;
// SQLite gets TEXT so decimals are not coerced to floating point.
func schema(driver string) []string {
	num := "NUMERIC"
	if driver == "sqlite" {
		num = "TEXT"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			position INTEGER NOT NULL,
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			recovery_phrase TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS portfolios (
			position INTEGER NOT NULL,
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			total_value ` + num + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			position INTEGER NOT NULL,
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			token_address TEXT NOT NULL,
			token_symbol TEXT NOT NULL,
			token_name TEXT NOT NULL,
			quantity ` + num + ` NOT NULL,
			average_price ` + num + ` NOT NULL
		)`,
	}
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema(db.DriverName()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func connect(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if driver == "sqlite" {
		// one writer, and keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	return db, nil
}
