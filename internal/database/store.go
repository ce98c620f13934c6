package database

import (
	"context"
	"fmt"
	"path/filepath"

	"dexfolio/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Options struct {
	Backend     string
	DataDir     string
	PostgresURL string
	SQLitePath  string
}

// Store bundles the three collections the services persist.
type Store struct {
	Users      Collection[models.User]
	Portfolios Collection[models.Portfolio]
	Holdings   Collection[models.Holding]

	db *sqlx.DB
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func Open(ctx context.Context, opts Options, log *logrus.Logger) (*Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		log.Infof("using json file store in %s", opts.DataDir)
		return NewFileStore(opts.DataDir), nil
	case BackendMemory:
		log.Warn("using in-memory store, nothing will survive a restart")
		return NewMemoryStore(), nil
	case BackendPostgres:
		if opts.PostgresURL == "" {
			return nil, fmt.Errorf("POSTGRES_URL is required for the postgres store")
		}
		db, err := connect("postgres", opts.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("db connect failed: %w", err)
		}
		return NewSQLStore(ctx, db, log)
	case BackendSQLite:
		db, err := connect("sqlite", opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite open failed: %w", err)
		}
		return NewSQLStore(ctx, db, log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

func NewFileStore(dir string) *Store {
	return &Store{
		Users:      mapped[models.User, UserRow]{newJSONFile[UserRow](filepath.Join(dir, "users.json")), userToRow, userFromRow},
		Portfolios: mapped[models.Portfolio, PortfolioRow]{newJSONFile[PortfolioRow](filepath.Join(dir, "portfolios.json")), portfolioToRow, portfolioFromRow},
		Holdings:   mapped[models.Holding, HoldingRow]{newJSONFile[HoldingRow](filepath.Join(dir, "holdings.json")), holdingToRow, holdingFromRow},
	}
}

// NewSQLStore creates the tables if needed. The store owns db from here on.
func NewSQLStore(ctx context.Context, db *sqlx.DB, log *logrus.Logger) (*Store, error) {
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		Users:      mapped[models.User, UserRow]{newTable[UserRow](db, "users", userColumns, log), userToRow, userFromRow},
		Portfolios: mapped[models.Portfolio, PortfolioRow]{newTable[PortfolioRow](db, "portfolios", portfolioColumns, log), portfolioToRow, portfolioFromRow},
		Holdings:   mapped[models.Holding, HoldingRow]{newTable[HoldingRow](db, "holdings", holdingColumns, log), holdingToRow, holdingFromRow},
		db:         db,
	}, nil
}

// NewMemoryStore keeps domain values as they are, derived fields included.
func NewMemoryStore() *Store {
	return &Store{
		Users:      NewMemory[models.User](),
		Portfolios: NewMemory[models.Portfolio](),
		Holdings:   NewMemory[models.Holding](),
	}
}
