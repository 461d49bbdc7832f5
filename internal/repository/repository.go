package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sydai_backend/internal/repository/migrations"
	"sydai_backend/pkg/logger"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrAlreadyCheckedIn    = errors.New("already checked in for this day")
	ErrReferralUnavailable = errors.New("referral code unknown or already used")
	ErrNegativeBalance     = errors.New("points balance cannot go negative")
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Repository struct {
	db     *sqlx.DB
	driver string
	sb     squirrel.StatementBuilderType
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

type Config struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"`
}

func New(cfg Config) (*Repository, error) {
	var (
		db          *sqlx.DB
		err         error
		placeholder squirrel.PlaceholderFormat
	)

	switch cfg.Driver {
	case DriverPostgres:
		db, err = sqlx.Connect("pgx", cfg.GetDatabaseURL())
		placeholder = squirrel.Dollar
	case DriverSQLite:
		db, err = sqlx.Connect("sqlite", cfg.GetSQLiteDSN())
		placeholder = squirrel.Question
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite has a single writer; one connection keeps transactions from tripping SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	err = db.Ping()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &Repository{
		db:     db,
		driver: cfg.Driver,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(placeholder),
	}

	if err := r.applyMigrations(context.Background(), migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Logger().Info("Connected to database successfully", zap.String("driver", cfg.Driver))

	return r, nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

func (c *Config) GetSQLiteDSN() string {
	path := c.Path
	if path == "" {
		path = "sydai.db"
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
