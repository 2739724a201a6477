package stores

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/rpgjournals/credstore/internal/stores/migrations"
)

// Dialect names accepted by Migrate.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// MigrationState is the applied state of one embedded migration.
type MigrationState struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// providerUp is a seam for testing goose.Provider.Up.
var providerUp = func(ctx context.Context, p *goose.Provider) ([]*goose.MigrationResult, error) {
	return p.Up(ctx)
}

func gooseDialect(dialect string) (goose.Dialect, error) {
	switch dialect {
	case DialectPostgres, "pgx":
		return goose.DialectPostgres, nil
	case DialectSQLite, "sqlite":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", dialect)
	}
}

// newProvider builds a goose provider bound to db and the embedded schema.
// Each call owns its dialect and filesystem, so concurrent migrations of
// different databases do not share goose's package-level state.
func newProvider(db *sql.DB, dialect string) (*goose.Provider, error) {
	d, err := gooseDialect(dialect)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(d, db, migrations.Migrations,
		goose.WithDisableGlobalRegistry(true),
	)
}

// Migrate applies the embedded schema to db and logs every migration it
// runs. A nil logger discards the output.
func Migrate(ctx context.Context, db *sql.DB, dialect string, logger logrus.FieldLogger) error {
	p, err := newProvider(db, dialect)
	if err != nil {
		return err
	}

	results, err := providerUp(ctx, p)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger = orDiscard(logger)
	for _, r := range results {
		logger.WithFields(logrus.Fields{
			"migration": r.Source.Path,
			"version":   r.Source.Version,
			"duration":  r.Duration,
		}).Info("migration applied")
	}
	return nil
}

// MigrationStatus reports the state of each embedded migration in version
// order.
func MigrationStatus(ctx context.Context, db *sql.DB, dialect string) ([]MigrationState, error) {
	p, err := newProvider(db, dialect)
	if err != nil {
		return nil, err
	}

	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}

	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationState{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

func orDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	d := logrus.New()
	d.SetOutput(io.Discard)
	return d
}
