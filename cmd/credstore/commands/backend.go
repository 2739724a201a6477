package commands

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rpgjournals/credstore"
)

func newBackendCommand(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "backend",
		Args:  cobra.NoArgs,
		Short: "Show which backend the store selects and ping it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			engine, closeFn, err := a.buildEngine(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			caps := engine.Store().Capabilities()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend=%s durable=%t shared=%t\n", caps.Backend, caps.Durable, caps.Shared)

			if err := engine.Store().Ping(ctx); err != nil {
				fmt.Fprintln(out, "ping=failed")
				return err
			}
			fmt.Fprintln(out, "ping=ok")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "connect and ping timeout")
	return cmd
}

// buildEngine wires whichever backends are configured. The returned close
// function releases the engine and every connection opened for it.
func (a *app) buildEngine(ctx context.Context) (*credstore.Engine, func(), error) {
	b := credstore.New().
		WithConfig(a.settings.Store).
		WithLogger(a.logger)

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if a.settings.Redis.Addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{a.settings.Redis.Addr},
		})
		closers = append(closers, func() { _ = client.Close() })
		b = b.WithRedis(client)
	}

	if a.settings.Database.DSN != "" {
		db, _, err := a.openDB(ctx)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		b = b.WithDB(db)
	}

	engine, err := b.Build()
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, engine.Close)
	return engine, closeAll, nil
}

// openDB opens and pings the configured database, returning it along with
// its migration dialect.
func (a *app) openDB(ctx context.Context) (*sql.DB, string, error) {
	dbCfg := a.settings.Database
	if dbCfg.DSN == "" {
		return nil, "", fmt.Errorf("database.dsn is not set")
	}
	dialect, err := dbCfg.Dialect()
	if err != nil {
		return nil, "", err
	}

	driver := "pgx"
	if dialect == "sqlite3" {
		driver = "sqlite3"
	}

	db, err := sql.Open(driver, dbCfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping %s: %w", driver, err)
	}

	a.logger.WithField("driver", driver).Debug("database connected")
	return db, dialect, nil
}
