package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/todozap/api/internal/config"
)

var globalPostgresPool *pgxpool.Pool

func postgresURL(scheme string) string {
	cfg := config.Global().Postgres
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s?sslmode=%s",
		scheme, cfg.Username, cfg.Password, cfg.Host,
		cfg.Port, cfg.Database, cfg.SSLMode)
}

func MustConnectPostgres() {
	cfg := config.Global().Postgres

	poolCfg, err := pgxpool.ParseConfig(postgresURL("postgres"))
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to parse postgres config")
		panic(err)
	}
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	globalPostgresPool, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to connect to postgres")
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()

	err = globalPostgresPool.Ping(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to ping postgres")
		panic(err)
	}
	globalLogger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("connected to postgres")
}

func MustMigratePostgres() {
	cfg := config.Global().Postgres

	m, err := migrate.New("file://"+cfg.MigrationsPath, postgresURL("pgx5"))
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to create migrate instance")
		panic(err)
	}
	defer func() { _, _ = m.Close() }()

	err = m.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			globalLogger.Info().Msg("postgres schema is up to date")
			return
		}

		globalLogger.Error().
			Err(err).
			Msg("failed to run migrations")
		panic(err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to get migration version")
		panic(err)
	}
	globalLogger.Info().
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("applied migrations")
}

func DisconnectPostgres() {
	globalPostgresPool.Close()
	globalLogger.Info().Msg("disconnected from postgres")
}
