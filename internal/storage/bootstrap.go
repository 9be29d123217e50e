package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// EnsureDatabase creates the database named in dsn if it does not exist.
// It connects through adminDSN, which must point at an existing database
// (usually "postgres") with CREATEDB rights.
func EnsureDatabase(ctx context.Context, adminDSN, dsn string, logger *zap.Logger) error {
	name, err := databaseName(dsn)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return fmt.Errorf("failed to open admin connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping admin database: %w", err)
	}

	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check database %s: %w", name, err)
	}
	if exists {
		logger.Debug("database exists", zap.String("database", name))
		return nil
	}

	// CREATE DATABASE takes no parameters, so the name is quoted instead
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil // created concurrently
		}
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}

	logger.Info("database created", zap.String("database", name))
	return nil
}

// databaseName extracts the database from a URL-style DSN
func databaseName(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return "", fmt.Errorf("dsn must be a postgres:// url")
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("dsn has no database name")
	}
	return name, nil
}
