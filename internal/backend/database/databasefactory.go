package database

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeRedis    = "redis"
)

// SupportedTypes lists the accepted database types.
var SupportedTypes = []string{TypeSQLite, TypePostgres, TypeRedis}

// NewDatabase opens the store selected by databaseType and ensures its schema exists.
func NewDatabase(ctx context.Context, databaseType, connectionString string, options Options) (database RecordStore, err error) {
	switch databaseType {
	case TypeSQLite:
		database, err = NewSQLiteDatabase(connectionString, options)
	case TypePostgres:
		database, err = NewPostgresDatabase(ctx, connectionString, options)
	case TypeRedis:
		database, err = NewRedisDatabase(connectionString, options)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, err
	}

	// Ensure database schema exists (idempotent), important for in-memory SQLite
	slog.Info("initializing database schema (ensuring tables exist)", "type", databaseType)
	if err = database.CreateDatabase(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
