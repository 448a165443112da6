package database

import (
	"fmt"
	"log"
)

func NewDatabase(databaseType, connectionString string, caseSensitiveSearch bool) (database DatabaseService, err error) {
	var opts []SQLiteOption
	if !caseSensitiveSearch {
		opts = append(opts, WithCaseInsensitiveSearch())
	}

	switch databaseType {
	case "sqlite":
		database, err = NewSQLiteDatabase(connectionString, opts...)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}

	// Ensure database schema exists (idempotent), important for in-memory SQLite
	log.Print("initializing database schema (ensuring tables exist)")
	if _, err = database.CreateDatabase(); err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
