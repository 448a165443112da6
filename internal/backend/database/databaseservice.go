package database

import (
	"database/sql"
	"errors"
)

// ErrStore marks failures of the underlying relational store (connectivity,
// constraint violations). Callers should treat these as retryable on their side.
var ErrStore = errors.New("metadata store failure")

type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// CreateImage inserts a new record and returns the store-assigned id.
	// Ids are monotonically increasing and never reused.
	CreateImage(tags string) (int64, error)
	GetAllImages() ([]*ImageRecord, error)
	SearchImages(substring string) ([]*ImageRecord, error)
	CountImages() (int64, error)
}
