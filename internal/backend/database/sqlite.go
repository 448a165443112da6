package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
	caseSensitive    bool
}

type SQLiteOption func(*SQLiteDatabase)

// WithCaseInsensitiveSearch switches tag search to ASCII case-insensitive
// matching. The default is case-sensitive substring matching.
func WithCaseInsensitiveSearch() SQLiteOption {
	return func(s *SQLiteDatabase) {
		s.caseSensitive = false
	}
}

func NewSQLiteDatabase(connectionString string, opts ...SQLiteOption) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStore, connectionString, err)
	}

	// Every pooled connection to :memory: would get its own database.
	if strings.Contains(connectionString, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	service := &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
		caseSensitive:    true,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	// AUTOINCREMENT keeps ids monotonically increasing and never reused,
	// which the blob store's conflict guard relies on.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tags TEXT NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("%w: create schema: %v", ErrStore, err)
	}

	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) CreateImage(tags string) (int64, error) {
	result, err := s.db.Exec("INSERT INTO images (tags) VALUES (?)", tags)
	if err != nil {
		return 0, fmt.Errorf("%w: insert image: %v", ErrStore, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: read assigned id: %v", ErrStore, err)
	}
	return id, nil
}

func (s *SQLiteDatabase) GetAllImages() ([]*ImageRecord, error) {
	rows, err := s.db.Query("SELECT id, tags FROM images ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: list images: %v", ErrStore, err)
	}
	return scanRecords(rows)
}

func (s *SQLiteDatabase) SearchImages(substring string) ([]*ImageRecord, error) {
	// SQLite LIKE is ASCII case-insensitive, so case-sensitive matching uses
	// instr instead. The input is wildcard-wrapped verbatim, not escaped:
	// an empty substring matches every record.
	var rows *sql.Rows
	var err error
	if s.caseSensitive {
		rows, err = s.db.Query(
			"SELECT id, tags FROM images WHERE instr(tags, ?) > 0 OR ? = '' ORDER BY id",
			substring, substring)
	} else {
		rows, err = s.db.Query(
			"SELECT id, tags FROM images WHERE tags LIKE '%' || ? || '%' ORDER BY id",
			substring)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: search images: %v", ErrStore, err)
	}
	return scanRecords(rows)
}

func (s *SQLiteDatabase) CountImages() (int64, error) {
	row := s.db.QueryRow("SELECT COUNT(id) FROM images")
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count images: %v", ErrStore, err)
	}
	return count, nil
}

func scanRecords(rows *sql.Rows) ([]*ImageRecord, error) {
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var records []*ImageRecord
	for rows.Next() {
		var record ImageRecord
		if err := rows.Scan(&record.ID, &record.Tags); err != nil {
			return nil, fmt.Errorf("%w: scan image row: %v", ErrStore, err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate image rows: %v", ErrStore, err)
	}
	return records, nil
}
