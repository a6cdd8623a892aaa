package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jo-hoe/gogallery/internal/common"

	_ "modernc.org/sqlite"
)

// sqliteTimeLayout is fixed-width so text order equals chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
	options          Options
}

// NewSQLiteDatabase opens a file-backed or in-memory (":memory:") SQLite store.
func NewSQLiteDatabase(connectionString string, options Options) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writes and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
		options:          options,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			country TEXT NOT NULL,
			artwork_image TEXT NOT NULL,
			personal_image TEXT,
			website TEXT NOT NULL,
			description TEXT,
			sort_name TEXT NOT NULL,
			country_key TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_created_at ON records (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_records_sort_name ON records (sort_name)`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return common.WrapStorage("create schema", err)
		}
	}
	return nil
}

func (s *SQLiteDatabase) Ping(ctx context.Context) error {
	return common.WrapStorage("ping", s.db.PingContext(ctx))
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) InsertRecord(ctx context.Context, record NewRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO records (name, country, artwork_image, personal_image, website, description, sort_name, country_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Name,
		record.Country,
		record.ArtworkImage,
		record.PersonalImage,
		record.Website,
		record.Description,
		s.options.sortName(record.Name),
		CountryKey(record.Country),
		s.options.now().Format(sqliteTimeLayout),
	)
	if err != nil {
		return 0, common.WrapStorage("insert", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, common.WrapStorage("insert", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) ListRecords(ctx context.Context, query RecordQuery) ([]*Record, error) {
	statement, args := query.compile(sqliteDialect)
	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, common.WrapStorage("list", err)
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	records := make([]*Record, 0)
	for rows.Next() {
		var (
			record    Record
			personal  sql.NullString
			desc      sql.NullString
			createdAt string
		)
		if err := rows.Scan(
			&record.ID,
			&record.Name,
			&record.Country,
			&record.ArtworkImage,
			&personal,
			&record.Website,
			&desc,
			&record.SortName,
			&createdAt,
		); err != nil {
			return nil, common.WrapStorage("list", err)
		}
		record.PersonalImage = nullStringPtr(personal)
		record.Description = nullStringPtr(desc)
		record.CreatedAt, err = time.ParseInLocation(sqliteTimeLayout, createdAt, time.UTC)
		if err != nil {
			return nil, common.WrapStorage("list", fmt.Errorf("invalid created_at %q: %w", createdAt, err))
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStorage("list", err)
	}
	return records, nil
}

func (s *SQLiteDatabase) DistinctCountries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT country FROM records WHERE country IS NOT NULL AND country <> '' ORDER BY country`)
	if err != nil {
		return nil, common.WrapStorage("countries", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	countries := make([]string, 0)
	for rows.Next() {
		var country string
		if err := rows.Scan(&country); err != nil {
			return nil, common.WrapStorage("countries", err)
		}
		countries = append(countries, country)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStorage("countries", err)
	}
	return countries, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
