package database

import (
	"context"
	"time"
)

// RecordStore persists gallery submissions. Records are append-only: there is no update or
// delete. ListRecords always returns the full matching set, which is only reasonable for the
// small volume of a human-curated gallery.
type RecordStore interface {
	// CreateDatabase ensures the schema exists. It is idempotent.
	CreateDatabase(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// InsertRecord stores a record in a single atomic write and returns the id generated by the engine.
	InsertRecord(ctx context.Context, record NewRecord) (int64, error)
	ListRecords(ctx context.Context, query RecordQuery) ([]*Record, error)
	DistinctCountries(ctx context.Context) ([]string, error)
}

// Options carries behavior shared by all store implementations.
type Options struct {
	// Honorifics are leading name tokens ignored by the name orderings. Nil disables skipping.
	Honorifics []string
	// Now returns the insert timestamp. Defaults to the current UTC time.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o Options) sortName(name string) string {
	return SortName(name, o.Honorifics)
}
