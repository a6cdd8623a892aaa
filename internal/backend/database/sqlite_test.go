package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jo-hoe/gogallery/internal/common"
)

func newTestDB(t *testing.T, options Options) RecordStore {
	t.Helper()

	ds, err := NewSQLiteDatabase(":memory:", options)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase error: %v", err)
	}
	if err := ds.CreateDatabase(context.Background()); err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestSQLite_Contract(t *testing.T) {
	runRecordStoreContract(t, newTestDB)
}

func TestSQLite_CreateDatabaseIsIdempotent(t *testing.T) {
	ds := newTestDB(t, Options{})
	if err := ds.CreateDatabase(context.Background()); err != nil {
		t.Fatalf("second CreateDatabase error: %v", err)
	}
}

func TestSQLite_FilePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gallery.db")

	first, err := NewDatabase(ctx, TypeSQLite, path, Options{})
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	id1 := insertNamed(t, first, "Persisted", "Norway")
	if err := first.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	second, err := NewDatabase(ctx, TypeSQLite, path, Options{})
	if err != nil {
		t.Fatalf("NewDatabase (reopen) error: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	id2 := insertNamed(t, second, "Later", "Norway")
	if id2 <= id1 {
		t.Errorf("Expected id after reopen to be greater than %d, got %d", id1, id2)
	}
	records, err := second.ListRecords(ctx, RecordQuery{Sort: SortOldest})
	if err != nil {
		t.Fatalf("ListRecords error: %v", err)
	}
	if len(records) != 2 || records[0].Name != "Persisted" {
		t.Errorf("Expected persisted record first, got %v", recordIDs(records))
	}
}

func TestSQLite_ClosedDatabaseReturnsStorageError(t *testing.T) {
	ds, err := NewSQLiteDatabase(":memory:", Options{})
	if err != nil {
		t.Fatalf("NewSQLiteDatabase error: %v", err)
	}
	if err := ds.CreateDatabase(context.Background()); err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	_ = ds.Close()

	_, err = ds.InsertRecord(context.Background(), NewRecord{Name: "x", Country: "y", ArtworkImage: "z", Website: "w"})
	var storageErr *common.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
	if storageErr.Op != "insert" {
		t.Errorf("Expected op 'insert', got %q", storageErr.Op)
	}
}
