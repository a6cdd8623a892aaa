package database

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"
)

type storeFactory func(t *testing.T, options Options) RecordStore

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(step)
		return now
	}
}

func strPtr(s string) *string {
	return &s
}

func insertNamed(t *testing.T, store RecordStore, name, country string) int64 {
	t.Helper()
	id, err := store.InsertRecord(context.Background(), NewRecord{
		Name:         name,
		Country:      country,
		ArtworkImage: "data:image/jpeg;base64,AAAA",
		Website:      "https://" + country + ".example",
	})
	if err != nil {
		t.Fatalf("InsertRecord(%q) error: %v", name, err)
	}
	return id
}

func recordIDs(records []*Record) []int64 {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

// runRecordStoreContract checks the behavior every RecordStore implementation shares.
func runRecordStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("InsertAndRoundTrip", func(t *testing.T) {
		store := newStore(t, Options{Now: steppingClock(start, time.Second)})

		id, err := store.InsertRecord(ctx, NewRecord{
			Name:          "Ana Gomez",
			Country:       "Spain",
			ArtworkImage:  "data:image/jpeg;base64,/9g=",
			PersonalImage: strPtr("data:image/jpeg;base64,/9k="),
			Website:       "https://ana.example",
			Description:   strPtr("Oil on canvas"),
		})
		if err != nil {
			t.Fatalf("InsertRecord error: %v", err)
		}
		if id != 1 {
			t.Errorf("Expected first id to be 1, got %d", id)
		}

		records, err := store.ListRecords(ctx, RecordQuery{})
		if err != nil {
			t.Fatalf("ListRecords error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
		r := records[0]
		if r.ID != id || r.Name != "Ana Gomez" || r.Country != "Spain" || r.Website != "https://ana.example" {
			t.Errorf("Unexpected record fields: %+v", r)
		}
		if r.ArtworkImage != "data:image/jpeg;base64,/9g=" {
			t.Errorf("Unexpected artwork image %q", r.ArtworkImage)
		}
		if r.PersonalImage == nil || *r.PersonalImage != "data:image/jpeg;base64,/9k=" {
			t.Errorf("Unexpected personal image %v", r.PersonalImage)
		}
		if r.Description == nil || *r.Description != "Oil on canvas" {
			t.Errorf("Unexpected description %v", r.Description)
		}
		if !r.CreatedAt.Equal(start) {
			t.Errorf("Expected created_at %v, got %v", start, r.CreatedAt)
		}
	})

	t.Run("OptionalFieldsStayNil", func(t *testing.T) {
		store := newStore(t, Options{})
		insertNamed(t, store, "Solo", "Peru")

		records, err := store.ListRecords(ctx, RecordQuery{})
		if err != nil {
			t.Fatalf("ListRecords error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
		if records[0].PersonalImage != nil {
			t.Errorf("Expected nil personal image, got %q", *records[0].PersonalImage)
		}
		if records[0].Description != nil {
			t.Errorf("Expected nil description, got %q", *records[0].Description)
		}
	})

	t.Run("IdsIncrease", func(t *testing.T) {
		store := newStore(t, Options{})
		var last int64
		for i := 0; i < 5; i++ {
			id := insertNamed(t, store, "Artist", "Chile")
			if id <= last {
				t.Fatalf("Expected id greater than %d, got %d", last, id)
			}
			last = id
		}
	})

	t.Run("ConcurrentInsertsGetUniqueIds", func(t *testing.T) {
		store := newStore(t, Options{})
		const n = 20

		var wg sync.WaitGroup
		ids := make([]int64, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ids[i], errs[i] = store.InsertRecord(ctx, NewRecord{
					Name:         "Parallel",
					Country:      "Japan",
					ArtworkImage: "x",
					Website:      "https://jp.example",
				})
			}()
		}
		wg.Wait()

		seen := make(map[int64]bool, n)
		for i := 0; i < n; i++ {
			if errs[i] != nil {
				t.Fatalf("InsertRecord #%d error: %v", i, errs[i])
			}
			if seen[ids[i]] {
				t.Fatalf("Duplicate id %d", ids[i])
			}
			seen[ids[i]] = true
		}

		records, err := store.ListRecords(ctx, RecordQuery{})
		if err != nil {
			t.Fatalf("ListRecords error: %v", err)
		}
		if len(records) != n {
			t.Errorf("Expected %d records, got %d", n, len(records))
		}
	})

	t.Run("Ordering", func(t *testing.T) {
		store := newStore(t, Options{
			Honorifics: DefaultHonorifics,
			Now:        steppingClock(start, time.Second),
		})
		idCarl := insertNamed(t, store, "carl", "Spain")
		idAna := insertNamed(t, store, "Dr. Ana", "Spain")
		idBea := insertNamed(t, store, "Bea", "Italy")

		tests := []struct {
			sort     SortKey
			expected []int64
		}{
			{SortNewest, []int64{idBea, idAna, idCarl}},
			{SortOldest, []int64{idCarl, idAna, idBea}},
			{SortNameAsc, []int64{idAna, idBea, idCarl}},
			{SortNameDesc, []int64{idCarl, idBea, idAna}},
			{SortKey("unknown"), []int64{idBea, idAna, idCarl}},
		}
		for _, tt := range tests {
			records, err := store.ListRecords(ctx, RecordQuery{Sort: tt.sort})
			if err != nil {
				t.Fatalf("ListRecords(%s) error: %v", tt.sort, err)
			}
			if got := recordIDs(records); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("sort=%s: expected %v, got %v", tt.sort, tt.expected, got)
			}
		}
	})

	t.Run("NameOrderIsExactReverse", func(t *testing.T) {
		store := newStore(t, Options{Now: func() time.Time { return start }})
		for _, name := range []string{"Zoe", "adam", "Adam", "mia", "Mia", "Bob"} {
			insertNamed(t, store, name, "France")
		}

		asc, err := store.ListRecords(ctx, RecordQuery{Sort: SortNameAsc})
		if err != nil {
			t.Fatalf("ListRecords(az) error: %v", err)
		}
		desc, err := store.ListRecords(ctx, RecordQuery{Sort: SortNameDesc})
		if err != nil {
			t.Fatalf("ListRecords(za) error: %v", err)
		}

		ascIDs := recordIDs(asc)
		descIDs := recordIDs(desc)
		for i, j := 0, len(descIDs)-1; i < j; i, j = i+1, j-1 {
			descIDs[i], descIDs[j] = descIDs[j], descIDs[i]
		}
		if !reflect.DeepEqual(ascIDs, descIDs) {
			t.Errorf("Expected za to be the reverse of az: az=%v reversed za=%v", ascIDs, descIDs)
		}
		if asc[0].SortName != "adam" || asc[len(asc)-1].SortName != "zoe" {
			t.Errorf("Expected case-insensitive order, got first=%q last=%q", asc[0].Name, asc[len(asc)-1].Name)
		}
	})

	t.Run("CountryFilter", func(t *testing.T) {
		store := newStore(t, Options{Now: steppingClock(start, time.Second)})
		idSpain := insertNamed(t, store, "A", "Spain")
		insertNamed(t, store, "B", "Portugal")
		idLower := insertNamed(t, store, "C", "spain")
		insertNamed(t, store, "D", "100% Land")
		idAustria := insertNamed(t, store, "E", "ÖSTERREICH")

		substring, err := store.ListRecords(ctx, RecordQuery{Country: "SPA"})
		if err != nil {
			t.Fatalf("ListRecords error: %v", err)
		}
		if got := recordIDs(substring); !reflect.DeepEqual(got, []int64{idLower, idSpain}) {
			t.Errorf("Substring: expected %v, got %v", []int64{idLower, idSpain}, got)
		}

		exact, err := store.ListRecords(ctx, RecordQuery{Country: "Spain", Match: MatchExact})
		if err != nil {
			t.Fatalf("ListRecords error: %v", err)
		}
		if got := recordIDs(exact); !reflect.DeepEqual(got, []int64{idSpain}) {
			t.Errorf("Exact: expected %v, got %v", []int64{idSpain}, got)
		}

		wildcard, err := store.ListRecords(ctx, RecordQuery{Country: "%"})
		if err != nil {
			t.Fatalf("ListRecords error: %v", err)
		}
		if len(wildcard) != 1 || wildcard[0].Country != "100% Land" {
			t.Errorf("Expected '%%' to match literally, got %v", recordIDs(wildcard))
		}

		for _, filter := range []string{"österreich", "Österr", "REICH"} {
			folded, err := store.ListRecords(ctx, RecordQuery{Country: filter})
			if err != nil {
				t.Fatalf("ListRecords error: %v", err)
			}
			if got := recordIDs(folded); !reflect.DeepEqual(got, []int64{idAustria}) {
				t.Errorf("Non-ASCII substring %q: expected %v, got %v", filter, []int64{idAustria}, got)
			}
		}

		none, err := store.ListRecords(ctx, RecordQuery{Country: "Atlantis"})
		if err != nil {
			t.Fatalf("ListRecords error: %v", err)
		}
		if none == nil || len(none) != 0 {
			t.Errorf("Expected empty non-nil result, got %v", none)
		}
	})

	t.Run("DistinctCountries", func(t *testing.T) {
		store := newStore(t, Options{})

		empty, err := store.DistinctCountries(ctx)
		if err != nil {
			t.Fatalf("DistinctCountries error: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("Expected no countries, got %v", empty)
		}

		for _, c := range []string{"Spain", "Peru", "Spain", "Chile", "Peru", "Spain"} {
			insertNamed(t, store, "X", c)
		}
		countries, err := store.DistinctCountries(ctx)
		if err != nil {
			t.Fatalf("DistinctCountries error: %v", err)
		}
		sort.Strings(countries)
		if !reflect.DeepEqual(countries, []string{"Chile", "Peru", "Spain"}) {
			t.Errorf("Expected each country once, got %v", countries)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		store := newStore(t, Options{})
		if err := store.Ping(ctx); err != nil {
			t.Errorf("Ping error: %v", err)
		}
	})
}
