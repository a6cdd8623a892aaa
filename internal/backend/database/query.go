package database

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortKey selects the ordering of ListRecords.
type SortKey string

const (
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortNameAsc  SortKey = "az"
	SortNameDesc SortKey = "za"
)

// ParseSortKey maps a query value to a SortKey. Unknown values fall back to SortNewest.
func ParseSortKey(value string) SortKey {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(value))); key {
	case SortNewest, SortOldest, SortNameAsc, SortNameDesc:
		return key
	default:
		return SortNewest
	}
}

// CountryMatch is the policy used to compare the country filter with stored values.
type CountryMatch string

const (
	// MatchSubstring matches case-insensitively anywhere in the country.
	MatchSubstring CountryMatch = "substring"
	// MatchExact requires byte-for-byte equality.
	MatchExact CountryMatch = "exact"
)

// ParseCountryMatch validates a configured policy. An empty value selects MatchSubstring.
func ParseCountryMatch(value string) (CountryMatch, error) {
	switch m := CountryMatch(strings.ToLower(strings.TrimSpace(value))); m {
	case "":
		return MatchSubstring, nil
	case MatchSubstring, MatchExact:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported country match policy: %s", value)
	}
}

// RecordQuery filters and orders ListRecords. An empty Country disables filtering.
type RecordQuery struct {
	Sort    SortKey
	Country string
	Match   CountryMatch
}

func (q RecordQuery) normalized() RecordQuery {
	q.Sort = ParseSortKey(string(q.Sort))
	q.Country = strings.TrimSpace(q.Country)
	if q.Match != MatchExact {
		q.Match = MatchSubstring
	}
	return q
}

// dialect captures the differences between SQL engines the query compiler cares about.
type dialect struct {
	placeholder func(n int) string
	// byteOrder is appended to sort_name so names compare byte-wise on every engine.
	byteOrder string
}

var (
	sqliteDialect = dialect{
		placeholder: func(int) string { return "?" },
	}
	postgresDialect = dialect{
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		byteOrder:   ` COLLATE "C"`,
	}
)

const selectRecordColumns = `SELECT id, name, country, artwork_image, personal_image, website, description, sort_name, created_at FROM records`

// compile turns the query into a parameterized statement. User input only ever travels in args.
func (q RecordQuery) compile(d dialect) (string, []any) {
	q = q.normalized()

	var sb strings.Builder
	sb.WriteString(selectRecordColumns)

	var args []any
	if q.Country != "" {
		switch q.Match {
		case MatchExact:
			sb.WriteString(" WHERE country = " + d.placeholder(1))
			args = append(args, q.Country)
		default:
			sb.WriteString(" WHERE country_key LIKE " + d.placeholder(1) + ` ESCAPE '\'`)
			args = append(args, "%"+escapeLike(CountryKey(q.Country))+"%")
		}
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(q.Sort.orderClause(d))
	return sb.String(), args
}

func (k SortKey) orderClause(d dialect) string {
	switch k {
	case SortOldest:
		return "created_at ASC, id ASC"
	case SortNameAsc:
		return "sort_name" + d.byteOrder + " ASC, id ASC"
	case SortNameDesc:
		return "sort_name" + d.byteOrder + " DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// matches applies the country filter in memory for stores without a query language.
func (q RecordQuery) matches(r *Record) bool {
	if q.Country == "" {
		return true
	}
	if q.Match == MatchExact {
		return r.Country == q.Country
	}
	return strings.Contains(CountryKey(r.Country), CountryKey(q.Country))
}

// CountryKey is the case-folded form used by the substring policy. SQL stores persist it in
// country_key so the database never folds case itself.
func CountryKey(country string) string {
	return strings.ToLower(country)
}

// apply filters and orders records in memory with the same semantics as compile.
func (q RecordQuery) apply(records []*Record) []*Record {
	q = q.normalized()

	out := make([]*Record, 0, len(records))
	for _, r := range records {
		if q.matches(r) {
			out = append(out, r)
		}
	}

	slices.SortFunc(out, func(a, b *Record) int {
		switch q.Sort {
		case SortOldest:
			return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
		case SortNameAsc:
			return cmp.Or(strings.Compare(a.SortName, b.SortName), cmp.Compare(a.ID, b.ID))
		case SortNameDesc:
			return cmp.Or(strings.Compare(b.SortName, a.SortName), cmp.Compare(b.ID, a.ID))
		default:
			return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
		}
	})
	return out
}
