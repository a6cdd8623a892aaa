package database

import (
	"strings"
	"time"
)

// Record is a stored submission.
type Record struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Country       string    `json:"country"`
	ArtworkImage  string    `json:"artwork_image"`
	PersonalImage *string   `json:"personal_image"`
	Website       string    `json:"website"`
	Description   *string   `json:"description"`
	CreatedAt     time.Time `json:"created_at"`

	SortName string `json:"-"`
}

// NewRecord holds the insertable fields. The id and timestamp are always assigned by the store.
type NewRecord struct {
	Name          string
	Country       string
	ArtworkImage  string
	PersonalImage *string
	Website       string
	Description   *string
}

// DefaultHonorifics lists the title tokens skipped when ordering by name.
var DefaultHonorifics = []string{
	"mr", "mrs", "ms", "miss", "mx", "dr", "prof", "sir", "dame", "lady", "lord",
	"sr", "sra", "srta", "don", "doña", "herr", "frau", "mme", "mlle",
}

// SortName returns the key used by the name orderings: the lower-cased name with a
// leading honorific removed. A name that consists only of an honorific is kept as is.
func SortName(name string, honorifics []string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) > 1 && isHonorific(fields[0], honorifics) {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func isHonorific(token string, honorifics []string) bool {
	token = strings.TrimSuffix(token, ".")
	for _, h := range honorifics {
		if token == strings.ToLower(h) {
			return true
		}
	}
	return false
}
