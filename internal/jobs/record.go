package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Column names referenced by the query layer.
const (
	ColumnJobType   = "job_type"
	ColumnIndustry  = "industry"
	ColumnMinSalary = "min_salary"
	ColumnMaxSalary = "max_salary"
)

// Record is one job listing: column name to raw cell text.
// Values are never coerced at load time. A column missing from a short row
// is absent from the map.
type Record map[string]string

// Get returns the value for column and whether the column was present.
func (r Record) Get(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

// Dataset is the ordered set of records parsed from one path.
// A Dataset is never mutated after the loader returns it.
type Dataset struct {
	ID       uuid.UUID
	Path     string
	Header   []string
	Records  []Record
	LoadedAt time.Time
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}
