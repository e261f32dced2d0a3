// Package insights answers analytical queries over job-listing datasets.
//
// Every query is a single linear scan. Functions taking a path load the
// dataset through a [DatasetLoader]; functions taking a []jobs.Record work
// on the caller's slice, perform no I/O and never modify their input.
//
// Numeric cells are parsed where they are used. A cell counts as "purely
// numeric" only if it is a non-empty run of ASCII digits (see [IsNumeric]).
package insights

import (
	"context"
	"errors"

	"github.com/JonMunkholm/jobinsights/internal/jobs"
)

// DatasetLoader returns the dataset stored at path. *jobs.Loader satisfies it.
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*jobs.Dataset, error)
}

// Service runs path-based queries against datasets from its loader.
type Service struct {
	loader DatasetLoader
}

// New creates a Service backed by loader.
func New(loader DatasetLoader) *Service {
	return &Service{loader: loader}
}

// UniqueJobTypes returns the distinct job_type values of the dataset at
// path, in first-seen order. See JobTypes for the values left out.
func (s *Service) UniqueJobTypes(ctx context.Context, path string) ([]string, error) {
	ds, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return JobTypes(ds.Records), nil
}

// UniqueIndustries returns the distinct industry values of the dataset at
// path, in first-seen order. See Industries for the values left out.
func (s *Service) UniqueIndustries(ctx context.Context, path string) ([]string, error) {
	ds, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return Industries(ds.Records), nil
}

// MaxSalary returns the largest purely numeric max_salary of the dataset at
// path. With no qualifying value it returns 0 and an error wrapping
// jobs.ErrEmptyResult.
func (s *Service) MaxSalary(ctx context.Context, path string) (int, error) {
	ds, err := s.loader.Load(ctx, path)
	if err != nil {
		return 0, err
	}
	return MaxSalaryOf(ds.Records)
}

// MinSalary returns the smallest purely numeric min_salary of the dataset
// at path, or an error wrapping jobs.ErrEmptyResult if none qualifies.
func (s *Service) MinSalary(ctx context.Context, path string) (int, error) {
	ds, err := s.loader.Load(ctx, path)
	if err != nil {
		return 0, err
	}
	return MinSalaryOf(ds.Records)
}

// Summary is a one-call overview of a dataset.
type Summary struct {
	DatasetID  string   `json:"dataset_id"`
	Records    int      `json:"records"`
	JobTypes   []string `json:"job_types"`
	Industries []string `json:"industries"`
	MinSalary  *int     `json:"min_salary"`
	MaxSalary  *int     `json:"max_salary"`
}

// Summary loads the dataset at path and computes every aggregate at once.
// Salary bounds are nil when no record qualifies.
func (s *Service) Summary(ctx context.Context, path string) (Summary, error) {
	ds, err := s.loader.Load(ctx, path)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		DatasetID:  ds.ID.String(),
		Records:    ds.Len(),
		JobTypes:   JobTypes(ds.Records),
		Industries: Industries(ds.Records),
	}

	if lo, err := MinSalaryOf(ds.Records); err == nil {
		sum.MinSalary = &lo
	} else if !errors.Is(err, jobs.ErrEmptyResult) {
		return Summary{}, err
	}
	if hi, err := MaxSalaryOf(ds.Records); err == nil {
		sum.MaxSalary = &hi
	} else if !errors.Is(err, jobs.ErrEmptyResult) {
		return Summary{}, err
	}

	return sum, nil
}

// JobTypes returns the distinct job_type values in first-seen order.
// Values starting with the digit '2' encode a numeric category code and are
// treated as noise; empty and missing values are skipped too.
func JobTypes(records []jobs.Record) []string {
	return distinct(records, jobs.ColumnJobType, func(v string) bool {
		return v != "" && v[0] != '2'
	})
}

// Industries returns the distinct industry values in first-seen order,
// leaving out empty and purely numeric values.
func Industries(records []jobs.Record) []string {
	return distinct(records, jobs.ColumnIndustry, func(v string) bool {
		return v != "" && !IsNumeric(v)
	})
}

// FilterByJobType returns the records whose job_type equals jobType exactly.
func FilterByJobType(records []jobs.Record, jobType string) []jobs.Record {
	return filterByColumn(records, jobs.ColumnJobType, jobType)
}

// FilterByIndustry returns the records whose industry equals industry exactly.
func FilterByIndustry(records []jobs.Record, industry string) []jobs.Record {
	return filterByColumn(records, jobs.ColumnIndustry, industry)
}

func distinct(records []jobs.Record, column string, keep func(string) bool) []string {
	seen := make(map[string]struct{})
	values := []string{}
	for _, rec := range records {
		v, ok := rec.Get(column)
		if !ok || !keep(v) {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

func filterByColumn(records []jobs.Record, column, want string) []jobs.Record {
	filtered := []jobs.Record{}
	for _, rec := range records {
		if v, ok := rec.Get(column); ok && v == want {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
