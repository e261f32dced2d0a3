package insights

import (
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/jobinsights/internal/jobs"
)

// SalaryRange is the closed interval [Min, Max] advertised by a listing.
type SalaryRange struct {
	Min int
	Max int
}

// Contains reports whether Min <= salary <= Max.
func (r SalaryRange) Contains(salary int) bool {
	return r.Min <= salary && salary <= r.Max
}

// SalaryRangeOf validates and returns the salary range of job.
//
// The error wraps jobs.ErrInvalidInput when min_salary or max_salary is
// absent, either is not a whole number, or min_salary > max_salary.
func SalaryRangeOf(job jobs.Record) (SalaryRange, error) {
	rawMin, okMin := job.Get(jobs.ColumnMinSalary)
	rawMax, okMax := job.Get(jobs.ColumnMaxSalary)
	if !okMin || !okMax {
		return SalaryRange{}, fmt.Errorf("%w: record lacks %s or %s",
			jobs.ErrInvalidInput, jobs.ColumnMinSalary, jobs.ColumnMaxSalary)
	}

	lo, err := parseInteger(rawMin)
	if err != nil {
		return SalaryRange{}, fmt.Errorf("%s: %w", jobs.ColumnMinSalary, err)
	}
	hi, err := parseInteger(rawMax)
	if err != nil {
		return SalaryRange{}, fmt.Errorf("%s: %w", jobs.ColumnMaxSalary, err)
	}
	if lo > hi {
		return SalaryRange{}, fmt.Errorf("%w: %s %d is greater than %s %d",
			jobs.ErrInvalidInput, jobs.ColumnMinSalary, lo, jobs.ColumnMaxSalary, hi)
	}

	return SalaryRange{Min: lo, Max: hi}, nil
}

// MatchesSalaryRange reports whether salary falls inside job's salary range.
// It fails with jobs.ErrInvalidInput under the same conditions as SalaryRangeOf.
func MatchesSalaryRange(job jobs.Record, salary int) (bool, error) {
	r, err := SalaryRangeOf(job)
	if err != nil {
		return false, err
	}
	return r.Contains(salary), nil
}

// FilterBySalaryRange returns the records whose salary range contains salary,
// in input order. Records with a missing, malformed or inverted range are
// left out; they never cause the filter to fail.
func FilterBySalaryRange(records []jobs.Record, salary int) []jobs.Record {
	filtered := []jobs.Record{}
	skipped := 0
	for _, job := range records {
		r, err := SalaryRangeOf(job)
		if err != nil {
			skipped++
			continue
		}
		if r.Contains(salary) {
			filtered = append(filtered, job)
		}
	}

	if skipped > 0 {
		slog.Debug("salary filter skipped invalid records",
			"salary", salary,
			"skipped", skipped,
			"matched", len(filtered),
		)
	}
	return filtered
}

// MaxSalaryOf returns the largest purely numeric max_salary in records.
// When no record qualifies it returns 0 together with jobs.ErrEmptyResult.
func MaxSalaryOf(records []jobs.Record) (int, error) {
	best, found := 0, false
	for _, job := range records {
		n, ok := parseDigits(job[jobs.ColumnMaxSalary])
		if !ok {
			continue
		}
		if !found || n > best {
			best, found = n, true
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: no numeric %s", jobs.ErrEmptyResult, jobs.ColumnMaxSalary)
	}
	return best, nil
}

// MinSalaryOf returns the smallest purely numeric min_salary in records.
// When no record qualifies it returns 0 together with jobs.ErrEmptyResult.
func MinSalaryOf(records []jobs.Record) (int, error) {
	best, found := 0, false
	for _, job := range records {
		n, ok := parseDigits(job[jobs.ColumnMinSalary])
		if !ok {
			continue
		}
		if !found || n < best {
			best, found = n, true
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: no numeric %s", jobs.ErrEmptyResult, jobs.ColumnMinSalary)
	}
	return best, nil
}
