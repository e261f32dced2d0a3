package insights

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/JonMunkholm/jobinsights/internal/jobs"
)

// Pre-compiled patterns for the two numeric shapes the query layer accepts.
var (
	// digitsRegex matches "purely numeric" cells: ASCII digits only, no sign,
	// no decimal point, no surrounding whitespace.
	digitsRegex = regexp.MustCompile(`^[0-9]+$`)

	// integerRegex matches whole numbers, optionally negative.
	integerRegex = regexp.MustCompile(`^-?[0-9]+$`)
)

// IsNumeric reports whether s is a non-empty run of ASCII decimal digits.
func IsNumeric(s string) bool {
	return digitsRegex.MatchString(s)
}

// parseDigits returns the value of a purely numeric cell. Cells that are not
// purely numeric, or do not fit in an int, report false.
func parseDigits(s string) (int, bool) {
	if !IsNumeric(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseInteger parses s as a whole number, rejecting signs other than a
// leading '-', decimals, whitespace and out-of-range values.
func parseInteger(s string) (int, error) {
	if !integerRegex.MatchString(s) {
		return 0, fmt.Errorf("%w: %q is not an integer", jobs.ErrInvalidInput, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is out of range", jobs.ErrInvalidInput, s)
	}
	return n, nil
}

// ParseSalary parses a caller-supplied salary such as a query parameter.
// Anything that is not a whole number ("15.5", "", " 15", "1e3") yields an
// error wrapping jobs.ErrInvalidInput.
func ParseSalary(s string) (int, error) {
	n, err := parseInteger(s)
	if err != nil {
		return 0, fmt.Errorf("salary: %w", err)
	}
	return n, nil
}
