package age

import (
	"strconv"
	"strings"
)

// ParseRange splits an "min-max" age band. A bound that does not parse
// as a non-negative integer is returned as nil.
func ParseRange(s string) (min, max *int) {
	lo, hi, found := strings.Cut(s, "-")
	min = parseBound(lo)
	if found {
		max = parseBound(hi)
	}
	return min, max
}

func parseBound(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// FormatRange renders the present bounds joined by " - ".
// With both bounds absent it returns Incomplete.
func FormatRange(min, max *int) string {
	parts := make([]string, 0, 2)
	if min != nil {
		parts = append(parts, Format(*min))
	}
	if max != nil {
		parts = append(parts, Format(*max))
	}
	if len(parts) == 0 {
		return Incomplete
	}
	return strings.Join(parts, " - ")
}

// DescribeRange formats a raw age_range field for display
func DescribeRange(ageRange string) string {
	if strings.TrimSpace(ageRange) == "" {
		return NoData
	}
	return FormatRange(ParseRange(ageRange))
}

// Contains reports whether months falls inside the band. Absent bounds are open.
func Contains(ageRange string, months int) bool {
	min, max := ParseRange(ageRange)
	if min == nil && max == nil {
		return false
	}
	if min != nil && months < *min {
		return false
	}
	if max != nil && months > *max {
		return false
	}
	return true
}
