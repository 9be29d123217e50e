// Package age converts between birthdays, elapsed ages and the
// "Y ปี M เดือน" display strings used throughout the app.
package age

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fallback strings shown instead of a malformed or missing value
const (
	Incomplete = "ข้อมูลไม่สมบูรณ์"
	NoData     = "ไม่มีข้อมูล"
)

const (
	yearUnit  = "ปี"
	monthUnit = "เดือน"

	// DateLayout is the birthday format exchanged with the backend
	DateLayout = "2006-01-02"
)

var (
	ErrMalformedAge      = errors.New("malformed age display")
	ErrMalformedBirthday = errors.New("malformed birthday")
	ErrFutureBirthday    = errors.New("birthday is in the future")
)

// Age is an elapsed age in whole years and months
type Age struct {
	Years  int `json:"years"`
	Months int `json:"months"`
}

// TotalMonths returns the age expressed in months
func (a Age) TotalMonths() int {
	return a.Years*12 + a.Months
}

// String formats the age as "Y ปี M เดือน"
func (a Age) String() string {
	return fmt.Sprintf("%d %s %d %s", a.Years, yearUnit, a.Months, monthUnit)
}

// ParseBirthday accepts a plain date or an RFC 3339 timestamp
func ParseBirthday(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedBirthday, s)
}

// Calculate returns the age on today of a child born on birthday.
// Only calendar fields are compared; a month is counted once its
// day-of-month has been reached.
func Calculate(birthday string, today time.Time) (Age, error) {
	born, err := ParseBirthday(birthday)
	if err != nil {
		return Age{}, err
	}

	years := today.Year() - born.Year()
	months := int(today.Month()) - int(born.Month())
	if months < 0 {
		years--
		months += 12
	}
	if today.Day() < born.Day() {
		months--
		if months < 0 {
			years--
			months += 12
		}
	}

	if years < 0 {
		return Age{}, ErrFutureBirthday
	}
	return Age{Years: years, Months: months}, nil
}

// Display returns the display string for a birthday, or NoData if it cannot be computed
func Display(birthday string, today time.Time) string {
	a, err := Calculate(birthday, today)
	if err != nil {
		return NoData
	}
	return a.String()
}

// ConvertToMonths parses a "Y ปี M เดือน" string back into total months.
// "Y ปี" and "M เดือน" alone are accepted too.
func ConvertToMonths(display string) (int, error) {
	fields := strings.Fields(display)

	var years, months int
	var seen bool
	for i := 0; i+1 < len(fields); i += 2 {
		n, err := strconv.Atoi(fields[i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrMalformedAge, display)
		}
		switch fields[i+1] {
		case yearUnit:
			years = n
		case monthUnit:
			months = n
		default:
			return 0, fmt.Errorf("%w: %q", ErrMalformedAge, display)
		}
		seen = true
	}

	if !seen || len(fields)%2 != 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAge, display)
	}
	return years*12 + months, nil
}

// Format renders a number of months as "Y ปี M เดือน"
func Format(months int) string {
	if months < 0 {
		return Incomplete
	}
	return Age{Years: months / 12, Months: months % 12}.String()
}
