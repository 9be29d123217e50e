package age

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func intp(n int) *int { return &n }

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		birthday string
		today    time.Time
		want     Age
	}{
		{"day not yet reached", "2020-06-15", day(2024, 6, 10), Age{Years: 3, Months: 11}},
		{"exact birthday", "2020-06-15", day(2024, 6, 15), Age{Years: 4, Months: 0}},
		{"negative month difference", "2021-09-01", day(2024, 3, 1), Age{Years: 2, Months: 6}},
		{"day reached later in year", "2022-01-20", day(2024, 5, 25), Age{Years: 2, Months: 4}},
		{"newborn", "2024-05-20", day(2024, 6, 10), Age{Years: 0, Months: 0}},
		{"timestamp birthday", "2019-02-28T00:00:00Z", day(2024, 3, 1), Age{Years: 5, Months: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.birthday, tt.today)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateIsPure(t *testing.T) {
	today := day(2024, 6, 10)

	first, err := Calculate("2020-06-15", today)
	require.NoError(t, err)
	second, err := Calculate("2020-06-15", today)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, day(2024, 6, 10), today)
}

func TestCalculateErrors(t *testing.T) {
	_, err := Calculate("not-a-date", day(2024, 6, 10))
	assert.ErrorIs(t, err, ErrMalformedBirthday)

	_, err = Calculate("2025-01-01", day(2024, 6, 10))
	assert.ErrorIs(t, err, ErrFutureBirthday)

	assert.Equal(t, NoData, Display("", day(2024, 6, 10)))
}

func TestConvertToMonths(t *testing.T) {
	n, err := ConvertToMonths("3 ปี 11 เดือน")
	require.NoError(t, err)
	assert.Equal(t, 47, n)

	n, err = ConvertToMonths("2 ปี")
	require.NoError(t, err)
	assert.Equal(t, 24, n)

	n, err = ConvertToMonths("  7 เดือน ")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, bad := range []string{"", "three ปี", "3 years 2 months", "3 ปี 11", "-1 ปี"} {
		_, err := ConvertToMonths(bad)
		assert.ErrorIs(t, err, ErrMalformedAge, "input %q", bad)
	}
}

func TestConvertRoundTrip(t *testing.T) {
	today := day(2024, 6, 10)
	a, err := Calculate("2020-06-15", today)
	require.NoError(t, err)

	n, err := ConvertToMonths(a.String())
	require.NoError(t, err)
	assert.Equal(t, a.TotalMonths(), n)
}

func TestFormatRange(t *testing.T) {
	assert.Equal(t, "1 ปี 4 เดือน - 1 ปี 7 เดือน", FormatRange(intp(16), intp(19)))
	assert.Equal(t, "1 ปี 7 เดือน", FormatRange(nil, intp(19)))
	assert.Equal(t, "0 ปี 9 เดือน", FormatRange(intp(9), nil))
	assert.Equal(t, Incomplete, FormatRange(nil, nil))
}

func TestDescribeRange(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"16-19", "1 ปี 4 เดือน - 1 ปี 7 เดือน"},
		{"abc-19", "1 ปี 7 เดือน"},
		{"16-", "1 ปี 4 เดือน"},
		{"x-y", Incomplete},
		{"", NoData},
	}

	for _, tt := range tests {
		got := DescribeRange(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.False(t, strings.Contains(got, "NaN"))
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("16-19", 16))
	assert.True(t, Contains("16-19", 19))
	assert.False(t, Contains("16-19", 20))
	assert.True(t, Contains("x-19", 3))
	assert.False(t, Contains("", 3))
}
