package cv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthName(t *testing.T) {
	assert.Equal(t, "March", MonthName("3"))
	assert.Equal(t, "March", MonthName("03"))
	assert.Equal(t, "December", MonthName("12"))
	assert.Equal(t, "", MonthName("13"))
	assert.Equal(t, "", MonthName("0"))
	assert.Equal(t, "", MonthName(""))
	assert.Equal(t, "", MonthName("mars"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"2020-01", Date{Year: 2020, Month: 1}},
		{"2020-1", Date{Year: 2020, Month: 1}},
		{"03/2019", Date{Year: 2019, Month: 3}},
		{"3/2019", Date{Year: 2019, Month: 3}},
		{"2018", Date{Year: 2018}},
		{"2020-13", Date{Year: 2020}},
		{"  ", Date{}},
		{"summer 2019", Date{Raw: "summer 2019"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDate(tt.in))
		})
	}
}

func TestDate_StorageAndDisplay(t *testing.T) {
	assert.Equal(t, "2020-03", ParseDate("03/2020").String())
	assert.Equal(t, "March 2020", ParseDate("03/2020").Display())
	assert.Equal(t, "2020", ParseDate("2020").Display())
	assert.Equal(t, "next year", ParseDate("next year").Display())
	assert.True(t, ParseDate("").IsZero())
}

func TestCombineMonthYear(t *testing.T) {
	assert.Equal(t, "1840-01", CombineMonthYear("01", "1840"))
	assert.Equal(t, "2021-03", CombineMonthYear("3", "2021"))
	assert.Equal(t, "2021", CombineMonthYear("", "2021"))
	assert.Equal(t, "2021", CombineMonthYear("13", "2021"))
	assert.Equal(t, "", CombineMonthYear("05", ""))
	assert.Equal(t, "soon", CombineMonthYear("05", "soon"))
}

func TestFormatRange(t *testing.T) {
	assert.Equal(t, "January 2020 – Present", FormatRange("2020-01", "", true))
	assert.Equal(t, "January 1840 – Present", FormatRange("1840-01", PresentLabel, false))
	assert.Equal(t, "March 2019 – June 2021", FormatRange("03/2019", "2021-06", false))
	assert.Equal(t, "2015", FormatRange("2015", "", false))
	assert.Equal(t, "2016", FormatRange("", "2016", false))
	assert.Equal(t, "", FormatRange("", "", false))
	assert.Equal(t, "sometime – 2016", FormatRange("sometime", "2016", false))
}
