package cv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PresentLabel marks an ongoing position or course in place of an end date.
const PresentLabel = "Present"

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var (
	isoMonthPattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	slashMonthPattern = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	yearPattern       = regexp.MustCompile(`^\d{4}$`)
)

// Date is the canonical form of the date strings stored on entries. Month is
// zero when unknown. Raw keeps input that matched no known format so it can
// be printed unchanged.
type Date struct {
	Year  int
	Month int
	Raw   string
}

// ParseDate reads "yyyy-mm", "mm/yyyy" or "yyyy". Calendar correctness is
// not checked beyond the month range; anything else is kept as Raw.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	if m := isoMonthPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		return Date{Year: year, Month: monthNumber(m[2])}
	}
	if m := slashMonthPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[2])
		return Date{Year: year, Month: monthNumber(m[1])}
	}
	if yearPattern.MatchString(s) {
		year, _ := strconv.Atoi(s)
		return Date{Year: year}
	}
	return Date{Raw: s}
}

// IsZero reports whether the date carries nothing printable.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Raw == ""
}

// String returns the storage form: "yyyy-mm", "yyyy" or the raw input.
func (d Date) String() string {
	switch {
	case d.Raw != "":
		return d.Raw
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return fmt.Sprintf("%04d", d.Year)
	default:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	}
}

// Display returns "March 2020", "2020" or the raw input.
func (d Date) Display() string {
	switch {
	case d.Raw != "":
		return d.Raw
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return strconv.Itoa(d.Year)
	default:
		return monthNames[d.Month-1] + " " + strconv.Itoa(d.Year)
	}
}

// MonthName converts "3" or "03" to "March". Out of range input gives "".
func MonthName(s string) string {
	n := monthNumber(s)
	if n == 0 {
		return ""
	}
	return monthNames[n-1]
}

// CombineMonthYear joins a month/year pair into the storage form.
func CombineMonthYear(month, year string) string {
	year = strings.TrimSpace(year)
	if year == "" {
		return ""
	}
	y, err := strconv.Atoi(year)
	if err != nil || !yearPattern.MatchString(year) {
		return year
	}
	return Date{Year: y, Month: monthNumber(month)}.String()
}

// FormatRange renders "{start} – {end}". A current entry ends with PresentLabel;
// a missing side collapses to the other one.
func FormatRange(from, to string, current bool) string {
	start := ParseDate(from).Display()
	var end string
	if current || strings.EqualFold(strings.TrimSpace(to), PresentLabel) {
		end = PresentLabel
	} else {
		end = ParseDate(to).Display()
	}
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start
	case start == "":
		return end
	default:
		return start + " – " + end
	}
}

func monthNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 12 {
		return 0
	}
	return n
}
