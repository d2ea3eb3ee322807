// Package rocdate handles the 7-digit Republic-of-China (Minguo) date strings
// used by Taiwanese real-estate exports: three digits of year minus 1911,
// two of month, two of day, e.g. "1130512" for 2024-05-12. The fixed-width
// encoding sorts lexicographically in calendar order, which the store relies
// on for range queries.
package rocdate

import (
	"fmt"
	"strconv"
	"time"
)

const yearOffset = 1911

// ToTime parses a 7-digit ROC date string into a UTC calendar date.
func ToTime(s string) (time.Time, error) {
	if len(s) != 7 {
		return time.Time{}, fmt.Errorf("invalid ROC date %q: want 7 digits", s)
	}
	year, err := strconv.Atoi(s[0:3])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ROC year in %q: %w", s, err)
	}
	month, err := strconv.Atoi(s[3:5])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ROC month in %q: %w", s, err)
	}
	day, err := strconv.Atoi(s[5:7])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ROC day in %q: %w", s, err)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("ROC date %q out of range", s)
	}
	return time.Date(year+yearOffset, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// Format renders a calendar date as a 7-digit ROC date string.
func Format(t time.Time) string {
	return fmt.Sprintf("%03d%02d%02d", t.Year()-yearOffset, int(t.Month()), t.Day())
}

// MonthWindow returns the ROC date range covering the whole calendar month
// that began two months before now. The monthly presale listing always shows
// that month: government exports lag by roughly two months.
func MonthWindow(now time.Time) (start, end string) {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	target := firstOfMonth.AddDate(0, -2, 0)
	lastDay := target.AddDate(0, 1, -1)
	return Format(target), Format(lastDay)
}

// YearWindow returns the ROC date range covering now's entire calendar year,
// e.g. "1130101".."1131231" during 2024.
func YearWindow(now time.Time) (start, end string) {
	year := now.Year() - yearOffset
	return fmt.Sprintf("%03d0101", year), fmt.Sprintf("%03d1231", year)
}
