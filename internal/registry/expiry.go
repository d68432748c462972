package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "optionflow/internal/errors"
	"optionflow/pkg/utils"
)

// Expiry strings are exchanged as DD-MMM-YY with an uppercase month,
// e.g. "25-DEC-25".
const expiryLayout = "02-Jan-06"

var monthAbbrev = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// ParseExpiry parses a DD-MMM-YY expiry string into a date in exchange
// local time.
func ParseExpiry(expiry string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(expiry), "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid expiry %q", expiry)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid expiry day in %q", expiry)
	}

	month, ok := monthAbbrev[strings.ToUpper(parts[1])]
	if !ok {
		return time.Time{}, fmt.Errorf("invalid expiry month in %q", expiry)
	}

	yy, err := strconv.Atoi(parts[2])
	if err != nil || yy < 0 || yy > 99 {
		return time.Time{}, fmt.Errorf("invalid expiry year in %q", expiry)
	}

	return time.Date(2000+yy, month, day, 0, 0, 0, 0, utils.IndiaLocation), nil
}

// FormatExpiry renders a date as an uppercase DD-MMM-YY expiry string.
func FormatExpiry(t time.Time) string {
	return strings.ToUpper(t.Format(expiryLayout))
}

// IsMonthlyExpiry reports whether the expiry is the last Thursday of its
// month. Pure calendar rule, no holiday adjustments.
func IsMonthlyExpiry(expiry string) (bool, error) {
	date, err := ParseExpiry(expiry)
	if err != nil {
		return false, err
	}
	return isLastThursday(date), nil
}

func isLastThursday(date time.Time) bool {
	if date.Weekday() != time.Thursday {
		return false
	}
	return date.AddDate(0, 0, 7).Month() != date.Month()
}

// FilterMonthlyExpiries keeps the first last-Thursday expiry per calendar
// month, preserving input order. A month with no qualifying date contributes
// nothing. Unparseable entries are skipped.
func FilterMonthlyExpiries(expiries []string) []string {
	seen := make(map[string]bool)
	var monthly []string
	for _, e := range expiries {
		date, err := ParseExpiry(e)
		if err != nil {
			continue
		}
		if !isLastThursday(date) {
			continue
		}
		key := date.Format("2006-01")
		if seen[key] {
			continue
		}
		seen[key] = true
		monthly = append(monthly, e)
	}
	return monthly
}

// SortExpiries orders expiry strings chronologically. Unparseable entries
// sort last in their original order.
func SortExpiries(expiries []string) []string {
	type dated struct {
		raw  string
		date time.Time
		ok   bool
	}
	items := make([]dated, len(expiries))
	for i, e := range expiries {
		d, err := ParseExpiry(e)
		items[i] = dated{raw: e, date: d, ok: err == nil}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok && items[j].ok {
			return items[i].date.Before(items[j].date)
		}
		return items[i].ok && !items[j].ok
	})

	sorted := make([]string, len(items))
	for i, it := range items {
		sorted[i] = it.raw
	}
	return sorted
}

// NextExpiryAfter returns the first expiry in the list that falls on or
// after the reference date.
func NextExpiryAfter(expiries []string, ref time.Time) (string, error) {
	refDay := time.Date(ref.In(utils.IndiaLocation).Year(), ref.In(utils.IndiaLocation).Month(),
		ref.In(utils.IndiaLocation).Day(), 0, 0, 0, 0, utils.IndiaLocation)

	for _, e := range SortExpiries(expiries) {
		date, err := ParseExpiry(e)
		if err != nil {
			continue
		}
		if !date.Before(refDay) {
			return e, nil
		}
	}
	return "", apperrors.ErrMissingExpiry
}
