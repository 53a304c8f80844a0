package utils

import (
	"fmt"
	"time"
)

const (
	// DefaultDateFormat is dd-mm-yyyy, the form the price provider expects.
	DefaultDateFormat = "02-01-2006"
	// DayKeyFormat keys cached prices.
	DayKeyFormat = "2006-01-02"

	displayDateFormat = "Jan 02, 2006"
	displayHourFormat = "03:04 PM"
)

// DateFormat is a timestamp split for display.
type DateFormat struct {
	Date string `json:"date"`
	Hour string `json:"hour"`
}

// FormatDateTime renders unix seconds as {"May 08, 2021", "06:24 PM"} in loc.
func FormatDateTime(unixSeconds int64, loc *time.Location) DateFormat {
	t := time.Unix(unixSeconds, 0).In(orLocal(loc))
	return DateFormat{
		Date: t.Format(displayDateFormat),
		Hour: t.Format(displayHourFormat),
	}
}

// FormatDate renders unix seconds as dd-mm-yyyy in loc.
func FormatDate(unixSeconds int64, loc *time.Location) string {
	return time.Unix(unixSeconds, 0).In(orLocal(loc)).Format(DefaultDateFormat)
}

// ParseDate parses a dd-mm-yyyy string as midnight in loc.
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DefaultDateFormat, dateStr, orLocal(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing date '%s' with format '%s': %w", dateStr, DefaultDateFormat, err)
	}
	return t, nil
}

// StartOfDay truncates t to local midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(orLocal(loc))
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
