package table

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts is the single permissive resolver used for every date cell.
// Order matters: ISO forms first, then US month-first forms carriers export.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"2006-1-2",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2-Jan-2006",
	"02-Jan-06",
	"20060102",
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
}

// excelEpoch is day zero of the 1900 date system as Excel computes it.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate resolves s against every supported layout, including timestamps
// (truncated to the date) and Excel serial day numbers.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if serial, ok := excelSerial(s); ok {
		return excelEpoch.AddDate(0, 0, serial), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, ok := ParseTimestamp(s); ok {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ParseTimestamp resolves s as an instant; naive values are taken as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// excelSerial recognises a spreadsheet serial date between 1954 and 2119.
func excelSerial(s string) (int, bool) {
	if len(s) != 5 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 20000 || n > 80000 {
		return 0, false
	}
	return n, true
}
