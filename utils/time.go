// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// DateLayout is the calendar-day format used by the WB API and sheet exports
const DateLayout = "2006-01-02"

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCToday returns the current UTC calendar day with the time component zeroed
func UTCToday() time.Time {
	return DateOnly(UTCNow())
}

// DateOnly truncates a time to midnight UTC of the same calendar day
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a time as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// FormatDatePtr renders an optional time as YYYY-MM-DD, or "" when nil
func FormatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatDate(*t)
}

// UTCNowRFC3339 returns the current UTC time in RFC3339 format
func UTCNowRFC3339() string {
	return UTCNow().Format(time.RFC3339)
}
