package database

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// TimestampLayout matches SQLite's datetime('now') output.
const TimestampLayout = "2006-01-02 15:04:05"

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format(dateLayout)
}

// FormatTimestamp formats t in UTC the way SQLite stores datetime('now').
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// MakePeriodID creates a period_id from start and end dates.
// If start == end, returns just the date (e.g., "2026-02-06").
// Otherwise returns a range (e.g., "2026-02-01..2026-02-06").
func MakePeriodID(start, end string) string {
	if start == end {
		return start
	}
	return start + ".." + end
}

// ParsePeriod validates a period_id and returns its inclusive start and end dates.
func ParsePeriod(periodID string) (start, end string, err error) {
	start, end = periodID, periodID
	if strings.Contains(periodID, "..") {
		parts := strings.SplitN(periodID, "..", 2)
		start, end = parts[0], parts[1]
	}
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return "", "", fmt.Errorf("invalid period start %q: %w", start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return "", "", fmt.Errorf("invalid period end %q: %w", end, err)
	}
	if e.Before(s) {
		return "", "", fmt.Errorf("period %q ends before it starts", periodID)
	}
	return start, end, nil
}

// FormatPeriodDisplay formats a period_id for human-readable display.
// Single day: "Feb 06, 2026"
// Range: "Feb 01 - Feb 06, 2026"
func FormatPeriodDisplay(periodID string) string {
	if strings.Contains(periodID, "..") {
		parts := strings.SplitN(periodID, "..", 2)
		if len(parts) != 2 {
			return periodID
		}
		start, err := time.Parse(dateLayout, parts[0])
		if err != nil {
			return periodID
		}
		end, err := time.Parse(dateLayout, parts[1])
		if err != nil {
			return periodID
		}
		return fmt.Sprintf("%s - %s", start.Format("Jan 02"), end.Format("Jan 02, 2006"))
	}

	d, err := time.Parse(dateLayout, periodID)
	if err != nil {
		return periodID
	}
	return d.Format("Jan 02, 2006")
}

// PeriodEndDate extracts the end date from a period_id.
// For range periods (YYYY-MM-DD..YYYY-MM-DD), returns the end date.
// For single-day periods, returns the date itself.
func PeriodEndDate(periodID string) string {
	if strings.Contains(periodID, "..") {
		parts := strings.SplitN(periodID, "..", 2)
		if len(parts) == 2 {
			return parts[1]
		}
	}
	return periodID
}
