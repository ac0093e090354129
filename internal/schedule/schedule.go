// Package schedule runs recurring office reports.
package schedule

import (
	"fmt"
	"time"
)

// Frequency is how often a scheduled report is produced.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ParseFrequency validates a frequency name.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case Daily, Weekly, Monthly:
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q (want daily, weekly or monthly)", s)
}

// NextRun returns the run time one period after from. Monthly runs keep the
// calendar day and normalize overflow the way time.AddDate does.
func NextRun(freq Frequency, from time.Time) time.Time {
	switch freq {
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Monthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// PrevRun steps one period back from from. It does not undo NextRun for
// monthly slots past the 28th; use WindowSince with the stored slot for those.
func PrevRun(freq Frequency, from time.Time) time.Time {
	switch freq {
	case Weekly:
		return from.AddDate(0, 0, -7)
	case Monthly:
		return from.AddDate(0, -1, 0)
	default:
		return from.AddDate(0, 0, -1)
	}
}

// FirstRun returns the first run time for a new schedule: the next midnight UTC.
func FirstRun(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// Window returns the inclusive date range of a schedule's first run at runAt:
// the whole days between PrevRun(runAt) and runAt.
func Window(freq Frequency, runAt time.Time) (start, end string) {
	return WindowSince(PrevRun(freq, runAt), runAt)
}

// WindowSince returns the whole days from the previous slot through the day
// before runAt. Later runs start at the slot of the run before them, so
// consecutive windows touch even when monthly stepping skips a short month.
func WindowSince(prevSlot, runAt time.Time) (start, end string) {
	last := runAt.AddDate(0, 0, -1)
	if last.Before(prevSlot) {
		last = prevSlot
	}
	return prevSlot.Format("2006-01-02"), last.Format("2006-01-02")
}
