// This file implements the schedule calculator for recurring transactions.
// The advancement rules are pure and deterministic so the same template
// always lands on the same next occurrence.
package core

import "time"

// NextOccurrence computes the next occurrence date after anchor for the
// given frequency.
//
// Calendar frequencies keep the anchor's day of month; when the target
// month is shorter the day is clamped to its last day (Jan 31 monthly ->
// Feb 28, or Feb 29 in a leap year). Custom advances by customDays days;
// when customDays is zero or negative the monthly rule is used instead.
// The fallback is documented behavior, not an error: callers that want
// stricter semantics should validate customDays before storing.
func NextOccurrence(anchor time.Time, f Frequency, customDays int) time.Time {
	anchor = dateOnly(anchor)
	switch f {
	case Quarterly:
		return addMonthsClamped(anchor, 3)
	case Yearly:
		return addMonthsClamped(anchor, 12)
	case Custom:
		if customDays > 0 {
			return anchor.AddDate(0, 0, customDays)
		}
		return addMonthsClamped(anchor, 1)
	default: // Monthly
		return addMonthsClamped(anchor, 1)
	}
}

// addMonthsClamped adds months calendar months, clamping the day of month
// to the last day of the target month. time.AddDate is not used for the
// month step because it normalizes Jan 31 + 1 month to Mar 2/3 instead of
// clamping to the end of February.
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, t.Location())
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MonthWindow returns the half-open window [first of month, first of next
// month) containing t. Together with date-only transaction dates this is
// equivalent to the inclusive [start, end-of-month] calendar window.
func MonthWindow(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// QuarterWindow returns the half-open calendar quarter window containing t.
func QuarterWindow(t time.Time) (start, end time.Time) {
	qStartMonth := time.Month((int(t.Month())-1)/3*3 + 1)
	start = time.Date(t.Year(), qStartMonth, 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 3, 0)
}
