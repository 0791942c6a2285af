package domain

import "time"

// NextAllowed returns the earliest time the next declaration may happen.
// Before any declaration that is the end date, which may be unset.
func NextAllowed(endDate, lastDeclaredAt *time.Time, intervalMonths int) *time.Time {
	if lastDeclaredAt == nil {
		return endDate
	}
	next := addMonths(*lastDeclaredAt, intervalMonths)
	return &next
}

// addMonths moves t by months, clamping the day to the end of the target month
// so Jan 31 + 1 month is Feb 28 (or 29).
func addMonths(t time.Time, months int) time.Time {
	if months == 0 {
		return t
	}
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return firstOfTarget.AddDate(0, 0, day-1)
}

// CheckEligibility gates a declaration on the pitch's distribution history.
// The first declaration waits for the end date; later ones wait intervalMonths
// after the previous one. Declaring exactly at the threshold is allowed.
func CheckEligibility(now time.Time, endDate, lastDeclaredAt *time.Time, intervalMonths int) error {
	if lastDeclaredAt == nil {
		if endDate != nil && now.Before(*endDate) {
			return &TooEarlyError{EndDate: *endDate}
		}
		return nil
	}
	next := addMonths(*lastDeclaredAt, intervalMonths)
	if now.Before(next) {
		return &NotYetDueError{NextAllowed: next}
	}
	return nil
}
