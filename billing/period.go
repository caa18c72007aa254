package billing

import "time"

const monthKeyLayout = "2006-01"

// Period is an inclusive day-precision date range. Calculators receive the
// period explicitly; none of them read ambient "selected month" state.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod validates and normalizes a period to midnight bounds.
func NewPeriod(start, end time.Time) (Period, error) {
	if start.IsZero() || end.IsZero() {
		return Period{}, ErrInvalidPeriod
	}
	start = DateOf(start)
	end = DateOf(end)
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// MonthPeriod returns the period covering a whole calendar month.
func MonthPeriod(month time.Time) Period {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	return Period{Start: first, End: first.AddDate(0, 1, -1)}
}

// ParseMonth parses a YYYY-MM key into the first day of that month.
func ParseMonth(key string) (time.Time, error) {
	t, err := time.Parse(monthKeyLayout, key)
	if err != nil {
		return time.Time{}, ErrInvalidPeriod
	}
	return t, nil
}

// MonthKey formats a date as its YYYY-MM grouping key. Grouping uses the
// record's own local date, never a timestamp that could shift across a
// timezone boundary.
func MonthKey(t time.Time) string {
	return t.Format(monthKeyLayout)
}

// Contains reports whether a date falls inside the period, by calendar day.
func (p Period) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Months lists the first day of every calendar month the period touches.
func (p Period) Months() []time.Time {
	var months []time.Time
	cur := time.Date(p.Start.Year(), p.Start.Month(), 1, 0, 0, 0, 0, p.Start.Location())
	last := time.Date(p.End.Year(), p.End.Month(), 1, 0, 0, 0, 0, p.End.Location())
	for !cur.After(last) {
		months = append(months, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// DateOf truncates a time to its calendar day.
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of days in the month containing t.
func DaysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, -1).Day()
}

// SameMonth reports whether two dates fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
