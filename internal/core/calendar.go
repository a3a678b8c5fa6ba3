package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CalendarDay is a timezone-naive date as the user wrote it. It is never
// derived from an instant, so it cannot roll over at UTC midnight.
type CalendarDay struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCalendarDay builds a day without normalising it; use Validate to check it.
func NewCalendarDay(year int, month time.Month, day int) CalendarDay {
	return CalendarDay{Year: year, Month: month, Day: day}
}

// ParseCalendarDay reads "YYYY-MM-DD". A longer timestamp string is accepted
// and only its authored date prefix is used: "2024-03-15T23:30:00-03:00" is
// the 15th regardless of the offset.
func ParseCalendarDay(s string) (CalendarDay, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CalendarDay{}, &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return CalendarDay{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// CalendarDayOf returns the wall-clock date of t in its own location.
func CalendarDayOf(t time.Time) CalendarDay {
	y, m, d := t.Date()
	return CalendarDay{Year: y, Month: m, Day: d}
}

func (d CalendarDay) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d CalendarDay) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	if d.Month < time.January || d.Month > time.December {
		return ErrInvalidMonth
	}
	if d.Day < 1 || d.Day > DaysIn(d.Year, d.Month) {
		return ErrInvalidDay
	}
	return nil
}

// MonthIndex is the linear month this day belongs to.
func (d CalendarDay) MonthIndex() Month {
	return MonthOf(d.Year, d.Month)
}

func (d CalendarDay) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CalendarDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *CalendarDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	parsed, err := ParseCalendarDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Month is a linear month index: year*12 + (month-1). Comparisons and
// arithmetic across year boundaries are plain integer operations.
type Month int

// MonthKey is the canonical "YYYY-MM" join key.
type MonthKey string

func MonthOf(year int, month time.Month) Month {
	return Month(year*12 + int(month) - 1)
}

// ParseMonthKey parses "YYYY-MM". Both fields must be plain ASCII digits.
func ParseMonthKey(key string) (Month, error) {
	s := strings.TrimSpace(key)
	if len(s) != 7 {
		return 0, &ValidationError{Field: "month", Err: ErrInvalidMonthKey}
	}
	t, err := time.Parse("2006-01", s)
	if err != nil || t.Year() < 1 {
		return 0, &ValidationError{Field: "month", Err: ErrInvalidMonthKey}
	}
	return MonthOf(t.Year(), t.Month()), nil
}

// Month parses the key, see ParseMonthKey.
func (k MonthKey) Month() (Month, error) {
	return ParseMonthKey(string(k))
}

func (k MonthKey) Validate() error {
	_, err := ParseMonthKey(string(k))
	return err
}

func (m Month) Year() int {
	return floorDiv(int(m), 12)
}

func (m Month) MonthOfYear() time.Month {
	return time.Month(int(m)-m.Year()*12) + 1
}

func (m Month) Add(n int) Month {
	return m + Month(n)
}

// Sub returns the number of months from o to m.
func (m Month) Sub(o Month) int {
	return int(m - o)
}

func (m Month) Key() MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", m.Year(), int(m.MonthOfYear())))
}

// Label renders "Mar 2024".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.MonthOfYear().String()[:3], m.Year())
}

// DueDate is the calendar day a monthly due day falls on in m. Day 31 in a
// 30-day month (or February) is clamped to the last day.
func (m Month) DueDate(dueDay int) CalendarDay {
	last := DaysIn(m.Year(), m.MonthOfYear())
	if dueDay > last {
		dueDay = last
	}
	if dueDay < 1 {
		dueDay = 1
	}
	return CalendarDay{Year: m.Year(), Month: m.MonthOfYear(), Day: dueDay}
}

func (m Month) String() string {
	return string(m.Key())
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
