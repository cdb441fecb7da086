package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/streaks/internal/constants"
)

// Day is a calendar day in the local calendar, formatted as YYYY-MM-DD.
// Two instants are the same day iff they produce the same Day.
type Day string

// DayOf normalizes an instant to its local calendar day.
func DayOf(t time.Time) Day {
	return Day(t.Local().Format(constants.DateFormat))
}

// Today returns the current local calendar day.
func Today() Day {
	return DayOf(time.Now())
}

// ParseDay validates a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(constants.DateFormat, s); err != nil {
		return "", fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", s)
	}
	return Day(s), nil
}

// Time returns local midnight of the day. Invalid days yield the zero time.
func (d Day) Time() time.Time {
	t, err := time.ParseInLocation(constants.DateFormat, string(d), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays shifts the day by n calendar days.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(constants.DateFormat, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(constants.DateFormat))
}

// DaysSince returns the number of whole calendar days from other to d.
// Arithmetic is done in UTC so DST transitions never skew the count.
func (d Day) DaysSince(other Day) int {
	a, errA := time.Parse(constants.DateFormat, string(d))
	b, errB := time.Parse(constants.DateFormat, string(other))
	if errA != nil || errB != nil {
		return 0
	}
	return int(a.Sub(b).Hours() / 24)
}

func (d Day) String() string {
	return string(d)
}
