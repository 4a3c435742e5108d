package models

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// DefaultDuration is used for stored rows that carry no duration column.
	DefaultDuration = 60
)

var allowedDurations = map[int]bool{30: true, 60: true, 90: true}

type Meeting struct {
	ID              string    `json:"id" db:"id"`
	Topic           string    `json:"topic" db:"topic"`
	Date            string    `json:"date" db:"date"`
	Time            string    `json:"time" db:"time"`
	Duration        int       `json:"duration" db:"duration"`
	Email           string    `json:"email" db:"email"`
	Phone           string    `json:"phone" db:"phone"`
	CalendarEventID string    `json:"calendarEventId" db:"calendar_event_id"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// Interval returns the half-open [start, end) span of the meeting in loc.
func (m Meeting) Interval(loc *time.Location) (time.Time, time.Time, error) {
	start, err := StartAt(m.Date, m.Time, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	duration := m.Duration
	if duration == 0 {
		duration = DefaultDuration
	}
	return start, start.Add(time.Duration(duration) * time.Minute), nil
}

type MeetingRequest struct {
	Topic    string `json:"topic"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (r MeetingRequest) Validate() error {
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidMeeting, r.Date)
	}
	if _, err := time.Parse(TimeLayout, r.Time); err != nil {
		return fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidMeeting, r.Time)
	}
	if !allowedDurations[r.Duration] {
		return fmt.Errorf("%w: duration must be 30, 60 or 90 minutes", ErrInvalidMeeting)
	}
	return nil
}

// Interval returns the half-open [start, end) span the request asks for.
func (r MeetingRequest) Interval(loc *time.Location) (time.Time, time.Time, error) {
	start, err := StartAt(r.Date, r.Time, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(time.Duration(r.Duration) * time.Minute), nil
}

// Outcome is the result of a successful mutation. Warnings carry the
// best-effort failures that did not block it.
type Outcome struct {
	Meeting  Meeting  `json:"meeting"`
	Warnings []string `json:"warnings,omitempty"`
}

// StartAt combines a date and a time of day in loc.
func StartAt(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("err parsing date %q: %w", date, err)
	}
	c, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("err parsing time %q: %w", clock, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}
