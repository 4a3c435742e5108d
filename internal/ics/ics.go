package ics

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
)

const prodID = "-//MeetingScheduler//Bookings//EN"

// ErrEmpty is returned for an empty list: a VCALENDAR needs at least one
// component.
var ErrEmpty = errors.New("no meetings to export")

// Encode writes meetings as one VCALENDAR with a VEVENT per booking.
func Encode(w io.Writer, meetings []models.Meeting, loc *time.Location, stamp time.Time) error {
	if len(meetings) == 0 {
		return ErrEmpty
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	for _, m := range meetings {
		start, end, err := m.Interval(loc)
		if err != nil {
			return fmt.Errorf("meeting %s: %w", m.ID, err)
		}
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, m.ID)
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
		event.Props.SetText(ical.PropSummary, m.Topic)
		if m.Email != "" {
			attendee := ical.NewProp(ical.PropAttendee)
			attendee.Value = "mailto:" + m.Email
			event.Props.Add(attendee)
		}
		cal.Children = append(cal.Children, event.Component)
	}
	return ical.NewEncoder(w).Encode(cal)
}
