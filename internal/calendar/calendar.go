package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Calendar books events in one fixed Google calendar.
type Calendar struct {
	log        *logrus.Entry
	srv        *calendar.Service
	calendarID string
	loc        *time.Location
}

// New builds a client authenticated with the service account key in
// credentialsFile.
func New(ctx context.Context, log *logrus.Logger, credentialsFile, calendarID string, loc *time.Location) (*Calendar, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("err reading credentials %s: %w", credentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("err parsing credentials: %w", err)
	}
	srv, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("err creating calendar client: %w", err)
	}
	return NewWithService(log, srv, calendarID, loc), nil
}

func NewWithService(log *logrus.Logger, srv *calendar.Service, calendarID string, loc *time.Location) *Calendar {
	return &Calendar{
		log:        log.WithField("component", "calendar"),
		srv:        srv,
		calendarID: calendarID,
		loc:        loc,
	}
}

func (c *Calendar) Insert(ctx context.Context, summary string, start, end time.Time) (string, error) {
	created, err := c.srv.Events.Insert(c.calendarID, c.event(summary, start, end)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("err inserting event %q: %w", summary, err)
	}
	c.log.Debugf("event %s created for %q", created.Id, summary)
	return created.Id, nil
}

func (c *Calendar) Update(ctx context.Context, eventID, summary string, start, end time.Time) error {
	if _, err := c.srv.Events.Update(c.calendarID, eventID, c.event(summary, start, end)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("err updating event %s: %w", eventID, err)
	}
	c.log.Debugf("event %s updated", eventID)
	return nil
}

func (c *Calendar) Delete(ctx context.Context, eventID string) error {
	if err := c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("err deleting event %s: %w", eventID, err)
	}
	c.log.Debugf("event %s deleted", eventID)
	return nil
}

func (c *Calendar) event(summary string, start, end time.Time) *calendar.Event {
	return &calendar.Event{
		Summary: summary,
		Start:   c.dateTime(start),
		End:     c.dateTime(end),
	}
}

func (c *Calendar) dateTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.In(c.loc).Format(time.RFC3339),
		TimeZone: c.loc.String(),
	}
}
