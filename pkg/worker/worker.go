package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/pershin-daniil/MeetingScheduler/pkg/metrics"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	"github.com/sirupsen/logrus"
)

type App interface {
	List(ctx context.Context) ([]models.Meeting, error)
	Notify(ctx context.Context, to, subject, body string) string
	Location() *time.Location
}

// Reminder emails attendees shortly before their meeting starts.
type Reminder struct {
	log      *logrus.Entry
	app      App
	lead     time.Duration
	interval time.Duration
	now      func() time.Time

	// reminded is keyed by id and slot, so a rescheduled meeting is
	// reminded again.
	reminded map[string]bool
}

func New(log *logrus.Logger, app App, lead, interval time.Duration) *Reminder {
	return &Reminder{
		log:      log.WithField("component", "worker"),
		app:      app,
		lead:     lead,
		interval: interval,
		now:      time.Now,
		reminded: make(map[string]bool),
	}
}

func (w *Reminder) Run(ctx context.Context) {
	w.log.Infof("sending reminders %v before meetings", w.lead)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.Tick(ctx); err != nil {
			w.log.Warnf("reminder tick failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick sends reminders for meetings starting within the lead time. Each slot
// gets one attempt; a failed send is not repeated.
func (w *Reminder) Tick(ctx context.Context) error {
	meetings, err := w.app.List(ctx)
	if err != nil {
		return fmt.Errorf("err listing meetings: %w", err)
	}
	now := w.now()
	seen := make(map[string]bool, len(meetings))
	for _, m := range meetings {
		key := m.ID + "|" + m.Date + "|" + m.Time
		seen[key] = true
		if w.reminded[key] {
			continue
		}
		start, _, err := m.Interval(w.app.Location())
		if err != nil {
			w.log.Warnf("skipping meeting %s: %v", m.ID, err)
			continue
		}
		until := start.Sub(now)
		if until <= 0 || until > w.lead {
			continue
		}
		msg := fmt.Sprintf("Reminder: your meeting '%s' starts on %s at %s.", m.Topic, m.Date, m.Time)
		w.reminded[key] = true
		if warning := w.app.Notify(ctx, m.Email, "Meeting Reminder", msg); warning == "" {
			metrics.RemindersSent.Inc()
		}
	}
	for key := range w.reminded {
		if !seen[key] {
			delete(w.reminded, key)
		}
	}
	return nil
}
