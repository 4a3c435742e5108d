package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pershin-daniil/MeetingScheduler/pkg/metrics"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Load(ctx context.Context) ([]models.Meeting, error)
	Save(ctx context.Context, meetings []models.Meeting) error
}

// Calendar mirrors bookings into a remote calendar. Event ids are opaque.
type Calendar interface {
	Insert(ctx context.Context, summary string, start, end time.Time) (string, error)
	Update(ctx context.Context, eventID, summary string, start, end time.Time) error
	Delete(ctx context.Context, eventID string) error
}

type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Config struct {
	Location    *time.Location
	HostAddress string
	// Now defaults to time.Now.
	Now func() time.Time
}

type ScheduleService struct {
	log         *logrus.Entry
	store       Store
	calendar    Calendar
	notifier    Notifier
	loc         *time.Location
	hostAddress string
	now         func() time.Time

	// mu serialises mutations so the store only ever sees one writer.
	mu sync.Mutex
}

func NewScheduleService(log *logrus.Logger, store Store, calendar Calendar, notifier Notifier, cfg Config) *ScheduleService {
	s := ScheduleService{
		log:         log.WithField("component", "service"),
		store:       store,
		calendar:    calendar,
		notifier:    notifier,
		loc:         cfg.Location,
		hostAddress: cfg.HostAddress,
		now:         cfg.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return &s
}

func (s *ScheduleService) Location() *time.Location {
	return s.loc
}

// HasConflict reports whether [start, end) overlaps any stored meeting other
// than excludeID, or starts before now. Touching endpoints do not overlap.
func (s *ScheduleService) HasConflict(ctx context.Context, start, end time.Time, excludeID string) (bool, error) {
	meetings, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("err loading meetings: %w", err)
	}
	for _, m := range meetings {
		if excludeID != "" && m.ID == excludeID {
			continue
		}
		mStart, mEnd, err := m.Interval(s.loc)
		if err != nil {
			return false, fmt.Errorf("%w: meeting %s: %w", models.ErrStorage, m.ID, err)
		}
		if start.Before(mEnd) && end.After(mStart) {
			return true, nil
		}
	}
	// Applies to edits too, even when the time is unchanged.
	if start.Before(s.now().In(s.loc)) {
		return true, nil
	}
	return false, nil
}

func (s *ScheduleService) Create(ctx context.Context, req models.MeetingRequest) (models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := s.create(ctx, req)
	record("create", err)
	return outcome, err
}

func (s *ScheduleService) create(ctx context.Context, req models.MeetingRequest) (models.Outcome, error) {
	if err := req.Validate(); err != nil {
		return models.Outcome{}, err
	}
	start, end, err := req.Interval(s.loc)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("%w: %w", models.ErrInvalidMeeting, err)
	}
	conflict, err := s.HasConflict(ctx, start, end, "")
	if err != nil {
		return models.Outcome{}, err
	}
	if conflict {
		metrics.ConflictCount.WithLabelValues("create").Inc()
		return models.Outcome{}, models.ErrConflict
	}
	eventID, err := s.calendarCall("insert", func() (string, error) {
		return s.calendar.Insert(ctx, req.Topic, start, end)
	})
	if err != nil {
		return models.Outcome{}, err
	}
	meetings, err := s.store.Load(ctx)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("err loading meetings: %w", err)
	}
	meeting := models.Meeting{
		ID:              uuid.NewString(),
		Topic:           req.Topic,
		Date:            req.Date,
		Time:            req.Time,
		Duration:        req.Duration,
		Email:           req.Email,
		Phone:           req.Phone,
		CalendarEventID: eventID,
		CreatedAt:       s.now().In(s.loc),
	}
	meetings = append(meetings, meeting)
	if err = s.store.Save(ctx, meetings); err != nil {
		return models.Outcome{}, fmt.Errorf("err saving meeting %s: %w", meeting.ID, err)
	}
	s.log.WithField("meeting", meeting.ID).Infof("meeting %q created on %s at %s", meeting.Topic, meeting.Date, meeting.Time)

	outcome := models.Outcome{Meeting: meeting}
	outcome.Warnings = s.notifyBoth(ctx, meeting.Email,
		"Meeting Confirmed",
		fmt.Sprintf("Your meeting '%s' is scheduled on %s at %s.", meeting.Topic, meeting.Date, meeting.Time),
		"Meeting Scheduled",
		fmt.Sprintf("You scheduled a meeting '%s' on %s at %s with %s.", meeting.Topic, meeting.Date, meeting.Time, meeting.Email),
	)
	return outcome, nil
}

// Update overwrites the mutable fields of meeting id. A missing id changes
// nothing and reports ErrMeetingNotFound.
func (s *ScheduleService) Update(ctx context.Context, id string, req models.MeetingRequest) (models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := s.update(ctx, id, req)
	record("update", err)
	return outcome, err
}

func (s *ScheduleService) update(ctx context.Context, id string, req models.MeetingRequest) (models.Outcome, error) {
	meetings, err := s.store.Load(ctx)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("err loading meetings: %w", err)
	}
	idx := indexOf(meetings, id)
	if idx < 0 {
		return models.Outcome{}, models.ErrMeetingNotFound
	}
	if err = req.Validate(); err != nil {
		return models.Outcome{}, err
	}
	start, end, err := req.Interval(s.loc)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("%w: %w", models.ErrInvalidMeeting, err)
	}
	conflict, err := s.HasConflict(ctx, start, end, id)
	if err != nil {
		return models.Outcome{}, err
	}
	if conflict {
		metrics.ConflictCount.WithLabelValues("update").Inc()
		return models.Outcome{}, models.ErrConflict
	}
	meeting := &meetings[idx]
	if _, err = s.calendarCall("update", func() (string, error) {
		return "", s.calendar.Update(ctx, meeting.CalendarEventID, req.Topic, start, end)
	}); err != nil {
		return models.Outcome{}, err
	}
	meeting.Date = req.Date
	meeting.Time = req.Time
	meeting.Duration = req.Duration
	meeting.Topic = req.Topic
	meeting.Email = req.Email
	meeting.Phone = req.Phone
	if err = s.store.Save(ctx, meetings); err != nil {
		return models.Outcome{}, fmt.Errorf("err saving meeting %s: %w", id, err)
	}
	s.log.WithField("meeting", id).Infof("meeting %q moved to %s at %s", meeting.Topic, meeting.Date, meeting.Time)

	outcome := models.Outcome{Meeting: *meeting}
	outcome.Warnings = s.notifyBoth(ctx, meeting.Email,
		"Meeting Updated",
		fmt.Sprintf("Your meeting '%s' has been updated to %s at %s.", meeting.Topic, meeting.Date, meeting.Time),
		"Meeting Updated",
		fmt.Sprintf("Your meeting '%s' has been updated to %s at %s with %s.", meeting.Topic, meeting.Date, meeting.Time, meeting.Email),
	)
	return outcome, nil
}

// Delete removes meeting id. The remote event delete is best-effort: the
// local record goes away even if the calendar call fails.
func (s *ScheduleService) Delete(ctx context.Context, id string) (models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := s.delete(ctx, id)
	record("delete", err)
	return outcome, err
}

func (s *ScheduleService) delete(ctx context.Context, id string) (models.Outcome, error) {
	meetings, err := s.store.Load(ctx)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("err loading meetings: %w", err)
	}
	idx := indexOf(meetings, id)
	if idx < 0 {
		return models.Outcome{}, models.ErrMeetingNotFound
	}
	meeting := meetings[idx]
	outcome := models.Outcome{Meeting: meeting}

	if warning := s.bestEffort("calendar_delete", func() error {
		_, err := s.calendarCall("delete", func() (string, error) {
			return "", s.calendar.Delete(ctx, meeting.CalendarEventID)
		})
		return err
	}); warning != "" {
		outcome.Warnings = append(outcome.Warnings, warning)
	}

	remaining := make([]models.Meeting, 0, len(meetings)-1)
	for _, m := range meetings {
		if m.ID != id {
			remaining = append(remaining, m)
		}
	}
	if err = s.store.Save(ctx, remaining); err != nil {
		return models.Outcome{}, fmt.Errorf("err saving meetings without %s: %w", id, err)
	}
	s.log.WithField("meeting", id).Infof("meeting %q on %s at %s deleted", meeting.Topic, meeting.Date, meeting.Time)

	outcome.Warnings = append(outcome.Warnings, s.notifyBoth(ctx, meeting.Email,
		"Meeting Cancelled",
		fmt.Sprintf("Your meeting '%s' on %s at %s has been cancelled.", meeting.Topic, meeting.Date, meeting.Time),
		"Meeting Cancelled",
		fmt.Sprintf("Your meeting '%s' on %s at %s with %s has been cancelled.", meeting.Topic, meeting.Date, meeting.Time, meeting.Email),
	)...)
	return outcome, nil
}

func (s *ScheduleService) List(ctx context.Context) ([]models.Meeting, error) {
	meetings, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("err loading meetings: %w", err)
	}
	return meetings, nil
}

// ListByDate returns the meetings booked on date (YYYY-MM-DD) in stored order.
func (s *ScheduleService) ListByDate(ctx context.Context, date string) ([]models.Meeting, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", models.ErrInvalidMeeting, date)
	}
	meetings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.Meeting, 0)
	for _, m := range meetings {
		if m.Date == date {
			result = append(result, m)
		}
	}
	return result, nil
}

func (s *ScheduleService) Get(ctx context.Context, id string) (models.Meeting, error) {
	meetings, err := s.List(ctx)
	if err != nil {
		return models.Meeting{}, err
	}
	idx := indexOf(meetings, id)
	if idx < 0 {
		return models.Meeting{}, models.ErrMeetingNotFound
	}
	return meetings[idx], nil
}

// Notify sends one best-effort message. Used by the reminder worker.
func (s *ScheduleService) Notify(ctx context.Context, to, subject, body string) string {
	return s.bestEffort("notify", func() error {
		return s.notifier.Send(ctx, to, subject, body)
	})
}

func (s *ScheduleService) notifyBoth(ctx context.Context, attendee, attendeeSubject, attendeeBody, hostSubject, hostBody string) []string {
	var warnings []string
	if w := s.Notify(ctx, attendee, attendeeSubject, attendeeBody); w != "" {
		warnings = append(warnings, w)
	}
	if w := s.Notify(ctx, s.hostAddress, hostSubject, hostBody); w != "" {
		warnings = append(warnings, w)
	}
	return warnings
}

// bestEffort runs fn and turns a failure into a logged warning. Only
// notifications and remote calendar deletes go through here.
func (s *ScheduleService) bestEffort(call string, fn func() error) string {
	err := fn()
	if err == nil {
		return ""
	}
	metrics.BestEffortErrCount.WithLabelValues(call).Inc()
	if call == "notify" {
		err = fmt.Errorf("%w: %w", models.ErrNotification, err)
	}
	s.log.Warnf("%s failed: %v", call, err)
	return fmt.Sprintf("%s failed: %v", call, err)
}

func (s *ScheduleService) calendarCall(method string, fn func() (string, error)) (string, error) {
	started := time.Now()
	result, err := fn()
	metrics.CalendarDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %s event: %w", models.ErrCalendar, method, err)
	}
	return result, nil
}

func indexOf(meetings []models.Meeting, id string) int {
	for i, m := range meetings {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func record(operation string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, models.ErrConflict):
		result = "conflict"
	case errors.Is(err, models.ErrMeetingNotFound):
		result = "not_found"
	case errors.Is(err, models.ErrInvalidMeeting):
		result = "invalid"
	default:
		result = "error"
	}
	metrics.OperationCount.WithLabelValues(operation, result).Inc()
}
