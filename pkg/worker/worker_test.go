package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pershin-daniil/MeetingScheduler/pkg/logger"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	"github.com/stretchr/testify/require"
)

var zone = time.FixedZone("PKT", 5*60*60)

type fakeApp struct {
	meetings []models.Meeting
	listErr  error
	sent     []string
	warning  string
}

func (a *fakeApp) List(context.Context) ([]models.Meeting, error) {
	return a.meetings, a.listErr
}

func (a *fakeApp) Notify(_ context.Context, to, subject, _ string) string {
	a.sent = append(a.sent, to+"|"+subject)
	return a.warning
}

func (a *fakeApp) Location() *time.Location {
	return zone
}

func newReminder(app App, now time.Time) *Reminder {
	w := New(logger.New("error"), app, 15*time.Minute, time.Minute)
	w.now = func() time.Time { return now }
	return w
}

func TestTickRemindsOnceWithinLead(t *testing.T) {
	ctx := context.Background()
	app := &fakeApp{meetings: []models.Meeting{
		{ID: "soon", Date: "2024-06-01", Time: "10:10", Email: "soon@example.com"},
		{ID: "later", Date: "2024-06-01", Time: "11:00", Email: "later@example.com"},
		{ID: "started", Date: "2024-06-01", Time: "09:30", Email: "started@example.com"},
	}}
	w := newReminder(app, time.Date(2024, 6, 1, 10, 0, 0, 0, zone))

	require.NoError(t, w.Tick(ctx))
	require.NoError(t, w.Tick(ctx))
	require.Equal(t, []string{"soon@example.com|Meeting Reminder"}, app.sent)
}

func TestTickRemindsAgainAfterReschedule(t *testing.T) {
	ctx := context.Background()
	app := &fakeApp{meetings: []models.Meeting{{ID: "a", Date: "2024-06-01", Time: "10:10", Email: "a@example.com"}}}
	w := newReminder(app, time.Date(2024, 6, 1, 10, 0, 0, 0, zone))
	require.NoError(t, w.Tick(ctx))

	app.meetings[0].Time = "10:05"
	require.NoError(t, w.Tick(ctx))
	require.Len(t, app.sent, 2)
	require.Len(t, w.reminded, 1)
}

func TestTickDoesNotRepeatFailedSend(t *testing.T) {
	ctx := context.Background()
	app := &fakeApp{
		meetings: []models.Meeting{{ID: "a", Date: "2024-06-01", Time: "10:10", Email: "a@example.com"}},
		warning:  "notify failed",
	}
	w := newReminder(app, time.Date(2024, 6, 1, 10, 0, 0, 0, zone))
	require.NoError(t, w.Tick(ctx))
	require.NoError(t, w.Tick(ctx))
	require.Len(t, app.sent, 1)
}

func TestTickListError(t *testing.T) {
	app := &fakeApp{listErr: errors.New("disk gone")}
	w := newReminder(app, time.Now())
	require.ErrorContains(t, w.Tick(context.Background()), "disk gone")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(logger.New("error"), &fakeApp{}, time.Minute, time.Millisecond)
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
