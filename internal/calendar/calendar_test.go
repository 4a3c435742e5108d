package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pershin-daniil/MeetingScheduler/pkg/logger"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var zone = time.FixedZone("PKT", 5*60*60)

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

type recorded struct {
	method string
	path   string
	event  calendar.Event
}

func newTestCalendar(t *testing.T, status int, response string) (*Calendar, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recorded{method: r.Method, path: r.URL.Path}
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&call.event)
		}
		rec.mu.Lock()
		rec.calls = append(rec.calls, call)
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewWithService(logger.New("error"), svc, "primary", zone), rec
}

func TestInsert(t *testing.T) {
	c, calls := newTestCalendar(t, http.StatusOK, `{"id":"evt-1"}`)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, zone)

	id, err := c.Insert(context.Background(), "Planning", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "evt-1", id)
	require.Len(t, calls.all(), 1)
	got := calls.all()[0]
	require.Equal(t, http.MethodPost, got.method)
	require.Equal(t, "/calendars/primary/events", got.path)
	require.Equal(t, "Planning", got.event.Summary)
	require.Equal(t, "2024-06-01T10:00:00+05:00", got.event.Start.DateTime)
	require.Equal(t, "2024-06-01T11:00:00+05:00", got.event.End.DateTime)
	require.Equal(t, "PKT", got.event.Start.TimeZone)
}

func TestUpdate(t *testing.T) {
	c, calls := newTestCalendar(t, http.StatusOK, `{"id":"evt-1"}`)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, c.Update(context.Background(), "evt-1", "Retro", start, start.Add(30*time.Minute)))
	got := calls.all()[0]
	require.Equal(t, http.MethodPut, got.method)
	require.Equal(t, "/calendars/primary/events/evt-1", got.path)
	require.Equal(t, "Retro", got.event.Summary)
	require.Equal(t, "2024-06-01T15:00:00+05:00", got.event.Start.DateTime)
}

func TestDelete(t *testing.T) {
	c, calls := newTestCalendar(t, http.StatusNoContent, "")
	require.NoError(t, c.Delete(context.Background(), "evt-1"))
	require.Equal(t, http.MethodDelete, calls.all()[0].method)
	require.Equal(t, "/calendars/primary/events/evt-1", calls.all()[0].path)
}

func TestRemoteError(t *testing.T) {
	c, _ := newTestCalendar(t, http.StatusForbidden, `{"error":{"code":403,"message":"forbidden"}}`)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, zone)

	_, err := c.Insert(context.Background(), "Planning", start, start.Add(time.Hour))
	require.Error(t, err)
	require.Error(t, c.Delete(context.Background(), "evt-1"))
}
