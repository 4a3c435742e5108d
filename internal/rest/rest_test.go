package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pershin-daniil/MeetingScheduler/internal/auth"
	"github.com/pershin-daniil/MeetingScheduler/pkg/csvstore"
	"github.com/pershin-daniil/MeetingScheduler/pkg/logger"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	"github.com/pershin-daniil/MeetingScheduler/pkg/notifier"
	"github.com/pershin-daniil/MeetingScheduler/pkg/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

const (
	version = "test"
	apiKey  = "test-key"
)

var zone = time.FixedZone("PKT", 5*60*60)

type fakeCalendar struct {
	mu     sync.Mutex
	next   int
	events map[string]string
	fail   bool
}

func (c *fakeCalendar) Insert(_ context.Context, summary string, _, _ time.Time) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return "", errors.New("calendar unavailable")
	}
	c.next++
	id := fmt.Sprintf("evt-%d", c.next)
	c.events[id] = summary
	return id, nil
}

func (c *fakeCalendar) Update(_ context.Context, eventID, summary string, _, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("calendar unavailable")
	}
	c.events[eventID] = summary
	return nil
}

func (c *fakeCalendar) Delete(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.events, eventID)
	return nil
}

type RestTestSuite struct {
	suite.Suite
	log      *logrus.Logger
	calendar *fakeCalendar
	srv      *httptest.Server
	token    string
}

func TestRestTestSuite(t *testing.T) {
	suite.Run(t, new(RestTestSuite))
}

func (s *RestTestSuite) SetupTest() {
	s.log = logger.New("error")
	s.calendar = &fakeCalendar{events: make(map[string]string)}
	store := csvstore.New(s.log, filepath.Join(s.T().TempDir(), "meetings.csv"))
	app := service.NewScheduleService(s.log, store, s.calendar, notifier.NewLog(s.log), service.Config{
		Location:    zone,
		HostAddress: "host@example.com",
		Now:         func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, zone) },
	})
	verifier, err := auth.NewAPIKeyVerifier("host", apiKey)
	s.Require().NoError(err)
	sessions := auth.NewSessions(verifier, "signing-key", time.Hour)

	server := New(s.log, app, sessions, ":0", version)
	s.srv = httptest.NewServer(server.Handler())
	s.token = s.login(apiKey)
}

func (s *RestTestSuite) TearDownTest() {
	s.srv.Close()
}

func (s *RestTestSuite) login(key string) string {
	s.T().Helper()
	var result models.TokenResponse
	resp := s.sendRequest(http.MethodPost, "/api/v1/login", "", models.Credentials{APIKey: key}, &result)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().NotEmpty(result.Token)
	return result.Token
}

func (s *RestTestSuite) sendRequest(method, path, token string, body, dest interface{}) *http.Response {
	s.T().Helper()
	var reader *bytes.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(reqBody)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.srv.URL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.srv.Client().Do(req)
	s.Require().NoError(err)
	defer func() {
		s.Require().NoError(resp.Body.Close())
	}()
	if dest != nil && resp.StatusCode < http.StatusMultipleChoices {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp
}

func (s *RestTestSuite) createMeeting(req models.MeetingRequest) models.Outcome {
	s.T().Helper()
	var result models.Outcome
	resp := s.sendRequest(http.MethodPost, "/api/v1/meetings", s.token, req, &result)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	return result
}

func meetingRequest(clock string) models.MeetingRequest {
	return models.MeetingRequest{
		Topic:    "Planning",
		Date:     "2024-06-01",
		Time:     clock,
		Duration: 60,
		Email:    "guest@example.com",
		Phone:    "555",
	}
}

func (s *RestTestSuite) TestVersion() {
	resp, err := s.srv.Client().Get(s.srv.URL + "/version")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *RestTestSuite) TestMetrics() {
	resp, err := s.srv.Client().Get(s.srv.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *RestTestSuite) TestRequiresSession() {
	resp := s.sendRequest(http.MethodGet, "/api/v1/meetings?date=2024-06-01", "", nil, nil)
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
	resp = s.sendRequest(http.MethodGet, "/api/v1/meetings?date=2024-06-01", "garbage", nil, nil)
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RestTestSuite) TestLoginRejected() {
	resp := s.sendRequest(http.MethodPost, "/api/v1/login", "", models.Credentials{APIKey: "wrong"}, nil)
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RestTestSuite) TestLogoutClosesSession() {
	resp := s.sendRequest(http.MethodPost, "/api/v1/logout", s.token, nil, nil)
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)
	resp = s.sendRequest(http.MethodGet, "/api/v1/meetings?date=2024-06-01", s.token, nil, nil)
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RestTestSuite) TestMeetingLifecycle() {
	created := s.createMeeting(meetingRequest("10:00"))
	s.Require().Equal("evt-1", created.Meeting.CalendarEventID)
	other := s.createMeeting(meetingRequest("11:00"))

	var listed []models.Meeting
	resp := s.sendRequest(http.MethodGet, "/api/v1/meetings?date=2024-06-01", s.token, nil, &listed)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(listed, 2)

	var got models.Meeting
	resp = s.sendRequest(http.MethodGet, "/api/v1/meetings/"+created.Meeting.ID, s.token, nil, &got)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Equal("Planning", got.Topic)

	update := meetingRequest("09:00")
	update.Topic = "Moved"
	var updated models.Outcome
	resp = s.sendRequest(http.MethodPut, "/api/v1/meetings/"+created.Meeting.ID, s.token, update, &updated)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Equal("09:00", updated.Meeting.Time)
	s.calendar.mu.Lock()
	s.Require().Equal("Moved", s.calendar.events["evt-1"])
	s.calendar.mu.Unlock()

	resp = s.sendRequest(http.MethodDelete, "/api/v1/meetings/"+created.Meeting.ID, s.token, nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.sendRequest(http.MethodGet, "/api/v1/meetings?date=2024-06-01", s.token, nil, &listed)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(listed, 1)
	s.Require().Equal(other.Meeting.ID, listed[0].ID)
}

func (s *RestTestSuite) TestErrorMapping() {
	s.createMeeting(meetingRequest("10:00"))

	resp := s.sendRequest(http.MethodPost, "/api/v1/meetings", s.token, meetingRequest("10:30"), nil)
	s.Require().Equal(http.StatusConflict, resp.StatusCode)

	bad := meetingRequest("12:00")
	bad.Duration = 45
	resp = s.sendRequest(http.MethodPost, "/api/v1/meetings", s.token, bad, nil)
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)

	resp = s.sendRequest(http.MethodPut, "/api/v1/meetings/missing", s.token, meetingRequest("12:00"), nil)
	s.Require().Equal(http.StatusNotFound, resp.StatusCode)
	resp = s.sendRequest(http.MethodDelete, "/api/v1/meetings/missing", s.token, nil, nil)
	s.Require().Equal(http.StatusNotFound, resp.StatusCode)

	resp = s.sendRequest(http.MethodGet, "/api/v1/meetings?date=tomorrow", s.token, nil, nil)
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)

	s.calendar.mu.Lock()
	s.calendar.fail = true
	s.calendar.mu.Unlock()
	resp = s.sendRequest(http.MethodPost, "/api/v1/meetings", s.token, meetingRequest("14:00"), nil)
	s.Require().Equal(http.StatusBadGateway, resp.StatusCode)
}

func (s *RestTestSuite) TestCalendarExport() {
	resp := s.sendRequest(http.MethodGet, "/api/v1/calendar.ics", s.token, nil, nil)
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)

	s.createMeeting(meetingRequest("10:00"))
	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/api/v1/calendar.ics", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err = s.srv.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().True(strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar"))
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	s.Require().NoError(err)
	s.Require().Contains(body.String(), "SUMMARY:Planning")
}
