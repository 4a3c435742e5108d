package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pershin-daniil/MeetingScheduler/internal/auth"
	"github.com/pershin-daniil/MeetingScheduler/internal/ics"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
)

type App interface {
	Create(ctx context.Context, req models.MeetingRequest) (models.Outcome, error)
	Update(ctx context.Context, id string, req models.MeetingRequest) (models.Outcome, error)
	Delete(ctx context.Context, id string) (models.Outcome, error)
	Get(ctx context.Context, id string) (models.Meeting, error)
	List(ctx context.Context) ([]models.Meeting, error)
	ListByDate(ctx context.Context, date string) ([]models.Meeting, error)
	Location() *time.Location
}

func (s *Server) versionHandler(w http.ResponseWriter, _ *http.Request) {
	_, err := fmt.Fprintf(w, "%s\n", s.version)
	if err != nil {
		s.log.Warnf("err during writing to connection: %v", err)
	}
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	session, token, err := s.sessions.Open(r.Context(), creds)
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		s.writeResponse(w, http.StatusUnauthorized, err)
		return
	case err != nil:
		s.log.Warnf("err during login: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Infof("operator %s logged in, session %s", session.Operator, session.ID)
	s.writeResponse(w, http.StatusOK, models.TokenResponse{Token: token})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		s.writeResponse(w, http.StatusUnauthorized, ErrUnauthorised)
		return
	}
	s.sessions.Close(session.ID)
	s.log.Infof("operator %s logged out, session %s", session.Operator, session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMeetingsHandler(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().In(s.app.Location()).Format(models.DateLayout)
	}
	meetings, err := s.app.ListByDate(r.Context(), date)
	if err != nil {
		s.writeError(w, "listing meetings", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meetings)
}

func (s *Server) createMeetingHandler(w http.ResponseWriter, r *http.Request) {
	var req models.MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	outcome, err := s.app.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, "creating meeting", err)
		return
	}
	s.writeResponse(w, http.StatusCreated, outcome)
}

func (s *Server) getMeetingHandler(w http.ResponseWriter, r *http.Request) {
	meeting, err := s.app.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "getting meeting", err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) updateMeetingHandler(w http.ResponseWriter, r *http.Request) {
	var req models.MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	outcome, err := s.app.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, "updating meeting", err)
		return
	}
	s.writeResponse(w, http.StatusOK, outcome)
}

func (s *Server) deleteMeetingHandler(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.app.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "deleting meeting", err)
		return
	}
	s.writeResponse(w, http.StatusOK, outcome)
}

func (s *Server) icsHandler(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.app.List(r.Context())
	if err != nil {
		s.writeError(w, "exporting calendar", err)
		return
	}
	var buf bytes.Buffer
	err = ics.Encode(&buf, meetings, s.app.Location(), time.Now())
	switch {
	case errors.Is(err, ics.ErrEmpty):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.log.Warnf("err during encoding calendar: %v", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if _, err = buf.WriteTo(w); err != nil {
		s.log.Warnf("err during writing to connection: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidMeeting):
		s.writeResponse(w, http.StatusBadRequest, err)
	case errors.Is(err, models.ErrMeetingNotFound):
		s.writeResponse(w, http.StatusNotFound, err)
	case errors.Is(err, models.ErrConflict):
		s.writeResponse(w, http.StatusConflict, err)
	case errors.Is(err, models.ErrCalendar):
		s.log.Warnf("err during %s: %v", action, err)
		s.writeResponse(w, http.StatusBadGateway, err)
	default:
		s.log.Warnf("err during %s: %v", action, err)
		s.writeResponse(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if x, ok := data.(error); ok {
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: x.Error()}); err != nil {
			s.log.Warnf("err during encoding error: %v", err)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warnf("err during encoding response: %v", err)
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
