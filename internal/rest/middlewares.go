package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pershin-daniil/MeetingScheduler/internal/auth"
)

var ErrUnauthorised = errors.New("unauthorized")

func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeResponse(w, http.StatusUnauthorized, ErrUnauthorised)
			return
		}
		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || headerParts[0] != "Bearer" {
			s.writeResponse(w, http.StatusUnauthorized, ErrUnauthorised)
			return
		}
		session, err := s.sessions.Resolve(headerParts[1])
		if err != nil {
			s.log.Debugf("rejected token: %v", err)
			s.writeResponse(w, http.StatusUnauthorized, ErrUnauthorised)
			return
		}
		r = r.WithContext(auth.WithSession(r.Context(), session))
		next.ServeHTTP(w, r)
	})
}
