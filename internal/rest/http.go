package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pershin-daniil/MeetingScheduler/internal/auth"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type Sessions interface {
	Open(ctx context.Context, creds models.Credentials) (auth.Session, string, error)
	Resolve(token string) (auth.Session, error)
	Close(id string)
}

type Server struct {
	log      *logrus.Entry
	app      App
	sessions Sessions
	address  string
	version  string
	server   *http.Server
}

func New(log *logrus.Logger, app App, sessions Sessions, address, version string) *Server {
	s := Server{
		log:      log.WithField("component", "rest"),
		app:      app,
		sessions: sessions,
		address:  address,
		version:  version,
	}
	s.server = &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/version", s.versionHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Post("/login", s.loginHandler)
			r.Group(func(r chi.Router) {
				r.Use(s.sessionAuth)
				r.Post("/logout", s.logoutHandler)
				r.Get("/calendar.ics", s.icsHandler)
				r.Route("/meetings", func(r chi.Router) {
					r.Get("/", s.listMeetingsHandler)
					r.Post("/", s.createMeetingHandler)
					r.Get("/{id}", s.getMeetingHandler)
					r.Put("/{id}", s.updateMeetingHandler)
					r.Delete("/{id}", s.deleteMeetingHandler)
				})
			})
		})
	})
	return r
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("err during shutdown: %v", err)
		}
	}()
	s.log.Infof("listening on %s", s.address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
