package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
)

var ErrSessionClosed = errors.New("session closed or expired")

type Session struct {
	ID        string    `json:"id"`
	Operator  string    `json:"operator"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Sessions issues signed tokens on login and keeps the set of live sessions,
// so logout can revoke a token before it expires.
type Sessions struct {
	verifier Verifier
	secret   []byte
	ttl      time.Duration
	now      func() time.Time

	mu   sync.Mutex
	live map[string]Session
}

func NewSessions(verifier Verifier, secret string, ttl time.Duration) *Sessions {
	return &Sessions{
		verifier: verifier,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		live:     make(map[string]Session),
	}
}

// Open verifies creds and starts a session.
func (s *Sessions) Open(ctx context.Context, creds models.Credentials) (Session, string, error) {
	operator, err := s.verifier.Verify(ctx, creds)
	if err != nil {
		return Session{}, "", err
	}
	now := s.now()
	session := Session{
		ID:        uuid.NewString(),
		Operator:  operator,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		Operator: operator,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, "", fmt.Errorf("err signing token: %w", err)
	}
	s.mu.Lock()
	s.live[session.ID] = session
	s.mu.Unlock()
	return session, token, nil
}

// Resolve returns the live session a token belongs to.
func (s *Sessions) Resolve(token string) (Session, error) {
	claims := &models.Claims{}
	parser := jwt.Parser{}
	_, err := parser.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("err parsing token: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.live[claims.ID]
	if !ok {
		return Session{}, ErrSessionClosed
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.live, session.ID)
		return Session{}, ErrSessionClosed
	}
	return session, nil
}

// Close ends a session. Closing an unknown session is not an error.
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
}

type ctxSessionType string

const ctxSessionKey ctxSessionType = "session"

func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, session)
}

func FromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(ctxSessionKey).(Session)
	return session, ok
}
