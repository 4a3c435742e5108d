package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// Verifier checks operator credentials and returns the operator name.
type Verifier interface {
	Verify(ctx context.Context, creds models.Credentials) (string, error)
}

// PasswordVerifier accepts one username whose password matches a bcrypt hash.
type PasswordVerifier struct {
	username string
	hash     []byte
}

func NewPasswordVerifier(username, bcryptHash string) (*PasswordVerifier, error) {
	if _, err := bcrypt.Cost([]byte(bcryptHash)); err != nil {
		return nil, fmt.Errorf("err parsing password hash: %w", err)
	}
	return &PasswordVerifier{username: username, hash: []byte(bcryptHash)}, nil
}

func (v *PasswordVerifier) Verify(_ context.Context, creds models.Credentials) (string, error) {
	if subtle.ConstantTimeCompare([]byte(creds.Username), []byte(v.username)) != 1 {
		return "", models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(creds.Password)); err != nil {
		return "", models.ErrInvalidCredentials
	}
	return v.username, nil
}

// APIKeyVerifier accepts requests carrying the configured key.
type APIKeyVerifier struct {
	operator string
	key      []byte
}

func NewAPIKeyVerifier(operator, key string) (*APIKeyVerifier, error) {
	if key == "" {
		return nil, errors.New("empty api key")
	}
	return &APIKeyVerifier{operator: operator, key: []byte(key)}, nil
}

func (v *APIKeyVerifier) Verify(_ context.Context, creds models.Credentials) (string, error) {
	if subtle.ConstantTimeCompare([]byte(creds.APIKey), v.key) != 1 {
		return "", models.ErrInvalidCredentials
	}
	return v.operator, nil
}

// All accepts only when every verifier accepts. The operator name comes from
// the first one.
type All []Verifier

func (a All) Verify(ctx context.Context, creds models.Credentials) (string, error) {
	if len(a) == 0 {
		return "", models.ErrInvalidCredentials
	}
	var operator string
	for i, v := range a {
		name, err := v.Verify(ctx, creds)
		if err != nil {
			return "", err
		}
		if i == 0 {
			operator = name
		}
	}
	return operator, nil
}
