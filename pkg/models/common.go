package models

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrConflict        = errors.New("time slot already booked or in the past")
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrInvalidMeeting  = errors.New("invalid meeting")
	ErrStorage         = errors.New("storage failure")
	ErrCalendar        = errors.New("calendar failure")
	ErrNotification    = errors.New("notification failure")
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	APIKey   string `json:"apiKey"`
}

type Claims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
