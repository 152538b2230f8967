package entity

import "time"

// Auth event actions
const (
	ActionRegister     = "register"
	ActionLoginSuccess = "login_success"
	ActionLoginFailed  = "login_failed"
)

// AuthEvent is an audit record of a registration or login attempt.
// UserID is empty when the attempt did not resolve to a stored user.
type AuthEvent struct {
	Action    string
	UserID    string
	Email     string
	Reason    string
	IP        string
	UserAgent string
	RequestID string
	At        time.Time
}
