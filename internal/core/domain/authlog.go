package domain

import "time"

type AuthAction string

const (
	ActionSignup AuthAction = "SIGNUP"
	ActionSignin AuthAction = "SIGNIN"
)

type AuthStatus string

const (
	AuthSuccess AuthStatus = "SUCCESS"
	AuthFailed  AuthStatus = "FAILED"
)

// Failure reasons recorded on FAILED entries.
const (
	ReasonEmailExists     = "Email already exists"
	ReasonInvalidEmail    = "Invalid email"
	ReasonInvalidPassword = "Invalid password"
)

// ClientInfo is the request metadata captured with every auth attempt.
type ClientInfo struct {
	IP         string `json:"ip" bson:"ip"`
	UserAgent  string `json:"user_agent" bson:"user_agent"`
	DeviceType string `json:"device_type,omitempty" bson:"device_type,omitempty"`
}

// AuthLogEntry is an immutable record of one authentication attempt.
// UserID is a placeholder UUID when the attempt did not resolve to a user.
type AuthLogEntry struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Action        AuthAction `json:"action"`
	Status        AuthStatus `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	DeviceInfo    ClientInfo `json:"device_info"`
	Timestamp     time.Time  `json:"timestamp"`
}

// AuthLogUser is the user summary joined onto a listed entry.
type AuthLogUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthLogView is an entry as returned by the admin listing.
type AuthLogView struct {
	AuthLogEntry
	User *AuthLogUser `json:"user,omitempty"`
}
