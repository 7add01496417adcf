package domain

import "errors"

// Auth and credential errors.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrDuplicateEmail        = errors.New("email already exists")
	ErrConflict              = errors.New("super admin already exists")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUserNotFound          = errors.New("user not found")
)

// Authorization and ownership errors.
var (
	ErrForbidden       = errors.New("access forbidden")
	ErrAdminNotFound   = errors.New("admin not found")
	ErrAlreadyAssigned = errors.New("device already assigned to user")
)

// Device and telemetry errors.
var (
	ErrDeviceNotFound  = errors.New("invalid device id")
	ErrDuplicateDevice = errors.New("device already exists")
	ErrRecordNotFound  = errors.New("record not found")
	ErrUnknownKind     = errors.New("unknown telemetry kind")
)
