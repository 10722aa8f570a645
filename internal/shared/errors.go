package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Identity errors
	ErrUnauthorized  = fmt.Errorf("unauthorized")
	ErrInvalidToken  = fmt.Errorf("invalid token")
	ErrAuthDisabled  = fmt.Errorf("authentication provider not configured")
	ErrStateMismatch = fmt.Errorf("oauth state mismatch")

	// Store errors
	ErrNotFound = fmt.Errorf("not found")
	ErrConflict = fmt.Errorf("conflict")
	ErrInternal = fmt.Errorf("internal error")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrEmptyPlaylist      = fmt.Errorf("playlist has no playable videos")

	// Input validation errors
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrInvalidPlaylistURL = fmt.Errorf("invalid YouTube playlist URL")
	ErrMissingArgument    = fmt.Errorf("missing required argument")
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
)
