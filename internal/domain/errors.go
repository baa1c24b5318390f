package domain

import "errors"

var (
	ErrAssetNotFound    = errors.New("asset not found")
	ErrRequestNotFound  = errors.New("request not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidState     = errors.New("invalid request state")
	ErrForbidden        = errors.New("not allowed")
	ErrAssetUnavailable = errors.New("asset not available")
	ErrDuplicateRequest = errors.New("request already exists")
	ErrEmailTaken       = errors.New("email already registered")
	ErrValidation       = errors.New("validation failed")
)

// IsNotFound reports whether err is one of the missing-entity errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssetNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
