package domain

import "errors"

// Validation errors, surfaced to the caller as user-visible messages
var (
	ErrDuplicateUser        = errors.New("user with this username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrRaidFull             = errors.New("raid full")
	ErrAlreadyInRaid        = errors.New("user already in raid")
	ErrNotInRaid            = errors.New("user is not in raid")
	ErrInvalidRole          = errors.New("invalid raid role")
	ErrMissingFields        = errors.New("all fields are required")
	ErrAlreadyLiked         = errors.New("build already liked")
	ErrNotLiked             = errors.New("build not liked")
	ErrAlreadyAdmin         = errors.New("user is already an admin")
	ErrSelfDelete           = errors.New("cannot delete yourself")
	ErrUserNotFound         = errors.New("user not found")
	ErrBuildNotFound        = errors.New("build not found")
	ErrPendingBuildNotFound = errors.New("pending build not found")
	ErrRaidNotFound         = errors.New("raid not found")
)

// Transport level errors
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalError  = errors.New("internal server error")
)

var validationErrors = []error{
	ErrDuplicateUser,
	ErrInvalidCredentials,
	ErrRaidFull,
	ErrAlreadyInRaid,
	ErrNotInRaid,
	ErrInvalidRole,
	ErrMissingFields,
	ErrAlreadyLiked,
	ErrNotLiked,
	ErrAlreadyAdmin,
	ErrSelfDelete,
	ErrUserNotFound,
	ErrBuildNotFound,
	ErrPendingBuildNotFound,
	ErrRaidNotFound,
}

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrBuildNotFound) ||
		errors.Is(err, ErrPendingBuildNotFound) ||
		errors.Is(err, ErrRaidNotFound)
}

// IsValidation reports whether err belongs to the validation class.
// Validation failures are never retried and never trigger a fallback.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
