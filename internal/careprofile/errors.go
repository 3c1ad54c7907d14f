package careprofile

import "errors"

var (
	ErrProfileNotFound  = errors.New("care profile not found")
	ErrForbidden        = errors.New("care profile belongs to another user")
	ErrNameRequired     = errors.New("name is required")
	ErrInvalidAge       = errors.New("age must be between 0 and 150")
	ErrPhotosDisabled   = errors.New("photo storage is not configured")
	ErrUnsupportedPhoto = errors.New("unsupported photo type")
)
