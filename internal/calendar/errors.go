package calendar

import "errors"

var (
	ErrEventNotFound    = errors.New("calendar event not found")
	ErrTitleRequired    = errors.New("title is required")
	ErrInvalidType      = errors.New("invalid event type")
	ErrInvalidStatus    = errors.New("invalid event status")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidRange     = errors.New("from must not be after to")
	ErrInvalidMonth     = errors.New("invalid year or month")
	ErrRelatedNotFound  = errors.New("related medication not found")
	ErrCrossProfileLink = errors.New("related medication belongs to another care profile")
)
