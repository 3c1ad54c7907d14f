package medication

import "errors"

var (
	ErrMedicationNotFound = errors.New("medication not found")
	ErrNameRequired       = errors.New("name is required")
	ErrInvalidStatus      = errors.New("invalid medication status")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidWindow      = errors.New("end_date is before start_date")
	ErrInvalidInventory   = errors.New("inventory_count must not be negative")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrDoseInFuture       = errors.New("taken_at is in the future")
)
