package healthrecord

import "errors"

var (
	ErrRecordNotFound = errors.New("health record not found")
	ErrInvalidType    = errors.New("invalid metric type")
	ErrValueRequired  = errors.New("value is required")
	ErrFutureReading  = errors.New("recorded_at is in the future")
)
