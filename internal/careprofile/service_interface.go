package careprofile

import (
	"context"
	"io"
)

// ServiceInterface defines the contract for care profile business logic
type ServiceInterface interface {
	CreateProfile(ctx context.Context, userID string, req CreateCareProfileRequest) (*CareProfile, error)
	ListProfiles(ctx context.Context, userID string, limit int) ([]CareProfile, error)
	GetProfile(ctx context.Context, userID, profileID string) (*CareProfile, error)
	UpdateProfile(ctx context.Context, userID, profileID string, req UpdateCareProfileRequest) (*CareProfile, error)
	DeleteProfile(ctx context.Context, userID, profileID string) error
	UploadPhoto(ctx context.Context, userID, profileID string, photo io.Reader, size int64, contentType string) (*CareProfile, error)
	Authorize(ctx context.Context, userID, profileID string) error
}

// MetricsRecorder counts care profile operations.
type MetricsRecorder interface {
	RecordCareProfileOperation(ctx context.Context, operation string)
}

// PhotoStore keeps uploaded profile photos.
type PhotoStore interface {
	PutPhoto(ctx context.Context, prefix string, r io.Reader, size int64, contentType string) (key, url string, err error)
	DeletePhoto(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

var _ ServiceInterface = (*Service)(nil)
