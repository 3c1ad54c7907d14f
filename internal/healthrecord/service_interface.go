package healthrecord

import (
	"context"

	"github.com/alaga-care/care-service/internal/pagination"
)

// ServiceInterface defines the contract for health record business logic
type ServiceInterface interface {
	CreateRecord(ctx context.Context, userID, profileID string, req CreateHealthRecordRequest) (*HealthRecord, error)
	GetRecord(ctx context.Context, userID, profileID, id string) (*HealthRecord, error)
	ListHistory(ctx context.Context, userID, profileID, metric string, params pagination.Params) (*HistoryResponse, error)
	LatestForMetric(ctx context.Context, userID, profileID, metric string) (*HealthRecord, error)
	LatestSummary(ctx context.Context, userID, profileID string) (Summary, error)
	UpdateRecord(ctx context.Context, userID, profileID, id string, req UpdateHealthRecordRequest) (*HealthRecord, error)
	DeleteRecord(ctx context.Context, userID, profileID, id string) error
}

// ProfileAuthorizer checks that a user owns a care profile.
type ProfileAuthorizer interface {
	Authorize(ctx context.Context, userID, profileID string) error
}

type MetricsRecorder interface {
	RecordHealthRecordOperation(ctx context.Context, operation string)
}

var _ ServiceInterface = (*Service)(nil)
