package healthrecord

import "context"

// RepositoryInterface defines the contract for health record data access
type RepositoryInterface interface {
	Create(ctx context.Context, rec *HealthRecord) error
	Get(ctx context.Context, profileID, id string) (*HealthRecord, error)
	History(ctx context.Context, profileID string, metric *MetricType, limit, offset int) ([]HealthRecord, int, error)
	LatestForMetric(ctx context.Context, profileID string, metric MetricType) (*HealthRecord, error)
	LatestSummary(ctx context.Context, profileID string) (Summary, error)
	Update(ctx context.Context, profileID, id string, req UpdateHealthRecordRequest) (*HealthRecord, bool, error)
	Delete(ctx context.Context, profileID, id string) (*HealthRecord, error)
	RebuildMetric(ctx context.Context, profileID string, metric MetricType) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
