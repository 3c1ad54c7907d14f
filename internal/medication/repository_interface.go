package medication

import "context"

// RepositoryInterface defines the contract for medication data access
type RepositoryInterface interface {
	Create(ctx context.Context, med *Medication) error
	Get(ctx context.Context, profileID, id string) (*Medication, error)
	ListByProfile(ctx context.Context, profileID string) ([]Medication, error)
	Update(ctx context.Context, profileID, id string, patch map[string]interface{}) (*Medication, error)
	UpdateStatus(ctx context.Context, profileID, id string, status Status) (old, updated *Medication, err error)
	Delete(ctx context.Context, profileID, id string) error
	LogDose(ctx context.Context, entry *DoseLog) (old, updated *Medication, err error)
	ListLogs(ctx context.Context, profileID, medicationID string, lr LogRange) ([]DoseLog, error)
	Watch(ctx context.Context, profileID string) (<-chan ListUpdate, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
