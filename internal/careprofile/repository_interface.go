package careprofile

import "context"

// RepositoryInterface defines the contract for care profile data access
type RepositoryInterface interface {
	Create(ctx context.Context, profile *CareProfile) error
	Get(ctx context.Context, id string) (*CareProfile, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]CareProfile, error)
	Update(ctx context.Context, id string, patch map[string]interface{}) (*CareProfile, error)
	ListIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
	PurgeChildren(ctx context.Context, profileID string) (int, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
