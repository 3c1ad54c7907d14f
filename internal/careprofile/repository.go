package careprofile

import (
	"context"
	"errors"
	"fmt"

	"github.com/alaga-care/care-service/internal/docstore"
)

type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Create(ctx context.Context, profile *CareProfile) error {
	if err := r.store.Create(ctx, Collection, profile.ID, profile.toDocument()); err != nil {
		return fmt.Errorf("failed to create care profile: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*CareProfile, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get care profile: %w", err)
	}
	return fromDocument(doc), nil
}

// ListByUser returns the caller's profiles, oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]CareProfile, error) {
	q := docstore.Query{Collection: Collection, OrderBy: "created_at", Limit: limit}.
		Where("user_id", docstore.OpEqual, userID)

	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list care profiles: %w", err)
	}

	profiles := make([]CareProfile, 0, len(docs))
	for i := range docs {
		profiles = append(profiles, *fromDocument(&docs[i]))
	}
	return profiles, nil
}

func (r *Repository) Update(ctx context.Context, id string, patch map[string]interface{}) (*CareProfile, error) {
	if err := r.store.Update(ctx, Collection, id, patch); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update care profile: %w", err)
	}
	return r.Get(ctx, id)
}

// ListIDs returns the id of every profile. Maintenance jobs use it.
func (r *Repository) ListIDs(ctx context.Context) ([]string, error) {
	docs, err := r.store.Query(ctx, docstore.Query{Collection: Collection})
	if err != nil {
		return nil, fmt.Errorf("failed to list care profiles: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// ChildCollections hold documents scoped to a care profile by their
// care_profile_id field.
var ChildCollections = []string{
	"medications",
	"medication_logs",
	"calendar_events",
	"health_records",
	"health_records_latest",
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("failed to delete care profile: %w", err)
	}
	return nil
}

// PurgeChildren deletes every child document of profileID. It keeps going
// past failures and returns them joined with the number of documents removed.
func (r *Repository) PurgeChildren(ctx context.Context, profileID string) (int, error) {
	var (
		removed int
		errs    []error
	)
	for _, collection := range ChildCollections {
		docs, err := r.store.Query(ctx, docstore.Query{Collection: collection}.
			Where("care_profile_id", docstore.OpEqual, profileID))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to list %s: %w", collection, err))
			continue
		}
		for _, doc := range docs {
			if err := r.store.Delete(ctx, collection, doc.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
				errs = append(errs, fmt.Errorf("failed to delete %s/%s: %w", collection, doc.ID, err))
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}
