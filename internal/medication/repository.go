package medication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
)

type Repository struct {
	store docstore.Store
	now   func() time.Time
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store, now: docstore.Now}
}

func (r *Repository) Create(ctx context.Context, med *Medication) error {
	if err := r.store.Create(ctx, Collection, med.ID, med.toDocument()); err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

// Get returns the medication only if it belongs to profileID.
func (r *Repository) Get(ctx context.Context, profileID, id string) (*Medication, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}

	med := FromDocument(doc)
	if med.CareProfileID != profileID {
		return nil, ErrMedicationNotFound
	}
	return med, nil
}

func (r *Repository) ListByProfile(ctx context.Context, profileID string) ([]Medication, error) {
	docs, err := r.store.Query(ctx, byProfile(profileID))
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return fromDocuments(docs), nil
}

func (r *Repository) Update(ctx context.Context, profileID, id string, patch map[string]interface{}) (*Medication, error) {
	var updated *Medication
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		current, err := getInTx(tx, profileID, id)
		if err != nil {
			return err
		}

		merged := current.toDocument()
		for k, v := range patch {
			merged[k] = v
		}
		next := FromDocument(&docstore.Document{ID: id, Data: merged})
		if err := validateWindow(next.StartDate, next.EndDate); err != nil {
			return err
		}
		if err := tx.Update(Collection, id, patch); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMedicationNotFound) || errors.Is(err, ErrInvalidWindow) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update medication: %w", err)
	}
	return updated, nil
}

// UpdateStatus sets the status and returns the record before and after the
// change.
func (r *Repository) UpdateStatus(ctx context.Context, profileID, id string, status Status) (*Medication, *Medication, error) {
	var old, updated *Medication
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		current, err := getInTx(tx, profileID, id)
		if err != nil {
			return err
		}

		now := r.now()
		if err := tx.Update(Collection, id, StatusPatch(status, now)); err != nil {
			return err
		}

		old = current
		next := *current
		next.Status = status
		next.UpdatedAt = now
		updated = &next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMedicationNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to update medication status: %w", err)
	}
	return old, updated, nil
}

func (r *Repository) Delete(ctx context.Context, profileID, id string) error {
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := getInTx(tx, profileID, id); err != nil {
			return err
		}
		return tx.Delete(Collection, id)
	})
	if err != nil {
		if errors.Is(err, ErrMedicationNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	return nil
}

// Watch streams the profile's full medication list every time it changes.
// The channel closes when ctx is done.
func (r *Repository) Watch(ctx context.Context, profileID string) (<-chan ListUpdate, error) {
	snapshots, err := r.store.Watch(ctx, byProfile(profileID))
	if err != nil {
		return nil, fmt.Errorf("failed to watch medications: %w", err)
	}

	out := make(chan ListUpdate)
	go func() {
		defer close(out)
		for snap := range snapshots {
			update := ListUpdate{Err: snap.Err}
			if snap.Err == nil {
				update.Medications = fromDocuments(snap.Documents)
			}
			select {
			case out <- update:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func getInTx(tx docstore.Tx, profileID, id string) (*Medication, error) {
	doc, err := tx.Get(Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrMedicationNotFound
		}
		return nil, err
	}
	med := FromDocument(doc)
	if med.CareProfileID != profileID {
		return nil, ErrMedicationNotFound
	}
	return med, nil
}

func byProfile(profileID string) docstore.Query {
	return docstore.Query{Collection: Collection, OrderBy: "created_at"}.
		Where("care_profile_id", docstore.OpEqual, profileID)
}

func fromDocuments(docs []docstore.Document) []Medication {
	meds := make([]Medication, 0, len(docs))
	for i := range docs {
		meds = append(meds, *FromDocument(&docs[i]))
	}
	return meds
}
