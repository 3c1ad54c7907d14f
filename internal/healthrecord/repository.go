package healthrecord

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

// Create stores rec and, in the same transaction, makes it the latest
// reading of its metric unless a newer one exists.
func (r *Repository) Create(ctx context.Context, rec *HealthRecord) error {
	latestID := LatestID(rec.CareProfileID, rec.Type)

	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		var current *HealthRecord
		doc, err := tx.Get(LatestCollection, latestID)
		switch {
		case err == nil:
			current = fromLatestDocument(doc)
		case !errors.Is(err, docstore.ErrNotFound):
			return err
		}

		if err := tx.Create(Collection, rec.ID, rec.toDocument()); err != nil {
			return err
		}
		if current == nil || newer(rec, current) {
			return tx.Set(LatestCollection, latestID, rec.toLatestDocument())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create health record: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, profileID, id string) (*HealthRecord, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get health record: %w", err)
	}

	rec := fromDocument(doc)
	if rec.CareProfileID != profileID {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

// History returns a page of readings, newest first, and the total count.
// A nil metric lists every type.
func (r *Repository) History(ctx context.Context, profileID string, metric *MetricType, limit, offset int) ([]HealthRecord, int, error) {
	q := docstore.Query{Collection: Collection, OrderBy: "recorded_at", Descending: true}.
		Where("care_profile_id", docstore.OpEqual, profileID)
	if metric != nil {
		q = q.Where("type", docstore.OpEqual, metric.String())
	}

	total, err := r.store.Count(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count health records: %w", err)
	}

	q.Limit, q.Offset = limit, offset
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list health records: %w", err)
	}

	records := make([]HealthRecord, 0, len(docs))
	for i := range docs {
		records = append(records, *fromDocument(&docs[i]))
	}
	return records, total, nil
}

// LatestForMetric reads the newest reading straight from the history.
// Readings sharing the top recorded_at are resolved with newer, the rule the
// side table follows. It returns nil without an error when the metric has no
// readings.
func (r *Repository) LatestForMetric(ctx context.Context, profileID string, metric MetricType) (*HealthRecord, error) {
	q := docstore.Query{Collection: Collection}.
		Where("care_profile_id", docstore.OpEqual, profileID).
		Where("type", docstore.OpEqual, metric.String())

	top := q
	top.OrderBy, top.Descending, top.Limit = "recorded_at", true, 1
	docs, err := r.store.Query(ctx, top)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest %s: %w", metric, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	latest := fromDocument(&docs[0])

	ties, err := r.store.Query(ctx, q.Where("recorded_at", docstore.OpEqual, latest.RecordedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to query latest %s: %w", metric, err)
	}
	for i := range ties {
		if rec := fromDocument(&ties[i]); newer(rec, latest) {
			latest = rec
		}
	}
	return latest, nil
}

// LatestSummary reads the side table in one query.
func (r *Repository) LatestSummary(ctx context.Context, profileID string) (Summary, error) {
	docs, err := r.store.Query(ctx, docstore.Query{Collection: LatestCollection}.
		Where("care_profile_id", docstore.OpEqual, profileID))
	if err != nil {
		return nil, fmt.Errorf("failed to query latest health records: %w", err)
	}

	summary := make(Summary, len(docs))
	for i := range docs {
		rec := fromLatestDocument(&docs[i])
		summary[rec.Type] = *rec
	}
	return summary, nil
}

// Delete removes a reading and drops the side table entry if it pointed at
// it. The caller rebuilds the metric afterwards.
func (r *Repository) Delete(ctx context.Context, profileID, id string) (*HealthRecord, error) {
	var deleted *HealthRecord
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(Collection, id)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		rec := fromDocument(doc)
		if rec.CareProfileID != profileID {
			return ErrRecordNotFound
		}

		latestID := LatestID(profileID, rec.Type)
		latest, err := tx.Get(LatestCollection, latestID)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}

		if err := tx.Delete(Collection, id); err != nil {
			return err
		}
		if latest != nil && docstore.StringField(latest.Data, "record_id") == id {
			if err := tx.Delete(LatestCollection, latestID); err != nil {
				return err
			}
		}
		deleted = rec
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete health record: %w", err)
	}
	return deleted, nil
}

// Update applies req to a reading and keeps the side table entry in step.
// The second result is true when the reading stopped being the latest of
// its metric and the caller must rebuild that metric.
func (r *Repository) Update(ctx context.Context, profileID, id string, req UpdateHealthRecordRequest) (*HealthRecord, bool, error) {
	var (
		updated *HealthRecord
		rebuild bool
	)
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(Collection, id)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		rec := fromDocument(doc)
		if rec.CareProfileID != profileID {
			return ErrRecordNotFound
		}

		latestID := LatestID(profileID, rec.Type)
		var current *HealthRecord
		latest, err := tx.Get(LatestCollection, latestID)
		switch {
		case err == nil:
			current = fromLatestDocument(latest)
		case !errors.Is(err, docstore.ErrNotFound):
			return err
		}

		next := req.apply(rec)
		if err := tx.Set(Collection, id, next.toDocument()); err != nil {
			return err
		}

		switch {
		case current != nil && current.ID == id:
			if next.RecordedAt.Before(rec.RecordedAt) {
				// an older reading may now be the newest
				rebuild = true
				if err := tx.Delete(LatestCollection, latestID); err != nil {
					return err
				}
			} else if err := tx.Set(LatestCollection, latestID, next.toLatestDocument()); err != nil {
				return err
			}
		case current == nil || newer(next, current):
			if err := tx.Set(LatestCollection, latestID, next.toLatestDocument()); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("failed to update health record: %w", err)
	}
	return updated, rebuild, nil
}

// RebuildMetric recomputes one side table entry from the history. An entry
// written concurrently by Create for a newer reading is left alone.
func (r *Repository) RebuildMetric(ctx context.Context, profileID string, metric MetricType) error {
	rec, err := r.LatestForMetric(ctx, profileID, metric)
	if err != nil {
		return err
	}
	latestID := LatestID(profileID, metric)

	err = r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		var current *HealthRecord
		doc, err := tx.Get(LatestCollection, latestID)
		switch {
		case err == nil:
			current = fromLatestDocument(doc)
		case !errors.Is(err, docstore.ErrNotFound):
			return err
		}

		if current != nil && (rec == nil || current.ID != rec.ID) {
			_, err := tx.Get(Collection, current.ID)
			switch {
			case err == nil:
				if rec == nil || newer(current, rec) {
					return nil
				}
			case !errors.Is(err, docstore.ErrNotFound):
				return err
			}
		}

		if rec == nil {
			if current == nil {
				return nil
			}
			return tx.Delete(LatestCollection, latestID)
		}
		return tx.Set(LatestCollection, latestID, rec.toLatestDocument())
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild latest %s for %s: %w", metric, profileID, err)
	}
	return nil
}
