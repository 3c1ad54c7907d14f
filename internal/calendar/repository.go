package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/medication"
	"github.com/alaga-care/care-service/internal/timeofday"
)

// Propagation outcomes of MarkStatus.
const (
	OutcomePropagated   = "propagated"
	OutcomeDanglingLink = "dangling_link"
	OutcomeNotLinked    = "not_linked"
)

// MarkResult describes what a MarkStatus transaction wrote.
type MarkResult struct {
	Event     *CalendarEvent
	OldStatus EventStatus
	Outcome   string

	// Set only when the outcome is OutcomePropagated.
	OldMedicationStatus medication.Status
	Medication          *medication.Medication
}

type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Create(ctx context.Context, event *CalendarEvent) error {
	if err := r.store.Create(ctx, Collection, event.ID, event.toDocument()); err != nil {
		return fmt.Errorf("failed to create calendar event: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, profileID, id string) (*CalendarEvent, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get calendar event: %w", err)
	}

	event := fromDocument(doc)
	if event.CareProfileID != profileID {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// ListRange returns the profile's events with from <= date <= to, ordered by
// day and then by time of day. Zero bounds are open.
func (r *Repository) ListRange(ctx context.Context, profileID string, from, to time.Time) ([]CalendarEvent, error) {
	q := docstore.Query{Collection: Collection, OrderBy: "date"}.
		Where("care_profile_id", docstore.OpEqual, profileID)
	if !from.IsZero() {
		q = q.Where("date", docstore.OpGreaterOrEqual, from)
	}
	if !to.IsZero() {
		q = q.Where("date", docstore.OpLessOrEqual, to)
	}

	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}

	events := make([]CalendarEvent, 0, len(docs))
	for i := range docs {
		events = append(events, *fromDocument(&docs[i]))
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return timeofday.Compare(events[i].Time, events[j].Time) < 0
	})
	return events, nil
}

func (r *Repository) Update(ctx context.Context, profileID, id string, patch map[string]interface{}) (*CalendarEvent, error) {
	var updated *CalendarEvent
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		current, err := getInTx(tx, profileID, id)
		if err != nil {
			return err
		}
		if err := tx.Update(Collection, id, patch); err != nil {
			return err
		}

		merged := current.toDocument()
		for k, v := range patch {
			merged[k] = v
		}
		updated = fromDocument(&docstore.Document{ID: id, Data: merged})
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update calendar event: %w", err)
	}
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, profileID, id string) error {
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := getInTx(tx, profileID, id); err != nil {
			return err
		}
		return tx.Delete(Collection, id)
	})
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return nil
}

// CheckMedicationLink verifies that medicationID exists in profileID.
func (r *Repository) CheckMedicationLink(ctx context.Context, profileID, medicationID string) error {
	doc, err := r.store.Get(ctx, medication.Collection, medicationID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrRelatedNotFound
		}
		return fmt.Errorf("failed to get related medication: %w", err)
	}
	if medication.FromDocument(doc).CareProfileID != profileID {
		return ErrCrossProfileLink
	}
	return nil
}

// MarkStatus sets the event status and, for a medication event with a
// related id, the linked medication's status in the same transaction. Either
// both documents change or neither does. A link to a deleted medication
// updates the event only.
func (r *Repository) MarkStatus(ctx context.Context, profileID, id string, status EventStatus, at time.Time) (*MarkResult, error) {
	var result *MarkResult
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		// The body may run more than once.
		result = nil

		event, err := getInTx(tx, profileID, id)
		if err != nil {
			return err
		}

		res := &MarkResult{OldStatus: event.Status, Outcome: OutcomeNotLinked}

		var med *medication.Medication
		if event.Type == TypeMedication && event.RelatedID != "" {
			doc, err := tx.Get(medication.Collection, event.RelatedID)
			switch {
			case errors.Is(err, docstore.ErrNotFound):
				res.Outcome = OutcomeDanglingLink
			case err != nil:
				return err
			default:
				med = medication.FromDocument(doc)
				if med.CareProfileID != profileID {
					return ErrCrossProfileLink
				}
				res.Outcome = OutcomePropagated
			}
		}

		if err := tx.Update(Collection, id, map[string]interface{}{
			"status":     status.String(),
			"updated_at": at,
		}); err != nil {
			return err
		}
		event.Status = status
		event.UpdatedAt = at
		res.Event = event

		if med != nil {
			next := status.MedicationStatus()
			if err := tx.Update(medication.Collection, med.ID, medication.StatusPatch(next, at)); err != nil {
				return err
			}
			res.OldMedicationStatus = med.Status
			med.Status = next
			med.UpdatedAt = at
			res.Medication = med
		}

		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEventNotFound) || errors.Is(err, ErrCrossProfileLink) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to mark calendar event status: %w", err)
	}
	return result, nil
}

func getInTx(tx docstore.Tx, profileID, id string) (*CalendarEvent, error) {
	doc, err := tx.Get(Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	event := fromDocument(doc)
	if event.CareProfileID != profileID {
		return nil, ErrEventNotFound
	}
	return event, nil
}
