package calendar

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for calendar event data access
type RepositoryInterface interface {
	Create(ctx context.Context, event *CalendarEvent) error
	Get(ctx context.Context, profileID, id string) (*CalendarEvent, error)
	ListRange(ctx context.Context, profileID string, from, to time.Time) ([]CalendarEvent, error)
	Update(ctx context.Context, profileID, id string, patch map[string]interface{}) (*CalendarEvent, error)
	Delete(ctx context.Context, profileID, id string) error
	CheckMedicationLink(ctx context.Context, profileID, medicationID string) error
	MarkStatus(ctx context.Context, profileID, id string, status EventStatus, at time.Time) (*MarkResult, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
