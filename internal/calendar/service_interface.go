package calendar

import "context"

// ServiceInterface defines the contract for calendar business logic
type ServiceInterface interface {
	CreateEvent(ctx context.Context, userID, profileID string, req CreateEventRequest) (*CalendarEvent, error)
	ListEvents(ctx context.Context, userID, profileID, from, to string) ([]CalendarEvent, error)
	GetDay(ctx context.Context, userID, profileID, date string) (*CalendarDay, error)
	GetMonth(ctx context.Context, userID, profileID string, year, month int) (*CalendarMonth, error)
	GetToday(ctx context.Context, userID, profileID string) (*CalendarDay, error)
	GetEvent(ctx context.Context, userID, profileID, id string) (*CalendarEvent, error)
	UpdateEvent(ctx context.Context, userID, profileID, id string, req UpdateEventRequest) (*CalendarEvent, error)
	DeleteEvent(ctx context.Context, userID, profileID, id string) error
	MarkEventStatus(ctx context.Context, userID, profileID, id string, req MarkStatusRequest) (*CalendarEvent, error)
}

// ProfileAuthorizer checks that a user owns a care profile.
type ProfileAuthorizer interface {
	Authorize(ctx context.Context, userID, profileID string) error
}

// MetricsRecorder counts calendar operations and status propagation outcomes.
type MetricsRecorder interface {
	RecordCalendarEventOperation(ctx context.Context, operation string)
	RecordPropagation(ctx context.Context, outcome string)
}

var _ ServiceInterface = (*Service)(nil)
