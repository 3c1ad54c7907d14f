package messaging

import (
	"time"

	"github.com/google/uuid"
)

// ServiceName identifies this service in published events.
const ServiceName = "care-service"

// Event routing keys as constants
const (
	EventCareProfileCreated = "care_profile.created"
	EventCareProfileDeleted = "care_profile.deleted"

	EventMedicationCreated       = "medication.created"
	EventMedicationStatusChanged = "medication.status_changed"
	EventMedicationDoseLogged    = "medication.dose_logged"

	EventCalendarEventCreated       = "calendar_event.created"
	EventCalendarEventStatusChanged = "calendar_event.status_changed"

	EventHealthRecordRecorded = "health_record.recorded"
	EventHealthRecordUpdated  = "health_record.updated"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}

// CareProfileCreatedEvent is published when a caregiver adds a care recipient
type CareProfileCreatedEvent struct {
	BaseEvent
	Data CareProfileCreatedData `json:"data"`
}

type CareProfileCreatedData struct {
	CareProfileID string    `json:"care_profile_id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Relationship  string    `json:"relationship,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CareProfileDeletedEvent is published after a profile and its records are
// removed
type CareProfileDeletedEvent struct {
	BaseEvent
	Data CareProfileDeletedData `json:"data"`
}

type CareProfileDeletedData struct {
	CareProfileID string    `json:"care_profile_id"`
	UserID        string    `json:"user_id"`
	DeletedAt     time.Time `json:"deleted_at"`
}

// MedicationCreatedEvent is published when a medication is added to a profile
type MedicationCreatedEvent struct {
	BaseEvent
	Data MedicationCreatedData `json:"data"`
}

type MedicationCreatedData struct {
	MedicationID  string    `json:"medication_id"`
	CareProfileID string    `json:"care_profile_id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Dosage        string    `json:"dosage"`
	Frequency     string    `json:"frequency"`
	Time          string    `json:"time"`
	CreatedAt     time.Time `json:"created_at"`
}

// MedicationStatusChangedEvent is published for direct status patches and for
// changes propagated from a linked calendar event.
type MedicationStatusChangedEvent struct {
	BaseEvent
	Data MedicationStatusChangedData `json:"data"`
}

type MedicationStatusChangedData struct {
	MedicationID  string    `json:"medication_id"`
	CareProfileID string    `json:"care_profile_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	SourceEventID string    `json:"source_event_id,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
}

// MedicationDoseLoggedEvent is published for every logged dose
type MedicationDoseLoggedEvent struct {
	BaseEvent
	Data MedicationDoseLoggedData `json:"data"`
}

type MedicationDoseLoggedData struct {
	LogID          string    `json:"log_id"`
	MedicationID   string    `json:"medication_id"`
	CareProfileID  string    `json:"care_profile_id"`
	UserID         string    `json:"user_id"`
	TakenAt        time.Time `json:"taken_at"`
	Quantity       int64     `json:"quantity"`
	InventoryCount *int64    `json:"inventory_count,omitempty"`
}

// CalendarEventCreatedEvent is published when an event is scheduled
type CalendarEventCreatedEvent struct {
	BaseEvent
	Data CalendarEventCreatedData `json:"data"`
}

type CalendarEventCreatedData struct {
	CalendarEventID string    `json:"calendar_event_id"`
	CareProfileID   string    `json:"care_profile_id"`
	Title           string    `json:"title"`
	Type            string    `json:"type"`
	Date            string    `json:"date"` // YYYY-MM-DD
	Time            string    `json:"time"`
	RelatedID       string    `json:"related_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CalendarEventStatusChangedEvent is published by MarkEventStatus
type CalendarEventStatusChangedEvent struct {
	BaseEvent
	Data CalendarEventStatusChangedData `json:"data"`
}

type CalendarEventStatusChangedData struct {
	CalendarEventID string    `json:"calendar_event_id"`
	CareProfileID   string    `json:"care_profile_id"`
	OldStatus       string    `json:"old_status"`
	NewStatus       string    `json:"new_status"`
	ChangedAt       time.Time `json:"changed_at"`
}

// HealthRecordRecordedEvent is published for every new reading
type HealthRecordRecordedEvent struct {
	BaseEvent
	Data HealthRecordRecordedData `json:"data"`
}

type HealthRecordRecordedData struct {
	HealthRecordID string    `json:"health_record_id"`
	CareProfileID  string    `json:"care_profile_id"`
	Type           string    `json:"type"`
	Value          string    `json:"value"`
	Unit           string    `json:"unit"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// HealthRecordUpdatedEvent is published when a reading is corrected
type HealthRecordUpdatedEvent struct {
	BaseEvent
	Data HealthRecordRecordedData `json:"data"`
}
