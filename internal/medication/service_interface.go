package medication

import "context"

// ServiceInterface defines the contract for medication business logic
type ServiceInterface interface {
	CreateMedication(ctx context.Context, userID, profileID string, req CreateMedicationRequest) (*Medication, error)
	ListMedications(ctx context.Context, userID, profileID string) ([]Medication, error)
	GetMedication(ctx context.Context, userID, profileID, id string) (*Medication, error)
	UpdateMedication(ctx context.Context, userID, profileID, id string, req UpdateMedicationRequest) (*Medication, error)
	UpdateStatus(ctx context.Context, userID, profileID, id string, req UpdateStatusRequest) (*Medication, error)
	DeleteMedication(ctx context.Context, userID, profileID, id string) error
	TodayMedications(ctx context.Context, userID, profileID string) ([]Medication, error)
	LogDose(ctx context.Context, userID, profileID, id string, req LogDoseRequest) (*DoseLog, *Medication, error)
	ListLogs(ctx context.Context, userID, profileID, medicationID string, lr LogRange) ([]DoseLog, error)
	Subscribe(ctx context.Context, userID, profileID string) (<-chan ListUpdate, error)
}

// ProfileAuthorizer checks that a user owns a care profile.
type ProfileAuthorizer interface {
	Authorize(ctx context.Context, userID, profileID string) error
}

// MetricsRecorder counts medication operations and open streams.
type MetricsRecorder interface {
	RecordMedicationOperation(ctx context.Context, operation string)
	StreamOpened(ctx context.Context)
	StreamClosed(ctx context.Context)
}

var _ ServiceInterface = (*Service)(nil)
