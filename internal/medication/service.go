package medication

import (
	"context"
	"sort"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/messaging"
	"github.com/alaga-care/care-service/internal/timeofday"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	repo      RepositoryInterface
	profiles  ProfileAuthorizer
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	now       func() time.Time
}

// NewService creates the medication service. publisher and metrics may be nil.
func NewService(repo RepositoryInterface, profiles ProfileAuthorizer, publisher messaging.PublisherInterface, metrics MetricsRecorder) *Service {
	return &Service{
		repo:      repo,
		profiles:  profiles,
		publisher: publisher,
		metrics:   metrics,
		now:       docstore.Now,
	}
}

func (s *Service) CreateMedication(ctx context.Context, userID, profileID string, req CreateMedicationRequest) (*Medication, error) {
	status, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	now := s.now()
	med := &Medication{
		ID:             uuid.NewString(),
		CareProfileID:  profileID,
		UserID:         userID,
		Name:           req.Name,
		Dosage:         req.Dosage,
		Frequency:      req.Frequency,
		Time:           req.Time,
		Status:         status,
		Notes:          req.Notes,
		InventoryCount: req.InventoryCount,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Active:         req.active(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, med); err != nil {
		return nil, err
	}
	s.record(ctx, "create")

	log.WithFields(log.Fields{"medication_id": med.ID, "care_profile_id": profileID}).Info("medication created")
	s.publish(ctx, messaging.EventMedicationCreated, messaging.MedicationCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventMedicationCreated),
		Data: messaging.MedicationCreatedData{
			MedicationID:  med.ID,
			CareProfileID: profileID,
			UserID:        userID,
			Name:          med.Name,
			Dosage:        med.Dosage,
			Frequency:     med.Frequency,
			Time:          med.Time,
			CreatedAt:     med.CreatedAt,
		},
	})

	return med, nil
}

func (s *Service) ListMedications(ctx context.Context, userID, profileID string) ([]Medication, error) {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	meds, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "list")
	return meds, nil
}

func (s *Service) GetMedication(ctx context.Context, userID, profileID, id string) (*Medication, error) {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, profileID, id)
}

func (s *Service) UpdateMedication(ctx context.Context, userID, profileID, id string, req UpdateMedicationRequest) (*Medication, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	patch := req.patch()
	if len(patch) == 0 {
		return s.repo.Get(ctx, profileID, id)
	}
	patch["updated_at"] = s.now()

	med, err := s.repo.Update(ctx, profileID, id, patch)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "update")
	return med, nil
}

func (s *Service) UpdateStatus(ctx context.Context, userID, profileID, id string, req UpdateStatusRequest) (*Medication, error) {
	status, err := ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	old, med, err := s.repo.UpdateStatus(ctx, profileID, id, status)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "update_status")

	s.publish(ctx, messaging.EventMedicationStatusChanged, messaging.MedicationStatusChangedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventMedicationStatusChanged),
		Data: messaging.MedicationStatusChangedData{
			MedicationID:  med.ID,
			CareProfileID: profileID,
			OldStatus:     old.Status.String(),
			NewStatus:     med.Status.String(),
			ChangedAt:     med.UpdatedAt,
		},
	})
	return med, nil
}

func (s *Service) DeleteMedication(ctx context.Context, userID, profileID, id string) error {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, profileID, id); err != nil {
		return err
	}
	s.record(ctx, "delete")
	log.WithFields(log.Fields{"medication_id": id, "care_profile_id": profileID}).Info("medication deleted")
	return nil
}

// TodayMedications returns the active medications due today ordered by
// their time of day.
func (s *Service) TodayMedications(ctx context.Context, userID, profileID string) ([]Medication, error) {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	meds, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC().Format(DateLayout)
	due := make([]Medication, 0, len(meds))
	for i := range meds {
		if meds[i].ActiveOn(today) {
			due = append(due, meds[i])
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return timeofday.Compare(due[i].Time, due[j].Time) < 0
	})
	s.record(ctx, "today")
	return due, nil
}

// LogDose records an administered dose and returns the log with the
// medication as it is afterwards.
func (s *Service) LogDose(ctx context.Context, userID, profileID, id string, req LogDoseRequest) (*DoseLog, *Medication, error) {
	now := s.now()
	takenAt, err := req.Validate(now)
	if err != nil {
		return nil, nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, nil, err
	}

	entry := &DoseLog{
		ID:            uuid.NewString(),
		MedicationID:  id,
		CareProfileID: profileID,
		UserID:        userID,
		TakenAt:       takenAt,
		Quantity:      req.Quantity,
		Notes:         req.Notes,
		CreatedAt:     now,
	}
	old, med, err := s.repo.LogDose(ctx, entry)
	if err != nil {
		return nil, nil, err
	}
	s.record(ctx, "log_dose")

	fields := log.Fields{"medication_id": id, "care_profile_id": profileID, "log_id": entry.ID}
	if med.InventoryCount != nil {
		fields["inventory_count"] = *med.InventoryCount
	}
	log.WithFields(fields).Info("medication dose logged")

	s.publish(ctx, messaging.EventMedicationDoseLogged, messaging.MedicationDoseLoggedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventMedicationDoseLogged),
		Data: messaging.MedicationDoseLoggedData{
			LogID:          entry.ID,
			MedicationID:   id,
			CareProfileID:  profileID,
			UserID:         userID,
			TakenAt:        entry.TakenAt,
			Quantity:       entry.Quantity,
			InventoryCount: med.InventoryCount,
		},
	})
	if old.Status != med.Status {
		s.publish(ctx, messaging.EventMedicationStatusChanged, messaging.MedicationStatusChangedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventMedicationStatusChanged),
			Data: messaging.MedicationStatusChangedData{
				MedicationID:  id,
				CareProfileID: profileID,
				OldStatus:     old.Status.String(),
				NewStatus:     med.Status.String(),
				ChangedAt:     med.UpdatedAt,
			},
		})
	}
	return entry, med, nil
}

// ListLogs returns dose logs of one medication, or of the whole profile when
// medicationID is empty.
func (s *Service) ListLogs(ctx context.Context, userID, profileID, medicationID string, lr LogRange) ([]DoseLog, error) {
	if err := validateWindow(lr.StartDate, lr.EndDate); err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	if medicationID != "" {
		if _, err := s.repo.Get(ctx, profileID, medicationID); err != nil {
			return nil, err
		}
	}

	logs, err := s.repo.ListLogs(ctx, profileID, medicationID, lr)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "list_logs")
	return logs, nil
}

// Subscribe delivers the profile's medication list now and after every
// change until ctx is done.
func (s *Service) Subscribe(ctx context.Context, userID, profileID string) (<-chan ListUpdate, error) {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	updates, err := s.repo.Watch(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.StreamOpened(ctx)
	}
	out := make(chan ListUpdate)
	go func() {
		defer close(out)
		defer func() {
			if s.metrics != nil {
				s.metrics.StreamClosed(context.Background())
			}
		}()

		for update := range updates {
			select {
			case out <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (s *Service) record(ctx context.Context, op string) {
	if s.metrics != nil {
		s.metrics.RecordMedicationOperation(ctx, op)
	}
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.WithError(err).WithField("routing_key", routingKey).Warn("failed to publish event")
	}
}
