package calendar

import (
	"context"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/messaging"
	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	repo      RepositoryInterface
	profiles  ProfileAuthorizer
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	now       func() time.Time
}

// NewService creates the calendar service. publisher and metrics may be nil.
func NewService(repo RepositoryInterface, profiles ProfileAuthorizer, publisher messaging.PublisherInterface, metrics MetricsRecorder) *Service {
	return &Service{
		repo:      repo,
		profiles:  profiles,
		publisher: publisher,
		metrics:   metrics,
		now:       docstore.Now,
	}
}

func (s *Service) CreateEvent(ctx context.Context, userID, profileID string, req CreateEventRequest) (*CalendarEvent, error) {
	p, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	if p.Type == TypeMedication && req.RelatedID != "" {
		if err := s.repo.CheckMedicationLink(ctx, profileID, req.RelatedID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	event := &CalendarEvent{
		ID:            uuid.NewString(),
		CareProfileID: profileID,
		UserID:        userID,
		Title:         req.Title,
		Type:          p.Type,
		Date:          p.Date,
		Time:          req.Time,
		Description:   req.Description,
		RelatedID:     req.RelatedID,
		Status:        p.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	s.record(ctx, "create")

	s.publish(ctx, messaging.EventCalendarEventCreated, messaging.CalendarEventCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventCalendarEventCreated),
		Data: messaging.CalendarEventCreatedData{
			CalendarEventID: event.ID,
			CareProfileID:   profileID,
			Title:           event.Title,
			Type:            event.Type.String(),
			Date:            event.Date.Format(DateLayout),
			Time:            event.Time,
			RelatedID:       event.RelatedID,
			CreatedAt:       event.CreatedAt,
		},
	})
	return event, nil
}

// ListEvents returns events between from and to inclusive. Either bound may
// be empty.
func (s *Service) ListEvents(ctx context.Context, userID, profileID, from, to string) ([]CalendarEvent, error) {
	var fromDay, toDay time.Time
	var err error
	if from != "" {
		if fromDay, err = ParseDate(from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if toDay, err = ParseDate(to); err != nil {
			return nil, err
		}
	}
	if !fromDay.IsZero() && !toDay.IsZero() && fromDay.After(toDay) {
		return nil, ErrInvalidRange
	}

	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	events, err := s.repo.ListRange(ctx, profileID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "list")
	return events, nil
}

func (s *Service) GetDay(ctx context.Context, userID, profileID, date string) (*CalendarDay, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.day(ctx, userID, profileID, day)
}

func (s *Service) GetToday(ctx context.Context, userID, profileID string) (*CalendarDay, error) {
	return s.day(ctx, userID, profileID, Day(s.now()))
}

func (s *Service) day(ctx context.Context, userID, profileID string, day time.Time) (*CalendarDay, error) {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	events, err := s.repo.ListRange(ctx, profileID, day, day)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "day")
	return &CalendarDay{Date: day.Format(DateLayout), Events: events}, nil
}

// GetMonth groups a month's events by day. Days without events are present
// with an empty list.
func (s *Service) GetMonth(ctx context.Context, userID, profileID string, year, month int) (*CalendarMonth, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	events, err := s.repo.ListRange(ctx, profileID, first, last)
	if err != nil {
		return nil, err
	}

	byDay := lo.GroupBy(events, func(e CalendarEvent) string {
		return e.Date.Format(DateLayout)
	})

	days := make(map[string]CalendarDay, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		dayEvents := byDay[key]
		if dayEvents == nil {
			dayEvents = []CalendarEvent{}
		}
		days[key] = CalendarDay{Date: key, Events: dayEvents}
	}

	s.record(ctx, "month")
	return &CalendarMonth{Year: year, Month: month, Days: days}, nil
}

func (s *Service) GetEvent(ctx context.Context, userID, profileID, id string) (*CalendarEvent, error) {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, profileID, id)
}

func (s *Service) UpdateEvent(ctx context.Context, userID, profileID, id string, req UpdateEventRequest) (*CalendarEvent, error) {
	patch, err := req.patch()
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return s.repo.Get(ctx, profileID, id)
	}
	patch["updated_at"] = s.now()

	event, err := s.repo.Update(ctx, profileID, id, patch)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "update")
	return event, nil
}

func (s *Service) DeleteEvent(ctx context.Context, userID, profileID, id string) error {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, profileID, id); err != nil {
		return err
	}
	s.record(ctx, "delete")
	return nil
}

// MarkEventStatus sets an event's status and carries it over to the linked
// medication atomically.
func (s *Service) MarkEventStatus(ctx context.Context, userID, profileID, id string, req MarkStatusRequest) (*CalendarEvent, error) {
	status, err := ParseEventStatus(req.Status)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	res, err := s.repo.MarkStatus(ctx, profileID, id, status, s.now())
	if err != nil {
		return nil, err
	}
	s.record(ctx, "mark_status")
	if s.metrics != nil {
		s.metrics.RecordPropagation(ctx, res.Outcome)
	}

	event := res.Event
	fields := log.Fields{
		"calendar_event_id": event.ID,
		"care_profile_id":   profileID,
		"status":            status.String(),
	}
	if res.Outcome == OutcomeDanglingLink {
		log.WithFields(fields).WithField("related_id", event.RelatedID).Warn("linked medication no longer exists, updated event only")
	}

	s.publish(ctx, messaging.EventCalendarEventStatusChanged, messaging.CalendarEventStatusChangedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventCalendarEventStatusChanged),
		Data: messaging.CalendarEventStatusChangedData{
			CalendarEventID: event.ID,
			CareProfileID:   profileID,
			OldStatus:       res.OldStatus.String(),
			NewStatus:       event.Status.String(),
			ChangedAt:       event.UpdatedAt,
		},
	})

	if med := res.Medication; med != nil {
		log.WithFields(fields).WithField("medication_id", med.ID).Info("event status propagated to medication")
		s.publish(ctx, messaging.EventMedicationStatusChanged, messaging.MedicationStatusChangedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventMedicationStatusChanged),
			Data: messaging.MedicationStatusChangedData{
				MedicationID:  med.ID,
				CareProfileID: profileID,
				OldStatus:     res.OldMedicationStatus.String(),
				NewStatus:     med.Status.String(),
				SourceEventID: event.ID,
				ChangedAt:     med.UpdatedAt,
			},
		})
	}

	return event, nil
}

func (s *Service) record(ctx context.Context, op string) {
	if s.metrics != nil {
		s.metrics.RecordCalendarEventOperation(ctx, op)
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
