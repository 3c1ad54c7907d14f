package healthrecord

import (
	"context"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/messaging"
	"github.com/alaga-care/care-service/internal/pagination"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// rebuildConcurrency bounds the per-metric fan-out of Rebuild.
const rebuildConcurrency = 4

type Service struct {
	repo      RepositoryInterface
	profiles  ProfileAuthorizer
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	now       func() time.Time
}

// NewService creates the health record service. publisher and metrics may be
// nil.
func NewService(repo RepositoryInterface, profiles ProfileAuthorizer, publisher messaging.PublisherInterface, metrics MetricsRecorder) *Service {
	return &Service{
		repo:      repo,
		profiles:  profiles,
		publisher: publisher,
		metrics:   metrics,
		now:       docstore.Now,
	}
}

func (s *Service) CreateRecord(ctx context.Context, userID, profileID string, req CreateHealthRecordRequest) (*HealthRecord, error) {
	now := s.now()
	metric, recordedAt, err := req.Validate(now)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	rec := &HealthRecord{
		ID:            uuid.NewString(),
		CareProfileID: profileID,
		UserID:        userID,
		Type:          metric,
		Value:         req.Value,
		Unit:          req.Unit,
		Notes:         req.Notes,
		Source:        req.Source,
		RecordedAt:    recordedAt,
		CreatedAt:     now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.record(ctx, "create")

	log.WithFields(log.Fields{
		"health_record_id": rec.ID,
		"care_profile_id":  profileID,
		"type":             metric.String(),
	}).Info("health record created")

	s.publish(ctx, messaging.EventHealthRecordRecorded, messaging.HealthRecordRecordedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventHealthRecordRecorded),
		Data: messaging.HealthRecordRecordedData{
			HealthRecordID: rec.ID,
			CareProfileID:  profileID,
			Type:           metric.String(),
			Value:          rec.Value,
			Unit:           rec.Unit,
			RecordedAt:     rec.RecordedAt,
		},
	})
	return rec, nil
}

func (s *Service) GetRecord(ctx context.Context, userID, profileID, id string) (*HealthRecord, error) {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, profileID, id)
}

// ListHistory pages through a profile's readings, newest first. An empty
// metric lists every type.
func (s *Service) ListHistory(ctx context.Context, userID, profileID, metric string, params pagination.Params) (*HistoryResponse, error) {
	var filter *MetricType
	if metric != "" {
		t, err := ParseMetricType(metric)
		if err != nil {
			return nil, err
		}
		filter = &t
	}
	params.Validate()

	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	records, total, err := s.repo.History(ctx, profileID, filter, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	s.record(ctx, "history")

	return &HistoryResponse{
		Records:    records,
		Pagination: params.CalculateMeta(total),
	}, nil
}

// LatestForMetric returns nil without an error when the metric has no
// readings yet.
func (s *Service) LatestForMetric(ctx context.Context, userID, profileID, metric string) (*HealthRecord, error) {
	t, err := ParseMetricType(metric)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	rec, err := s.repo.LatestForMetric(ctx, profileID, t)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "latest")
	return rec, nil
}

func (s *Service) LatestSummary(ctx context.Context, userID, profileID string) (Summary, error) {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	summary, err := s.repo.LatestSummary(ctx, profileID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "summary")
	return summary, nil
}

// UpdateRecord corrects a reading. Moving the latest reading back in time
// rebuilds its metric; a failed rebuild is logged like in DeleteRecord.
func (s *Service) UpdateRecord(ctx context.Context, userID, profileID, id string, req UpdateHealthRecordRequest) (*HealthRecord, error) {
	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}
	if req.empty() {
		return s.repo.Get(ctx, profileID, id)
	}

	rec, rebuild, err := s.repo.Update(ctx, profileID, id, req)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "update")

	if rebuild {
		if err := s.repo.RebuildMetric(ctx, profileID, rec.Type); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"care_profile_id": profileID,
				"type":            rec.Type.String(),
			}).Error("failed to rebuild latest health record after update")
		}
	}

	s.publish(ctx, messaging.EventHealthRecordUpdated, messaging.HealthRecordUpdatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventHealthRecordUpdated),
		Data: messaging.HealthRecordRecordedData{
			HealthRecordID: rec.ID,
			CareProfileID:  profileID,
			Type:           rec.Type.String(),
			Value:          rec.Value,
			Unit:           rec.Unit,
			RecordedAt:     rec.RecordedAt,
		},
	})
	return rec, nil
}

// DeleteRecord removes a reading. When it was the latest of its metric the
// side table is rebuilt from the remaining history; a failed rebuild is
// logged and left to the rebuild-latest job.
func (s *Service) DeleteRecord(ctx context.Context, userID, profileID, id string) error {
	if err := s.profiles.Authorize(ctx, userID, profileID); err != nil {
		return err
	}

	rec, err := s.repo.Delete(ctx, profileID, id)
	if err != nil {
		return err
	}
	s.record(ctx, "delete")

	if err := s.repo.RebuildMetric(ctx, profileID, rec.Type); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"care_profile_id": profileID,
			"type":            rec.Type.String(),
		}).Error("failed to rebuild latest health record after delete")
	}
	return nil
}

// Rebuild recomputes every side table entry of a profile with one history
// query per metric.
func (s *Service) Rebuild(ctx context.Context, profileID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)

	for _, metric := range MetricTypes() {
		g.Go(func() error {
			return s.repo.RebuildMetric(gctx, profileID, metric)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.record(ctx, "rebuild")
	return nil
}

func (s *Service) record(ctx context.Context, op string) {
	if s.metrics != nil {
		s.metrics.RecordHealthRecordOperation(ctx, op)
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
