package careprofile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/messaging"
	"github.com/alaga-care/care-service/internal/storage"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	photos    PhotoStore
	owners    *ownerCache
	now       func() time.Time
}

// NewService creates the care profile service. publisher and metrics may be nil.
func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, metrics MetricsRecorder) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		owners:    newOwnerCache(),
		now:       docstore.Now,
	}
}

// WithPhotoStore enables photo uploads.
func (s *Service) WithPhotoStore(photos PhotoStore) *Service {
	s.photos = photos
	return s
}

func (s *Service) CreateProfile(ctx context.Context, userID string, req CreateCareProfileRequest) (*CareProfile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	profile := &CareProfile{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         req.Name,
		PhotoURL:     req.PhotoURL,
		Relationship: req.Relationship,
		Age:          req.Age,
		Gender:       req.Gender,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, err
	}
	s.owners.put(profile.ID, userID)
	s.record(ctx, "create")

	log.WithFields(log.Fields{"care_profile_id": profile.ID, "user_id": userID}).Info("care profile created")
	s.publish(ctx, messaging.EventCareProfileCreated, messaging.CareProfileCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventCareProfileCreated),
		Data: messaging.CareProfileCreatedData{
			CareProfileID: profile.ID,
			UserID:        userID,
			Name:          profile.Name,
			Relationship:  profile.Relationship,
			CreatedAt:     profile.CreatedAt,
		},
	})

	return profile, nil
}

func (s *Service) ListProfiles(ctx context.Context, userID string, limit int) ([]CareProfile, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	profiles, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		s.owners.put(p.ID, p.UserID)
	}
	s.record(ctx, "list")
	return profiles, nil
}

func (s *Service) GetProfile(ctx context.Context, userID, profileID string) (*CareProfile, error) {
	profile, err := s.repo.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	s.owners.put(profile.ID, profile.UserID)
	if profile.UserID != userID {
		return nil, ErrForbidden
	}
	s.record(ctx, "get")
	return profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID, profileID string, req UpdateCareProfileRequest) (*CareProfile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.Authorize(ctx, userID, profileID); err != nil {
		return nil, err
	}

	patch := req.patch()
	if len(patch) == 0 {
		return s.repo.Get(ctx, profileID)
	}
	patch["updated_at"] = s.now()

	profile, err := s.repo.Update(ctx, profileID, patch)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "update")
	return profile, nil
}

// DeleteProfile removes the profile and then, best effort, everything
// recorded under it and its photo.
func (s *Service) DeleteProfile(ctx context.Context, userID, profileID string) error {
	profile, err := s.GetProfile(ctx, userID, profileID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, profileID); err != nil {
		return err
	}
	s.owners.remove(profileID)
	s.record(ctx, "delete")

	logger := log.WithFields(log.Fields{"care_profile_id": profileID, "user_id": userID})
	removed, err := s.repo.PurgeChildren(ctx, profileID)
	if err != nil {
		logger.WithError(err).Warn("failed to purge some care profile data")
	}

	if s.photos != nil {
		if key, ok := s.photos.KeyFromURL(profile.PhotoURL); ok {
			if err := s.photos.DeletePhoto(ctx, key); err != nil {
				logger.WithError(err).Warn("failed to delete care profile photo")
			}
		}
	}

	logger.WithField("purged", removed).Info("care profile deleted")
	s.publish(ctx, messaging.EventCareProfileDeleted, messaging.CareProfileDeletedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventCareProfileDeleted),
		Data: messaging.CareProfileDeletedData{
			CareProfileID: profileID,
			UserID:        userID,
			DeletedAt:     s.now(),
		},
	})
	return nil
}

// UploadPhoto stores a new photo and points the profile at it. The previous
// photo is removed when it lives in the same bucket.
func (s *Service) UploadPhoto(ctx context.Context, userID, profileID string, photo io.Reader, size int64, contentType string) (*CareProfile, error) {
	if s.photos == nil {
		return nil, ErrPhotosDisabled
	}

	current, err := s.GetProfile(ctx, userID, profileID)
	if err != nil {
		return nil, err
	}

	_, url, err := s.photos.PutPhoto(ctx, profileID, photo, size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedPhoto, contentType)
		}
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	profile, err := s.repo.Update(ctx, profileID, map[string]interface{}{
		"photo_url":  url,
		"updated_at": s.now(),
	})
	if err != nil {
		return nil, err
	}

	if key, ok := s.photos.KeyFromURL(current.PhotoURL); ok {
		if err := s.photos.DeletePhoto(ctx, key); err != nil {
			log.WithError(err).WithField("care_profile_id", profileID).Warn("failed to delete previous photo")
		}
	}

	s.record(ctx, "upload_photo")
	return profile, nil
}

func (s *Service) record(ctx context.Context, op string) {
	if s.metrics != nil {
		s.metrics.RecordCareProfileOperation(ctx, op)
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
