package packages

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/broker/messages"
	"github.com/BearBump/SkyRush/internal/cache"
	"github.com/BearBump/SkyRush/internal/integrations/media"
	"github.com/BearBump/SkyRush/internal/logger"
	"github.com/BearBump/SkyRush/internal/models"
	"github.com/BearBump/SkyRush/internal/storage/pgskyrush"
	"github.com/BearBump/SkyRush/internal/validation"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const maxTrackingAttempts = 5

const (
	initialLocation = "System"
	initialNote     = "Package registered in system"
)

type Repository interface {
	CreatePackage(ctx context.Context, p *models.Package) (*models.Package, error)
	ListPackagesByOwner(ctx context.Context, userID string) ([]*models.Package, error)
	GetPackageByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error)
	AppendStatus(ctx context.Context, packageID string, ev models.StatusEvent, check pgskyrush.TransitionCheck) (*models.Package, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Service struct {
	repo      Repository
	uploader  media.Uploader
	cache     cache.BytesCache
	publicTTL time.Duration
	events    Publisher
	topic     string
	validator *validation.Validator

	newTrackingNumber func() (string, error)
}

// New wires the registry. cache and events may be nil; a zero publicTTL
// disables the public tracking cache.
func New(repo Repository, uploader media.Uploader, c cache.BytesCache, publicTTL time.Duration, events Publisher, topic string) *Service {
	return &Service{
		repo:              repo,
		uploader:          uploader,
		cache:             c,
		publicTTL:         publicTTL,
		events:            events,
		topic:             topic,
		validator:         validation.New(),
		newTrackingNumber: newTrackingNumber,
	}
}

// Create uploads the image at imagePath and registers a package for ownerID.
// imagePath is removed before returning, whatever the outcome.
func (s *Service) Create(ctx context.Context, ownerID string, in models.PackageCreateInput, imagePath string) (*models.Package, error) {
	if imagePath == "" {
		return nil, apperr.BadRequest("Please upload a package image")
	}
	defer removeTemp(ctx, imagePath)

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperr.BadRequest("Please add a package title")
	}

	img, err := s.uploader.Upload(ctx, imagePath)
	if err != nil {
		return nil, apperr.Internal(err, "Image upload failed")
	}

	pkg := &models.Package{
		UserID:           ownerID,
		Title:            in.Title,
		Description:      strings.TrimSpace(in.Description),
		ExternalTracking: strings.TrimSpace(in.ExternalTracking),
		Status:           models.PackageStatusPending,
		PackageImage:     models.PackageImage{URL: img.URL, PublicID: img.PublicID},
		History: []models.StatusEvent{{
			Status:    models.PackageStatusPending,
			Location:  initialLocation,
			Note:      initialNote,
			Timestamp: time.Now().UTC(),
		}},
	}

	for attempt := 1; attempt <= maxTrackingAttempts; attempt++ {
		tn, err := s.newTrackingNumber()
		if err != nil {
			return nil, apperr.Internal(err, "Failed to generate tracking number")
		}
		pkg.TrackingNumber = tn

		created, err := s.repo.CreatePackage(ctx, pkg)
		if errors.Is(err, pgskyrush.ErrDuplicate) {
			logger.FromContext(ctx).Warn("tracking number collision",
				zap.String("tracking_number", tn), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err, "Failed to create package")
		}

		s.publish(ctx, created, created.History[len(created.History)-1])
		return created, nil
	}
	return nil, apperr.Conflict("Could not allocate a unique tracking number")
}

// ListOwned returns the owner's packages, newest first.
func (s *Service) ListOwned(ctx context.Context, ownerID string) ([]*models.Package, error) {
	out, err := s.repo.ListPackagesByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load packages")
	}
	return out, nil
}

// TrackPublic looks a package up by tracking number. The result never
// carries the owner.
func (s *Service) TrackPublic(ctx context.Context, trackingNumber string) (*models.Package, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, apperr.NotFound("Tracking number not found")
	}

	if s.cacheEnabled() {
		b, ok, err := s.cache.Get(ctx, publicKey(trackingNumber))
		if err != nil {
			logger.FromContext(ctx).Warn("public tracking cache get", zap.Error(err))
		}
		if err == nil && ok {
			var p models.Package
			if json.Unmarshal(b, &p) == nil {
				p.UserID = ""
				return &p, nil
			}
		}
	}

	p, err := s.repo.GetPackageByTrackingNumber(ctx, trackingNumber)
	if errors.Is(err, pgskyrush.ErrNotFound) {
		return nil, apperr.NotFound("Tracking number not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load package")
	}

	public := publicView(p)
	s.storePublic(ctx, public)
	return public, nil
}

// UpdateStatus appends a history entry and moves the package to in.Status.
// Only admins may call it.
func (s *Service) UpdateStatus(ctx context.Context, actorRole, packageID string, in models.StatusUpdateInput) (*models.Package, error) {
	if actorRole != models.RoleAdmin {
		return nil, apperr.Forbidden("Not authorized as an admin")
	}
	in.Status = strings.TrimSpace(in.Status)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if !IsKnownStatus(in.Status) {
		return nil, apperr.BadRequest("Unknown status %q", in.Status)
	}

	ev := models.StatusEvent{
		Status:    in.Status,
		Location:  strings.TrimSpace(in.Location),
		Note:      strings.TrimSpace(in.Note),
		Timestamp: time.Now().UTC(),
	}
	p, err := s.repo.AppendStatus(ctx, packageID, ev, checkTransition(in.Status))
	if errors.Is(err, pgskyrush.ErrNotFound) {
		return nil, apperr.NotFound("Package not found")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return nil, appErr
	}
	if err != nil {
		return nil, apperr.Internal(err, "Failed to update package status")
	}

	s.storePublic(ctx, publicView(p))
	s.publish(ctx, p, ev)
	return p, nil
}

// ApplyStatusChanged refreshes the public cache entry named by msg. Every
// replica runs it, so each local view converges after a change elsewhere.
func (s *Service) ApplyStatusChanged(ctx context.Context, msg messages.PackageStatusChanged) error {
	if msg.TrackingNumber == "" {
		return errors.New("tracking_number is required")
	}
	if !s.cacheEnabled() {
		return nil
	}

	p, err := s.repo.GetPackageByTrackingNumber(ctx, msg.TrackingNumber)
	if errors.Is(err, pgskyrush.ErrNotFound) {
		return s.cache.Delete(ctx, publicKey(msg.TrackingNumber))
	}
	if err != nil {
		return err
	}
	s.storePublic(ctx, publicView(p))
	return nil
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.publicTTL > 0
}

func (s *Service) storePublic(ctx context.Context, p *models.Package) {
	if !s.cacheEnabled() {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, publicKey(p.TrackingNumber), b, s.publicTTL); err != nil {
		logger.FromContext(ctx).Warn("public tracking cache set", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, p *models.Package, ev models.StatusEvent) {
	if s.events == nil {
		return
	}
	b, err := json.Marshal(messages.PackageStatusChanged{
		PackageID:      p.ID,
		TrackingNumber: p.TrackingNumber,
		Status:         ev.Status,
		Location:       ev.Location,
		Note:           ev.Note,
		ChangedAt:      ev.Timestamp,
	})
	if err != nil {
		return
	}
	if err := s.events.Publish(ctx, s.topic, []byte(p.TrackingNumber), b); err != nil {
		logger.FromContext(ctx).Warn("publish package status", zap.String("tracking_number", p.TrackingNumber), zap.Error(err))
	}
}

func publicView(p *models.Package) *models.Package {
	out := *p
	out.UserID = ""
	out.History = append([]models.StatusEvent(nil), p.History...)
	return &out
}

func publicKey(trackingNumber string) string {
	return "package:" + trackingNumber + ":public"
}

func removeTemp(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.FromContext(ctx).Warn("remove upload temp file", zap.String("path", path), zap.Error(err))
	}
}
