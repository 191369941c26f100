// Package profile implements the user profile endpoints and the profile picture
// upload and fetch pipelines.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/thuddle/api/internal/metrics"
	"github.com/thuddle/api/internal/storage"
	"github.com/thuddle/api/internal/user"
)

// CacheKeyPrefix namespaces picture entries in the read cache.
const CacheKeyPrefix = "profile-picture:"

// UserStore is the subset of the user record service used here.
type UserStore interface {
	GetOrCreate(ctx context.Context, identity, email string) (*user.User, bool, error)
	GetByIdentity(ctx context.Context, identity string) (*user.User, error)
	UpdateDisplayName(ctx context.Context, identity, name string) (*user.User, error)
	SetPicturePaths(ctx context.Context, id, originalPath, scaledPath string) error
}

// Scaler turns raw upload bytes into the PNG thumbnail.
type Scaler interface {
	Scale(data []byte) ([]byte, error)
}

// PictureStore persists picture objects.
type PictureStore interface {
	Upload(ctx context.Context, userID string, original, scaled []byte) (originalPath, scaledPath string, err error)
	DownloadScaled(ctx context.Context, scaledPath string) ([]byte, error)
}

// PictureCache is the read cache in front of PictureStore.
type PictureCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Invalidate(key string)
}

// Options configures a Service.
type Options struct {
	MaxUploadBytes int64
	CacheTTL       time.Duration
	Metrics        *metrics.Pictures
}

// Service coordinates the user record store, the image transform, object storage
// and the read cache.
type Service struct {
	users    UserStore
	scaler   Scaler
	pictures PictureStore
	cache    PictureCache
	opts     Options
}

// NewService creates a profile Service.
func NewService(users UserStore, scaler Scaler, pictures PictureStore, cache PictureCache, opts Options) *Service {
	return &Service{
		users:    users,
		scaler:   scaler,
		pictures: pictures,
		cache:    cache,
		opts:     opts,
	}
}

// CacheKey returns the read cache key for identity.
func CacheKey(identity string) string {
	return CacheKeyPrefix + identity
}

// GetOrCreateProfile returns the caller's record, inserting it on first access.
// This is a write on first call and a plain read afterwards.
func (s *Service) GetOrCreateProfile(ctx context.Context, identity, email string) (*user.User, error) {
	u, created, err := s.users.GetOrCreate(ctx, identity, email)
	if err != nil {
		return nil, fmt.Errorf("get or create profile: %w", err)
	}
	if created {
		log.Printf("profile: created record id=%s identity=%s", u.ID, identity)
	}
	return u, nil
}

// UpdateDisplayName changes the caller's display name.
func (s *Service) UpdateDisplayName(ctx context.Context, identity, name string) (*user.User, error) {
	u, err := s.users.UpdateDisplayName(ctx, identity, name)
	switch {
	case errors.Is(err, user.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, user.ErrInvalidDisplayName):
		return nil, &ValidationError{Reason: ReasonDisplayName}
	case err != nil:
		return nil, fmt.Errorf("update display name: %w", err)
	}
	return u, nil
}

// UploadPicture validates data, stores the original and its thumbnail, records
// both paths on the user and drops the cached thumbnail. The record is only
// touched after both objects are stored.
func (s *Service) UploadPicture(ctx context.Context, identity string, data []byte, declaredSize int64) error {
	err := s.uploadPicture(ctx, identity, data, declaredSize)
	s.opts.Metrics.Upload(uploadResult(err))
	return err
}

func (s *Service) uploadPicture(ctx context.Context, identity string, data []byte, declaredSize int64) error {
	if len(data) == 0 {
		return &ValidationError{Reason: ReasonEmpty}
	}
	if declaredSize > s.opts.MaxUploadBytes || int64(len(data)) > s.opts.MaxUploadBytes {
		return &ValidationError{Reason: ReasonTooLarge}
	}

	u, err := s.users.GetByIdentity(ctx, identity)
	if errors.Is(err, user.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	start := time.Now()
	scaled, err := s.scaler.Scale(data)
	s.opts.Metrics.ObserveScale(time.Since(start))
	if err != nil {
		return err
	}

	originalPath, scaledPath, err := s.pictures.Upload(ctx, u.ID, data, scaled)
	if err != nil {
		log.Printf("profile: picture upload failed user=%s: %v", u.ID, err)
		return err
	}

	if err := s.users.SetPicturePaths(ctx, u.ID, originalPath, scaledPath); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("record picture paths: %w", err)
	}

	s.cache.Invalidate(CacheKey(identity))
	return nil
}

// GetPicture returns the thumbnail for identity, from cache when possible.
// Misses are never cached.
func (s *Service) GetPicture(ctx context.Context, identity string) ([]byte, error) {
	key := CacheKey(identity)
	if data, ok := s.cache.Get(key); ok {
		s.opts.Metrics.CacheLookup(true)
		return data, nil
	}
	s.opts.Metrics.CacheLookup(false)

	u, err := s.users.GetByIdentity(ctx, identity)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u.ScaledPicturePath == nil {
		return nil, ErrNotFound
	}

	data, err := s.pictures.DownloadScaled(ctx, *u.ScaledPicturePath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, data, s.opts.CacheTTL)
	return data, nil
}

func uploadResult(err error) string {
	var serr *storage.Error
	switch {
	case err == nil:
		return metrics.UploadOK
	case errors.Is(err, ErrNotFound):
		return metrics.UploadNotFound
	case IsValidation(err, ""), isImageError(err):
		return metrics.UploadInvalid
	case errors.As(err, &serr):
		return metrics.UploadStorageError
	default:
		return metrics.UploadFailed
	}
}
