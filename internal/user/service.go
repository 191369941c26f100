package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxDisplayNameLength is the longest accepted display name, in runes.
const MaxDisplayNameLength = 100

// ErrInvalidDisplayName is returned when a display name exceeds MaxDisplayNameLength.
var ErrInvalidDisplayName = errors.New("display name too long")

// Service contains business logic for user profile records.
type Service struct {
	repo Store
}

// NewService creates a new user Service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// GetOrCreate returns the record for identity, creating it with email when it
// does not exist yet. created reports whether this call inserted the record.
// Concurrent first calls for the same identity converge on one record.
func (s *Service) GetOrCreate(ctx context.Context, identity, email string) (u *User, created bool, err error) {
	u, err = s.repo.GetByIdentity(ctx, identity)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	u, err = s.repo.Create(ctx, identity, email)
	switch {
	case err == nil:
		return u, true, nil
	case errors.Is(err, ErrAlreadyExists):
		u, err = s.repo.GetByIdentity(ctx, identity)
		if err != nil {
			return nil, false, fmt.Errorf("reload user after create race: %w", err)
		}
		return u, false, nil
	default:
		return nil, false, fmt.Errorf("create user: %w", err)
	}
}

// GetByIdentity returns a user by their external identity.
func (s *Service) GetByIdentity(ctx context.Context, identity string) (*User, error) {
	return s.repo.GetByIdentity(ctx, identity)
}

// UpdateDisplayName trims name and stores it; an empty result clears the name.
func (s *Service) UpdateDisplayName(ctx context.Context, identity, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return nil, ErrInvalidDisplayName
	}
	var value *string
	if name != "" {
		value = &name
	}
	return s.repo.UpdateDisplayName(ctx, identity, value)
}

// SetPicturePaths records both stored picture paths for the user with id.
func (s *Service) SetPicturePaths(ctx context.Context, id, originalPath, scaledPath string) error {
	return s.repo.SetPicturePaths(ctx, id, originalPath, scaledPath)
}
