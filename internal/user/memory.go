package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Store used by tests and local tooling.
type MemoryRepository struct {
	mu         sync.Mutex
	byIdentity map[string]*User
	now        func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byIdentity: map[string]*User{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) Create(ctx context.Context, identity, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byIdentity[identity]; ok {
		return nil, ErrAlreadyExists
	}
	if email != "" {
		for _, u := range r.byIdentity {
			if u.Email == email {
				return nil, ErrEmailTaken
			}
		}
	}

	now := r.now()
	u := &User{
		ID:        uuid.NewString(),
		Identity:  identity,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byIdentity[identity] = u
	return clone(u), nil
}

func (r *MemoryRepository) GetByIdentity(ctx context.Context, identity string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byIdentity[identity]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) UpdateDisplayName(ctx context.Context, identity string, displayName *string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byIdentity[identity]
	if !ok {
		return nil, ErrNotFound
	}
	u.DisplayName = cloneString(displayName)
	u.UpdatedAt = r.now()
	return clone(u), nil
}

func (r *MemoryRepository) SetPicturePaths(ctx context.Context, id, originalPath, scaledPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byIdentity {
		if u.ID == id {
			u.OriginalPicturePath = &originalPath
			u.ScaledPicturePath = &scaledPath
			u.UpdatedAt = r.now()
			return nil
		}
	}
	return ErrNotFound
}

func clone(u *User) *User {
	c := *u
	c.DisplayName = cloneString(u.DisplayName)
	c.OriginalPicturePath = cloneString(u.OriginalPicturePath)
	c.ScaledPicturePath = cloneString(u.ScaledPicturePath)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

var _ Store = (*MemoryRepository)(nil)
