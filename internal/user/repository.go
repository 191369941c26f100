// Package user manages user profile records and their persistence.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User is the profile record of one externally authenticated identity.
type User struct {
	ID                  string    `json:"id"`
	Identity            string    `json:"identity"`
	Email               string    `json:"email"`
	DisplayName         *string   `json:"displayName,omitempty"`
	OriginalPicturePath *string   `json:"-"`
	ScaledPicturePath   *string   `json:"-"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// HasPicture reports whether a profile picture has been stored for the user.
func (u *User) HasPicture() bool {
	return u.ScaledPicturePath != nil
}

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned when a record for the identity already exists.
var ErrAlreadyExists = errors.New("user already exists")

// ErrEmailTaken is returned when another identity already owns the email.
var ErrEmailTaken = errors.New("email already registered")

// Store is the persistence contract the Service depends on.
type Store interface {
	GetByIdentity(ctx context.Context, identity string) (*User, error)
	Create(ctx context.Context, identity, email string) (*User, error)
	UpdateDisplayName(ctx context.Context, identity string, displayName *string) (*User, error)
	SetPicturePaths(ctx context.Context, id, originalPath, scaledPath string) error
}

const userColumns = `id, identity, email, display_name, original_picture_path, scaled_picture_path, created_at, updated_at`

// Repository handles all user database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user with a fresh id. A concurrent insert of the same
// identity yields ErrAlreadyExists.
func (r *Repository) Create(ctx context.Context, identity, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (id, identity, email)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (identity) DO NOTHING
		 RETURNING `+userColumns,
		uuid.NewString(), identity, email,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetByIdentity fetches a user by their external identity.
func (r *Repository) GetByIdentity(ctx context.Context, identity string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE identity = $1`,
		identity,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by identity: %w", err)
	}
	return u, nil
}

// UpdateDisplayName sets or clears (nil) the display name.
func (r *Repository) UpdateDisplayName(ctx context.Context, identity string, displayName *string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users SET display_name = $2, updated_at = NOW()
		 WHERE identity = $1
		 RETURNING `+userColumns,
		identity, displayName,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update display name: %w", err)
	}
	return u, nil
}

// SetPicturePaths records both picture paths in one statement.
func (r *Repository) SetPicturePaths(ctx context.Context, id, originalPath, scaledPath string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET original_picture_path = $2, scaled_picture_path = $3, updated_at = NOW()
		 WHERE id = $1`,
		id, originalPath, scaledPath,
	)
	if err != nil {
		return fmt.Errorf("set picture paths: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Identity, &u.Email, &u.DisplayName,
		&u.OriginalPicturePath, &u.ScaledPicturePath, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*Repository)(nil)
