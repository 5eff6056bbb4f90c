package interfaces

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"chatty-server/internal/models"
)

// DBTX is the subset of pgx operations repositories need. Both *pgxpool.Pool
// and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository defines user persistence. Lookups by username are
// case-sensitive exact matches.
type UserRepository interface {
	// CreateUser inserts a new user and fills in the generated id and
	// timestamps. Returns models.ErrUserAlreadyExists on a duplicate username.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername returns models.ErrUserNotFound if no user matches.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID returns models.ErrUserNotFound if no user matches.
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// ListUsers returns all users ordered by creation time.
	ListUsers(ctx context.Context) ([]models.User, error)

	// UpdateUserFields updates the given fields; nil pointers are left
	// untouched. Returns models.ErrUserNotFound when no row matches.
	UpdateUserFields(ctx context.Context, userID uuid.UUID, avatar *string, role *string, isBanned *bool) error

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// MessageRepository defines message persistence. Listing is always
// most-recent-first; filters are applied as parameterized predicates.
type MessageRepository interface {
	// CreateMessage inserts a new message and fills in the generated id and
	// creation timestamp.
	CreateMessage(ctx context.Context, msg *models.Message) error

	// GetMessageByID returns models.ErrMessageNotFound if no message matches.
	GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error)

	// ListMessages returns hydrated messages newest-first, narrowed by filter.
	ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)

	// DeleteMessage removes a message. Returns models.ErrMessageNotFound when
	// no row matches.
	DeleteMessage(ctx context.Context, id uuid.UUID) error

	// GetUserStats aggregates message activity for the given author id.
	GetUserStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
}
