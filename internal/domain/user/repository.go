package user

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository defines user persistence operations
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByTelegramID returns nil, nil when no user is registered for the telegram id
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrUserNotFound indicates missing user
type ErrUserNotFound struct {
	UserID int64
}

func (e ErrUserNotFound) Error() string {
	return "user not found: " + strconv.FormatInt(e.UserID, 10)
}

// ErrDuplicateTelegramID indicates telegram id uniqueness violation
type ErrDuplicateTelegramID struct {
	TelegramID int64
}

func (e ErrDuplicateTelegramID) Error() string {
	return "user with telegram id already exists: " + strconv.FormatInt(e.TelegramID, 10)
}
