// Package postgres provides PostgreSQL implementations of the domain
// repositories. Every repository can be rebound to a transaction with WithTx
// so that an order transition, its ledger entry and its outbox event commit
// together.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/channel-escrow-market/internal/domain/user"
	"github.com/channel-escrow-market/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(logger *slog.Logger, db *persistence.PostgresDB) user.Repository {
	return &UserRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

func (r *UserRepository) WithTx(tx pgx.Tx) user.Repository {
	return &UserRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new user and assigns its id. A second user with the same
// telegram id yields ErrDuplicateTelegramID.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query, u.TelegramID, u.Username, u.FirstName, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err, "") {
			return user.ErrDuplicateTelegramID{TelegramID: u.TelegramID}
		}
		r.logger.Error("Failed to create user", "telegram_id", u.TelegramID, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by internal id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `
		SELECT id, telegram_id, username, first_name, created_at
		FROM users
		WHERE id = $1
	`

	var u user.User
	err := r.querier.QueryRow(ctx, query, id).Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{UserID: id}
		}
		r.logger.Error("Failed to get user", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// GetByTelegramID retrieves a user by telegram id, or nil when absent
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	query := `
		SELECT id, telegram_id, username, first_name, created_at
		FROM users
		WHERE telegram_id = $1
	`

	var u user.User
	err := r.querier.QueryRow(ctx, query, telegramID).Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get user by telegram id", "telegram_id", telegramID, "error", err)
		return nil, fmt.Errorf("failed to get user by telegram id: %w", err)
	}

	return &u, nil
}
