package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/domain/user"
)

// IdentityServiceImpl implements the IdentityService interface
type IdentityServiceImpl struct {
	userRepo user.Repository
	logger   *slog.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(logger *slog.Logger, userRepo user.Repository) IdentityService {
	return &IdentityServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Resolve looks the user up by telegram id and registers it when absent. A
// concurrent first contact that wins the insert is re-read, not reported.
func (s *IdentityServiceImpl) Resolve(ctx context.Context, claims user.Claims) (*user.User, error) {
	existing, err := s.userRepo.GetByTelegramID(ctx, claims.TelegramID)
	if err != nil {
		return nil, shared.Internal("failed to look up user", err)
	}
	if existing != nil {
		return existing, nil
	}

	u, err := user.NewUser(claims)
	if err != nil {
		return nil, shared.WrapError(shared.KindUnauthorized, "Invalid user identity", err)
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		var dup user.ErrDuplicateTelegramID
		if !errors.As(err, &dup) {
			return nil, shared.Internal("failed to create user", err)
		}

		existing, err = s.userRepo.GetByTelegramID(ctx, claims.TelegramID)
		if err != nil {
			return nil, shared.Internal("failed to look up user", err)
		}
		if existing == nil {
			return nil, shared.Internal("user vanished after duplicate insert", dup)
		}
		return existing, nil
	}

	s.logger.Info("Registered new user", "user_id", u.ID, "telegram_id", u.TelegramID)
	return u, nil
}
