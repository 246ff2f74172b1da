package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/channel-escrow-market/internal/domain/activity"
	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/domain/user"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	ledgerRepo    ledger.Repository
	activityRepo  activity.Repository
	walletAddress string
	commentPrefix string
	logger        *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	logger *slog.Logger,
	ledgerRepo ledger.Repository,
	activityRepo activity.Repository,
	walletAddress string,
	commentPrefix string,
) AccountService {
	return &AccountServiceImpl{
		ledgerRepo:    ledgerRepo,
		activityRepo:  activityRepo,
		walletAddress: walletAddress,
		commentPrefix: commentPrefix,
		logger:        logger,
	}
}

// Profile returns the user with a balance computed from the ledger at call time
func (s *AccountServiceImpl) Profile(ctx context.Context, u *user.User) (*Profile, error) {
	balance, err := s.ledgerRepo.BalanceOf(ctx, u.ID)
	if err != nil {
		return nil, shared.Internal("failed to read balance", err)
	}
	return &Profile{User: u, Balance: balance}, nil
}

// Ledger returns one page of the user's entries, newest first, and the total count
func (s *AccountServiceImpl) Ledger(ctx context.Context, userID int64, page, perPage int) ([]*ledger.Entry, int64, error) {
	limit, offset := pageWindow(page, perPage)

	var (
		entries []*ledger.Entry
		total   int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.ledgerRepo.GetByUserID(gctx, userID, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.ledgerRepo.CountByUserID(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, shared.Internal("failed to read ledger", err)
	}
	return entries, total, nil
}

// Activity returns one page of the user's feed, newest first, and the total count
func (s *AccountServiceImpl) Activity(ctx context.Context, userID int64, page, perPage int) ([]*activity.Item, int64, error) {
	limit, offset := pageWindow(page, perPage)

	items, err := s.activityRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, shared.Internal("failed to read activity", err)
	}
	total, err := s.activityRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, shared.Internal("failed to count activity", err)
	}
	return items, total, nil
}

// DepositInstructions returns the wallet and the comment that routes a transfer to u
func (s *AccountServiceImpl) DepositInstructions(u *user.User) *DepositInstructions {
	return &DepositInstructions{
		WalletAddress: s.walletAddress,
		Comment:       deposit.Comment(s.commentPrefix, u.TelegramID),
	}
}

func pageWindow(page, perPage int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	return perPage, (page - 1) * perPage
}
