package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/channel-escrow-market/internal/config"
)

// chatAPI is the subset of tgbotapi.BotAPI used for channel lookups
type chatAPI interface {
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// BotClient resolves channel metadata through the Bot API, throttled to the
// configured request rate.
type BotClient struct {
	api     chatAPI
	selfID  int64
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewBotClient authenticates the bot token against the Bot API
func NewBotClient(logger *slog.Logger, cfg *config.TelegramConfig) (*BotClient, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, cfg.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api client: %w", err)
	}
	api.Debug = false

	logger.Info("Telegram bot client ready", "bot", api.Self.UserName)
	return newBotClient(logger, api, api.Self.ID, cfg.LookupRPS), nil
}

func newBotClient(logger *slog.Logger, api chatAPI, selfID int64, rps float64) *BotClient {
	return &BotClient{
		api:     api,
		selfID:  selfID,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

// ChannelTitle returns the channel's title, or the handle itself when the
// lookup fails.
func (c *BotClient) ChannelTitle(ctx context.Context, handle string) string {
	if err := c.limiter.Wait(ctx); err != nil {
		return handle
	}

	chat, err := c.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: handle},
	})
	if err != nil {
		c.logger.Warn("Channel lookup failed, using handle as title", "channel", handle, "error", err)
		return handle
	}
	if chat.Title == "" {
		return handle
	}
	return chat.Title
}

// IsBotAdmin reports whether the bot administers the channel
func (c *BotClient) IsBotAdmin(ctx context.Context, handle string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: handle,
			UserID:             c.selfID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get bot membership in %s: %w", handle, err)
	}

	return member.IsAdministrator() || member.IsCreator(), nil
}
