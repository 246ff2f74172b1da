package telegram

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChatAPI struct {
	mock.Mock
}

func (m *mockChatAPI) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.Chat), args.Error(1)
}

func (m *mockChatAPI) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.ChatMember), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestBotClient_ChannelTitle(t *testing.T) {
	ctx := context.Background()
	lookup := tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: "@gophers"}}

	t.Run("uses chat title", func(t *testing.T) {
		api := &mockChatAPI{}
		api.On("GetChat", lookup).Return(tgbotapi.Chat{Title: "Gophers"}, nil)

		c := newBotClient(newTestLogger(), api, 1, 100)
		assert.Equal(t, "Gophers", c.ChannelTitle(ctx, "@gophers"))
		api.AssertExpectations(t)
	})

	t.Run("falls back to handle on error", func(t *testing.T) {
		api := &mockChatAPI{}
		api.On("GetChat", lookup).Return(tgbotapi.Chat{}, errors.New("chat not found"))

		c := newBotClient(newTestLogger(), api, 1, 100)
		assert.Equal(t, "@gophers", c.ChannelTitle(ctx, "@gophers"))
	})

	t.Run("falls back to handle on empty title", func(t *testing.T) {
		api := &mockChatAPI{}
		api.On("GetChat", lookup).Return(tgbotapi.Chat{}, nil)

		c := newBotClient(newTestLogger(), api, 1, 100)
		assert.Equal(t, "@gophers", c.ChannelTitle(ctx, "@gophers"))
	})

	t.Run("cancelled context skips the call", func(t *testing.T) {
		api := &mockChatAPI{}
		c := newBotClient(newTestLogger(), api, 1, 100)
		c.limiter.Allow()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.Equal(t, "@gophers", c.ChannelTitle(cancelled, "@gophers"))
		api.AssertNotCalled(t, "GetChat", mock.Anything)
	})
}

func TestBotClient_IsBotAdmin(t *testing.T) {
	ctx := context.Background()
	membership := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{SuperGroupUsername: "@gophers", UserID: 77},
	}

	tests := []struct {
		name    string
		status  string
		err     error
		want    bool
		wantErr bool
	}{
		{name: "administrator", status: "administrator", want: true},
		{name: "creator", status: "creator", want: true},
		{name: "member", status: "member", want: false},
		{name: "api error", err: errors.New("forbidden"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockChatAPI{}
			api.On("GetChatMember", membership).Return(tgbotapi.ChatMember{Status: tt.status}, tt.err)

			c := newBotClient(newTestLogger(), api, 77, 100)
			got, err := c.IsBotAdmin(ctx, "@gophers")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
