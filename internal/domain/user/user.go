package user

import (
	"errors"
	"strconv"
	"time"
)

var (
	ErrInvalidTelegramID = errors.New("telegram id must be positive")
)

// User is a marketplace participant identified by their Telegram account
type User struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Claims are the identity fields asserted by a verified Telegram initData payload
type Claims struct {
	TelegramID int64
	Username   string
	FirstName  string
}

// NewUser builds an unsaved user record from verified claims
func NewUser(claims Claims) (*User, error) {
	if claims.TelegramID <= 0 {
		return nil, ErrInvalidTelegramID
	}

	return &User{
		TelegramID: claims.TelegramID,
		Username:   claims.Username,
		FirstName:  claims.FirstName,
		CreatedAt:  time.Now(),
	}, nil
}

// DisplayName picks the friendliest available label for notifications and listings
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return "user " + strconv.FormatInt(u.TelegramID, 10)
	}
}
