// Package telegram verifies Mini App initData and wraps the Bot API calls the
// marketplace needs.
package telegram

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/channel-escrow-market/internal/clock"
	"github.com/channel-escrow-market/internal/domain/user"
)

const (
	webAppDataKey = "WebAppData"
	maxClockSkew  = time.Minute
)

var (
	ErrMalformedInitData = errors.New("malformed init data")
	ErrMissingHash       = errors.New("init data hash is missing")
	ErrSignatureMismatch = errors.New("init data signature mismatch")
	ErrInvalidAuthDate   = errors.New("init data auth_date is missing or invalid")
	ErrInitDataExpired   = errors.New("init data has expired")
	ErrInvalidUserField  = errors.New("init data user field is invalid")
)

// webAppUser is the exact shape of the initData user field
type webAppUser struct {
	ID                    int64  `json:"id"`
	IsBot                 bool   `json:"is_bot,omitempty"`
	FirstName             string `json:"first_name,omitempty"`
	LastName              string `json:"last_name,omitempty"`
	Username              string `json:"username,omitempty"`
	LanguageCode          string `json:"language_code,omitempty"`
	IsPremium             bool   `json:"is_premium,omitempty"`
	AddedToAttachmentMenu bool   `json:"added_to_attachment_menu,omitempty"`
	AllowsWriteToPM       bool   `json:"allows_write_to_pm,omitempty"`
	PhotoURL              string `json:"photo_url,omitempty"`
}

// Verifier checks the signature and freshness of Mini App initData
type Verifier struct {
	secretKey []byte
	ttl       time.Duration
	clock     clock.Clock
}

// NewVerifier derives the signing key from the bot token
func NewVerifier(botToken string, ttl time.Duration, clk clock.Clock) *Verifier {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(botToken))

	return &Verifier{
		secretKey: mac.Sum(nil),
		ttl:       ttl,
		clock:     clk,
	}
}

// Verify returns the identity claims of a correctly signed, unexpired payload
func (v *Verifier) Verify(initData string) (*user.Claims, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInitData, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}

	expected := v.sign(values)
	provided, err := hex.DecodeString(hash)
	if err != nil || !hmac.Equal(expected, provided) {
		return nil, ErrSignatureMismatch
	}

	authUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil || authUnix <= 0 {
		return nil, ErrInvalidAuthDate
	}
	authDate := time.Unix(authUnix, 0)
	now := v.clock.Now()
	if now.Sub(authDate) > v.ttl {
		return nil, ErrInitDataExpired
	}
	if authDate.Sub(now) > maxClockSkew {
		return nil, ErrInvalidAuthDate
	}

	u, err := decodeUser(values.Get("user"))
	if err != nil {
		return nil, err
	}

	return &user.Claims{
		TelegramID: u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
	}, nil
}

// sign computes the HMAC of the sorted key=value lines, hash excluded
func (v *Verifier) sign(values url.Values) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	mac := hmac.New(sha256.New, v.secretKey)
	mac.Write([]byte(strings.Join(lines, "\n")))
	return mac.Sum(nil)
}

func decodeUser(raw string) (*webAppUser, error) {
	if raw == "" {
		return nil, ErrInvalidUserField
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var u webAppUser
	if err := dec.Decode(&u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUserField, err)
	}
	if dec.More() {
		return nil, ErrInvalidUserField
	}
	if u.ID <= 0 {
		return nil, ErrInvalidUserField
	}
	return &u, nil
}
