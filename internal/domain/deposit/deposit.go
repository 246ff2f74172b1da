package deposit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channel-escrow-market/internal/domain/shared"
)

var (
	ErrMalformedNotification = errors.New("invalid payload structure")
	ErrAmountOutOfRange      = fmt.Errorf("%w: amount out of range", ErrMalformedNotification)
	ErrInvalidComment        = errors.New("invalid deposit comment")
	ErrInvalidCommentUser    = errors.New("invalid telegram id in comment")
)

// Deposit records one credited on-chain transfer, keyed by its transaction hash
type Deposit struct {
	ID         int64           `json:"id"`
	TxHash     string          `json:"tx_hash"`
	TelegramID int64           `json:"telegram_id"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Notification is an incoming transfer reported by the chain indexer
type Notification struct {
	TxHash      string          `json:"tx_hash"`
	Destination string          `json:"destination"`
	Comment     string          `json:"comment"`
	NanoValue   decimal.Decimal `json:"nano_value"`
	Amount      decimal.Decimal `json:"amount"`
}

type tonapiPayload struct {
	Transaction *struct {
		Hash  string `json:"hash"`
		InMsg *struct {
			Value       json.RawMessage `json:"value"`
			Destination json.RawMessage `json:"destination"`
			Message     string          `json:"message"`
		} `json:"in_msg"`
	} `json:"transaction"`
}

// ParseNotification decodes a TonAPI style payload. value is an integer count
// of nano units, given as a JSON number or string, and is scaled down by
// 10^nanoExp to get the credited amount.
func ParseNotification(raw []byte, nanoExp int32) (*Notification, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var p tonapiPayload
	if err := dec.Decode(&p); err != nil {
		return nil, ErrMalformedNotification
	}
	if p.Transaction == nil || p.Transaction.InMsg == nil {
		return nil, ErrMalformedNotification
	}

	hash := strings.TrimSpace(p.Transaction.Hash)
	if hash == "" {
		return nil, ErrMalformedNotification
	}

	nano, err := parseNanoValue(p.Transaction.InMsg.Value, nanoExp)
	if err != nil {
		return nil, err
	}

	destination, err := parseDestination(p.Transaction.InMsg.Destination)
	if err != nil {
		return nil, err
	}

	return &Notification{
		TxHash:      hash,
		Destination: destination,
		Comment:     p.Transaction.InMsg.Message,
		NanoValue:   nano,
		Amount:      nano.Shift(-nanoExp),
	}, nil
}

// parseNanoValue checks the stored range before IsInteger, which would
// otherwise expand a huge negative exponent.
func parseNanoValue(raw json.RawMessage, nanoExp int32) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, ErrMalformedNotification
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, ErrMalformedNotification
		}
	}

	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrMalformedNotification
	}
	if !v.IsPositive() {
		return decimal.Zero, ErrMalformedNotification
	}
	if !shared.FitsAmount(v.Shift(-nanoExp)) {
		if v.Exponent() < 0 {
			return decimal.Zero, ErrMalformedNotification
		}
		return decimal.Zero, ErrAmountOutOfRange
	}
	if !v.IsInteger() {
		return decimal.Zero, ErrMalformedNotification
	}
	return v, nil
}

// parseDestination accepts a bare address string or an account object
// carrying an address field.
func parseDestination(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", ErrMalformedNotification
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var account struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &account); err != nil || account.Address == "" {
		return "", ErrMalformedNotification
	}
	return strings.TrimSpace(account.Address), nil
}

// ParseComment extracts the telegram id from a "<prefix><id>" transfer comment
func ParseComment(comment, prefix string) (int64, error) {
	if !strings.HasPrefix(comment, prefix) {
		return 0, ErrInvalidComment
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(comment, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidCommentUser
	}
	return id, nil
}

// Comment builds the transfer comment a user should attach to their deposit
func Comment(prefix string, telegramID int64) string {
	return prefix + strconv.FormatInt(telegramID, 10)
}

// NewDeposit builds the record for a credited notification
func NewDeposit(n *Notification, telegramID int64) *Deposit {
	return &Deposit{
		TxHash:     n.TxHash,
		TelegramID: telegramID,
		Amount:     n.Amount,
		CreatedAt:  time.Now(),
	}
}

// Result is the outcome of processing a notification that was not rejected
type Result string

const (
	ResultCredited         Result = "credited"
	ResultAlreadyProcessed Result = "already_processed"
)
