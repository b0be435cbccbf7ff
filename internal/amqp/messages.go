package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// BalanceRecordedMessage announces that a balance point was written. It
// carries identifiers only; consumers reload what they need from storage.
type BalanceRecordedMessage struct {
	UserID    string    `json:"userId"`
	AccountID string    `json:"accountId"`
	BalanceID string    `json:"balanceId"`
	AsOf      time.Time `json:"asOf"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBalanceRecordedMessage(userID, accountID, balanceID string, asOf time.Time) *BalanceRecordedMessage {
	return &BalanceRecordedMessage{
		UserID:    userID,
		AccountID: accountID,
		BalanceID: balanceID,
		AsOf:      asOf.UTC(),
		Timestamp: time.Now().UTC(),
	}
}

func (m *BalanceRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BalanceRecordedMessageFromJSON decodes data and requires a user id.
func BalanceRecordedMessageFromJSON(data []byte) (*BalanceRecordedMessage, error) {
	var msg BalanceRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("balance recorded message without user id")
	}
	return &msg, nil
}
