package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event operations.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// LedgerEvent is published after a transaction write has committed. It
// carries enough of the final state for consumers to re-evaluate budgets
// or export the row without another round trip for the common case.
type LedgerEvent struct {
	Op            string    `json:"op"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	Date          time.Time `json:"date"`
	CategoryID    *string   `json:"category_id,omitempty"`
	AccountID     *string   `json:"account_id,omitempty"`
	CreditCardID  *string   `json:"credit_card_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
