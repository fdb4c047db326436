package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces that the ledger was mutated and persisted.
// It carries no entry data; consumers reload the ledger from the store.
type LedgerChangedMessage struct {
	Action    string    `json:"action"`
	Revision  uint64    `json:"revision"`
	Entries   int       `json:"entries"`
	Persisted bool      `json:"persisted"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a change event stamped with the current time
func NewLedgerChangedMessage(action string, revision uint64, entries int, persisted bool) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Action:    action,
		Revision:  revision,
		Entries:   entries,
		Persisted: persisted,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
