package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event actions carried on the ledger queue.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// LedgerEventMessage notifies the export worker that one ledger entry
// changed. It carries only the kind, action and ID; the worker loads the
// full entry from the database.
type LedgerEventMessage struct {
	Kind      string    `json:"kind"`   // storage.KindGrocery or storage.KindDeposit
	Action    string    `json:"action"` // ActionCreated or ActionDeleted
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event message stamped with the current time.
func NewLedgerEvent(kind, action, id string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		Action:    action,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// Validate rejects messages a consumer cannot act on.
func (m *LedgerEventMessage) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("ledger event without entry ID")
	}
	if m.Action != ActionCreated && m.Action != ActionDeleted {
		return fmt.Errorf("unknown ledger event action %q", m.Action)
	}
	return nil
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
