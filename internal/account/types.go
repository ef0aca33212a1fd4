package account

import (
	"time"

	"posbook/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType labels the events an account actor processes.
type EventType string

const (
	EventTrade      EventType = "trade"
	EventQuote      EventType = "quote"
	EventSettlement EventType = "settlement"
	EventSwitchDay  EventType = "switch_day"
)

// EventEnvelope wraps one event on its way through the actor loop. ReplyCh,
// when set, receives the handler result so callers can process synchronously.
type EventEnvelope struct {
	ID        string
	Type      EventType
	Payload   any
	CreatedAt time.Time
	ReplyCh   chan error
}

// NewEnvelope stamps an event with a fresh ID and timestamp.
func NewEnvelope(eventType EventType, payload any) EventEnvelope {
	return EventEnvelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// SettlementPayload carries the end-of-day settlement price for one
// instrument. Positions not named by any settlement event keep their state.
type SettlementPayload struct {
	InstrumentID string
	ExchangeID   string
	Price        decimal.Decimal
}

// SwitchDayPayload rolls every position of the account to a new trading day.
// Delivered exactly once per day boundary, after that day's settlement.
type SwitchDayPayload struct {
	TradingDay string
}

// JournalRecord is the persisted form of one applied event.
type JournalRecord struct {
	EventID   string
	AccountID string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Journal is the append-only event log the actor writes before handling.
type Journal interface {
	Append(rec JournalRecord) error
}

// SnapshotStore persists the account view after each applied event.
type SnapshotStore interface {
	SaveAccount(snap types.AccountSnapshot) error
}
