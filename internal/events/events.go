// Package events defines the change events emitted on every transaction
// mutation and the publisher contract for shipping them to an external
// broker. Publishing mirrors the in-process feed for outside consumers;
// it is best effort and never fails the mutation itself.
package events

import "time"

// Topic is the broker topic carrying transaction change events.
const Topic = "transaction_changed"

// Op identifies the kind of mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// TransactionChanged is emitted after a transaction mutation commits.
type TransactionChanged struct {
	Op         Op        `json:"op"`
	RecordID   string    `json:"record_id"`
	PartnerID  string    `json:"partner_id"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher ships events to an external broker.
type Publisher interface {
	Publish(topic string, event any) error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher by doing nothing.
func (NopPublisher) Publish(string, any) error { return nil }
