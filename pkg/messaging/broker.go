package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channel carrying cache-invalidation events after record mutations.
const InvalidationChannel = "records.invalidated"

// InvalidationEvent tells other instances to drop cached snapshots
// for the named collection.
type InvalidationEvent struct {
	Collection string `json:"collection"`
	RecordID   string `json:"record_id,omitempty"`
	Operation  string `json:"operation"`
}
