// Package gateway defines the persistence contract the ordering core depends
// on: a realtime document store addressed by string keys, delivering full
// authoritative snapshots over a subscription and accepting whole-document
// writes. Concrete stores live under internal/storage.
package gateway

import (
	"context"
	"fmt"
)

// Snapshot is a full-state read of one document. Exists is false when the
// document is absent, in which case Data is nil. A consumer must treat every
// snapshot as the complete authoritative state (replace, never merge):
// delivery is at-least-once, so duplicates are possible.
type Snapshot struct {
	Exists bool
	Data   []byte
}

// Subscription is a long-lived ordered stream of snapshots for one key.
type Subscription interface {
	// Snapshots returns the delivery channel. It is closed after Close or
	// when the underlying stream fails; check Err afterwards.
	Snapshots() <-chan Snapshot
	// Err reports the stream failure, if any, after Snapshots is closed.
	Err() error
	// Close cancels the subscription and releases its resources.
	Close()
}

// Store is the document-store contract. Implementations must deliver
// snapshots for a given key in the store's commit order.
type Store interface {
	// Subscribe opens a snapshot stream for key. The current state is
	// delivered as the first snapshot (Absent when the key does not exist).
	Subscribe(ctx context.Context, key string) (Subscription, error)
	// Write replaces the document at key. Writes are idempotent: the payload
	// is the full document state.
	Write(ctx context.Context, key string, data []byte) error
	// List returns the documents under a key prefix, in key order.
	List(ctx context.Context, prefix string) ([][]byte, error)
}

// CartKey is the document key of a user's current cart.
func CartKey(userID string) string {
	return fmt.Sprintf("users/%s/cart/current", userID)
}

// OrderKey is the document key of one finalized order.
func OrderKey(userID, orderID string) string {
	return fmt.Sprintf("users/%s/history/%s", userID, orderID)
}

// HistoryPrefix is the key prefix covering a user's order history.
func HistoryPrefix(userID string) string {
	return fmt.Sprintf("users/%s/history/", userID)
}
