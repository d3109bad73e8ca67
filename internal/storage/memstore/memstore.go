// Package memstore provides an in-process implementation of the gateway
// document store. It backs unit tests and the dev mode of the storefront;
// writes fan out synchronously to subscribers in commit order.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/kitchen-storefront/internal/gateway"
)

// snapshotBuffer bounds how many undelivered snapshots a subscriber may lag
// behind before writes start failing. Generous for test workloads.
const snapshotBuffer = 64

var _ gateway.Store = (*Store)(nil)

// Store is an in-memory gateway.Store.
type Store struct {
	mu        sync.Mutex
	docs      map[string][]byte
	subs      map[string][]*subscription
	passWrite int
	failWrite int
	writeErr  error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		docs: make(map[string][]byte),
		subs: make(map[string][]*subscription),
	}
}

// FailWrites makes the next n Write calls return err. Used by tests to
// exercise retry and failure paths.
func (s *Store) FailWrites(n int, err error) {
	s.FailWritesAfter(0, n, err)
}

// FailWritesAfter lets the next skip writes through, then fails the n calls
// after that.
func (s *Store) FailWritesAfter(skip, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passWrite = skip
	s.failWrite = n
	s.writeErr = err
}

// Write stores the document and delivers it to every subscriber of key.
func (s *Store) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.passWrite > 0:
		s.passWrite--
	case s.failWrite > 0:
		s.failWrite--
		return s.writeErr
	}

	doc := make([]byte, len(data))
	copy(doc, data)
	s.docs[key] = doc

	for _, sub := range s.subs[key] {
		if err := sub.deliver(gateway.Snapshot{Exists: true, Data: doc}); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the document at key and notifies subscribers with an absent
// snapshot.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, key)
	for _, sub := range s.subs[key] {
		if err := sub.deliver(gateway.Snapshot{}); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a snapshot stream for key, delivering the current
// state first.
func (s *Store) Subscribe(_ context.Context, key string) (gateway.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &subscription{
		store: s,
		key:   key,
		ch:    make(chan gateway.Snapshot, snapshotBuffer),
	}
	s.subs[key] = append(s.subs[key], sub)

	if doc, ok := s.docs[key]; ok {
		sub.ch <- gateway.Snapshot{Exists: true, Data: doc}
	} else {
		sub.ch <- gateway.Snapshot{}
	}
	return sub, nil
}

// List returns all documents whose key starts with prefix, in key order.
func (s *Store) List(_ context.Context, prefix string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = s.docs[k]
	}
	return out, nil
}

type subscription struct {
	store  *Store
	key    string
	ch     chan gateway.Snapshot
	closed bool
	err    error
}

func (s *subscription) Snapshots() <-chan gateway.Snapshot { return s.ch }

func (s *subscription) Err() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.err
}

// deliver is called with the store lock held.
func (s *subscription) deliver(snap gateway.Snapshot) error {
	if s.closed {
		return nil
	}
	select {
	case s.ch <- snap:
		return nil
	default:
		return errors.Errorf("subscriber for %s lagging beyond %d snapshots", s.key, snapshotBuffer)
	}
}

func (s *subscription) Close() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)

	subs := s.store.subs[s.key]
	for i, sub := range subs {
		if sub == s {
			s.store.subs[s.key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}
