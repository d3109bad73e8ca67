// Package redisstore implements the gateway document store on Redis: plain
// GET/SET for the durable documents and pub/sub for realtime snapshot
// fan-out. Pub/sub messages on one connection arrive in publish order, which
// gives the per-key commit-order delivery the core requires.
package redisstore

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/kitchen-storefront/internal/gateway"
)

// changePrefix namespaces the pub/sub channels away from the document keys.
const changePrefix = "changes:"

// snapshotBuffer bounds undelivered snapshots per subscriber.
const snapshotBuffer = 64

var _ gateway.Store = (*Store)(nil)

// Store is a Redis-backed gateway.Store.
type Store struct {
	client *redis.Client
}

// New returns a store using the given client. The caller owns the client's
// lifecycle.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Write replaces the document at key and publishes it to subscribers.
// Documents are durable: no TTL is set.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	if err := s.client.Publish(ctx, changePrefix+key, data).Err(); err != nil {
		return errors.Wrapf(err, "publish %s", key)
	}
	return nil
}

// Delete removes the document at key and publishes an absent marker (an
// empty payload; documents themselves are never empty).
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "del %s", key)
	}
	if err := s.client.Publish(ctx, changePrefix+key, "").Err(); err != nil {
		return errors.Wrapf(err, "publish %s", key)
	}
	return nil
}

// Subscribe opens a pub/sub stream for key. The subscription is confirmed
// before the initial GET, so a write landing in between is observed either
// as the initial snapshot or as a duplicate delivery, never lost.
func (s *Store) Subscribe(ctx context.Context, key string) (gateway.Subscription, error) {
	ps := s.client.Subscribe(ctx, changePrefix+key)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrapf(err, "subscribe %s", key)
	}

	sub := &subscription{
		ps: ps,
		ch: make(chan gateway.Snapshot, snapshotBuffer),
	}

	initial, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		sub.ch <- gateway.Snapshot{Exists: true, Data: initial}
	case errors.Is(err, redis.Nil):
		sub.ch <- gateway.Snapshot{}
	default:
		_ = ps.Close()
		return nil, errors.Wrapf(err, "get %s", key)
	}

	go sub.pump()
	return sub, nil
}

// List returns the documents under prefix in key order. Keys vanishing
// between SCAN and GET are skipped.
func (s *Store) List(ctx context.Context, prefix string) ([][]byte, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan %s", prefix)
	}
	slices.Sort(keys)

	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		data, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "get %s", k)
		}
		out = append(out, data)
	}
	return out, nil
}

type subscription struct {
	ps *redis.PubSub
	ch chan gateway.Snapshot

	mu     sync.Mutex
	closed bool
	err    error
}

func (s *subscription) Snapshots() <-chan gateway.Snapshot { return s.ch }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	_ = s.ps.Close()
}

// pump forwards published payloads as snapshots until the pub/sub channel
// closes. A slow consumer that falls behind the buffer drops the stream
// rather than blocking the pump.
func (s *subscription) pump() {
	defer close(s.ch)
	for msg := range s.ps.Channel() {
		snap := gateway.Snapshot{}
		if msg.Payload != "" {
			snap = gateway.Snapshot{Exists: true, Data: []byte(msg.Payload)}
		}
		select {
		case s.ch <- snap:
		default:
			s.mu.Lock()
			if !s.closed {
				s.err = errors.New("subscriber lagging, snapshot stream aborted")
			}
			s.mu.Unlock()
			_ = s.ps.Close()
			return
		}
	}
}
