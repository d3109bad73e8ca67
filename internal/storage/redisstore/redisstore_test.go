package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kitchen-storefront/internal/gateway"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client)
}

func recvSnapshot(t *testing.T, sub gateway.Subscription) gateway.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "snapshot channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return gateway.Snapshot{}
	}
}

func TestWriteThenGetViaList(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "users/u1/history/a", []byte("1")))
	require.NoError(t, s.Write(ctx, "users/u1/history/b", []byte("2")))
	require.NoError(t, s.Write(ctx, "users/u2/history/c", []byte("3")))

	docs, err := s.List(ctx, "users/u1/history/")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("1"), []byte("2")}, docs)
}

func TestList_EmptyPrefix(t *testing.T) {
	s := setupStore(t)

	docs, err := s.List(context.Background(), "users/nobody/history/")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSubscribe_InitialSnapshotAbsent(t *testing.T) {
	s := setupStore(t)

	sub, err := s.Subscribe(context.Background(), "users/u1/cart/current")
	require.NoError(t, err)
	defer sub.Close()

	snap := recvSnapshot(t, sub)
	assert.False(t, snap.Exists)
}

func TestSubscribe_InitialSnapshotPresent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "k", []byte(`{"items":[]}`)))

	sub, err := s.Subscribe(ctx, "k")
	require.NoError(t, err)
	defer sub.Close()

	snap := recvSnapshot(t, sub)
	assert.True(t, snap.Exists)
	assert.Equal(t, []byte(`{"items":[]}`), snap.Data)
}

func TestSubscribe_DeliversWrites(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "k")
	require.NoError(t, err)
	defer sub.Close()
	recvSnapshot(t, sub) // initial absent

	require.NoError(t, s.Write(ctx, "k", []byte("v1")))
	require.NoError(t, s.Write(ctx, "k", []byte("v2")))

	assert.Equal(t, []byte("v1"), recvSnapshot(t, sub).Data)
	assert.Equal(t, []byte("v2"), recvSnapshot(t, sub).Data)
}

func TestDelete_DeliversAbsent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "k", []byte("v")))

	sub, err := s.Subscribe(ctx, "k")
	require.NoError(t, err)
	defer sub.Close()
	recvSnapshot(t, sub)

	require.NoError(t, s.Delete(ctx, "k"))
	snap := recvSnapshot(t, sub)
	assert.False(t, snap.Exists)
}

func TestClose_ClosesChannel(t *testing.T) {
	s := setupStore(t)

	sub, err := s.Subscribe(context.Background(), "k")
	require.NoError(t, err)
	recvSnapshot(t, sub)

	sub.Close()

	select {
	case _, ok := <-sub.Snapshots():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after Close")
	}
	assert.NoError(t, sub.Err())
}
