package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Names []string `json:"names"`
	Count int      `json:"count"`
}

func TestPutGetJSON(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	stamp := time.Date(2026, time.September, 1, 10, 30, 0, 0, time.UTC)

	err := PutJSON(ctx, store, KeyRooms, snapshot{Names: []string{"Nha Trang", "Da Lat"}, Count: 2}, stamp)
	require.NoError(t, err)

	var got snapshot
	updatedAt, ok, err := GetJSON(ctx, store, KeyRooms, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, stamp.Equal(updatedAt))
	require.Equal(t, []string{"Nha Trang", "Da Lat"}, got.Names)
	require.Equal(t, 2, got.Count)
}

func TestGetJSONMiss(t *testing.T) {
	store := NewMemoryStore()

	var got snapshot
	_, ok, err := GetJSON(context.Background(), store, "absent", &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetJSONDropsCorruptEntry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyRooms, []byte("{not json")))

	var got snapshot
	_, ok, err := GetJSON(ctx, store, KeyRooms, &got)
	require.NoError(t, err)
	require.False(t, ok)

	_, present, err := store.Get(ctx, KeyRooms)
	require.NoError(t, err)
	require.False(t, present)
}

func TestGetJSONDropsMismatchedPayload(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyRooms, []byte(`{"updated_at":"2026-09-01T10:00:00Z","data":"oops"}`)))

	var got snapshot
	_, ok, err := GetJSON(ctx, store, KeyRooms, &got)
	require.NoError(t, err)
	require.False(t, ok)

	_, present, err := store.Get(ctx, KeyRooms)
	require.NoError(t, err)
	require.False(t, present)
}

func TestMonthScopedKeys(t *testing.T) {
	require.Equal(t, "bookings:2026-09", BookingsKey(2026, time.September))
	require.Equal(t, "bookings:2027-01", BookingsKey(2027, time.January))
}

func TestMemoryStoreCopiesOnSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	payload := []byte("original")
	require.NoError(t, store.Set(ctx, "k", payload))
	payload[0] = 'X'

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("original"), got)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
