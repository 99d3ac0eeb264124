package docflow

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisFlowStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFlowStore(client, time.Hour), mr
}

func TestRedisFlowStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	flow := &Flow{
		ID:      "f1",
		OwnerID: 7,
		State:   StateSupplierPaymentDetails,
		Draft: Draft{
			DocumentType: DocumentTypeDeliveryNote,
			SupplierName: "Acme Corp",
			LineItems:    []LineItem{NewLineItem("Widget", 3, 10)},
		},
		AwaitingSupplierInput: true,
		CreatedAt:             time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, flow))

	got, err := store.Get(ctx, 7, "f1")
	require.NoError(t, err)
	require.Equal(t, flow.State, got.State)
	require.Equal(t, flow.Draft.SupplierName, got.Draft.SupplierName)
	require.Len(t, got.Draft.LineItems, 1)
	require.Equal(t, flow.Draft.LineItems[0].LocalID, got.Draft.LineItems[0].LocalID)
	require.True(t, got.AwaitingSupplierInput)
}

func TestRedisFlowStoreScopesByOwner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Flow{ID: "f1", OwnerID: 7, State: StateReadyToSave}))

	_, err := store.Get(ctx, 8, "f1")
	require.ErrorIs(t, err, ErrFlowNotFound)
}

func TestRedisFlowStoreMissingFlow(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Get(context.Background(), 7, "unknown")
	require.ErrorIs(t, err, ErrFlowNotFound)
}

func TestRedisFlowStoreDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Flow{ID: "f1", OwnerID: 7, State: StateReadyToSave}))
	require.NoError(t, store.Delete(ctx, 7, "f1"))

	_, err := store.Get(ctx, 7, "f1")
	require.ErrorIs(t, err, ErrFlowNotFound)
}

func TestRedisFlowStoreExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Flow{ID: "f1", OwnerID: 7, State: StateReadyToSave}))
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, 7, "f1")
	require.ErrorIs(t, err, ErrFlowNotFound)
}
