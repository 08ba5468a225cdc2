package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/gateway"
)

func newTestIdempotencyStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewIdempotencyStore(client, time.Hour, testLogger()), mr
}

func TestIdempotencyStore_LookupAndRecord(t *testing.T) {
	store, _ := newTestIdempotencyStore(t)
	ctx := context.Background()

	// Unseen key looks up empty without error.
	got, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Record(ctx, "key-1", "payment-1"))

	got, err = store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "payment-1", got)
}

func TestIdempotencyStore_FirstWriterWins(t *testing.T) {
	store, _ := newTestIdempotencyStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "key-1", "payment-1"))
	require.NoError(t, store.Record(ctx, "key-1", "payment-2"))

	got, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "payment-1", got)
}

func TestIdempotencyStore_KeyExpires(t *testing.T) {
	store, mr := newTestIdempotencyStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "key-1", "payment-1"))

	mr.FastForward(2 * time.Hour)

	got, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOrchestrator_IdempotentReplay(t *testing.T) {
	store, _ := newTestIdempotencyStore(t)
	payments := newFakePaymentStore()

	gatewayCalls := 0
	gw := &fakeGateway{
		generateLink: func(context.Context, gateway.LinkRequest) (*gateway.LinkResponse, error) {
			gatewayCalls++
			return &gateway.LinkResponse{Link: "https://pay.example.com/x", TransID: "trans-1"}, nil
		},
	}

	o := NewOrchestrator(payments, &fakeContractReader{contract: testContract()}, gw, store, testLogger())

	req := linkFundRequest()
	req.IdempotencyKey = "client-key-9"

	first, err := o.FundWithLink(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Replay)

	second, err := o.FundWithLink(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replay)
	assert.Equal(t, first.Payment.PaymentID, second.Payment.PaymentID)
	assert.Equal(t, first.TransID, second.TransID)

	// The gateway was only charged once and only one payment row exists.
	assert.Equal(t, 1, gatewayCalls)
	assert.Equal(t, 1, payments.count())
	assert.Equal(t, domain.PaymentStatusPending, payments.get(first.Payment.PaymentID).Status)
}

func TestOrchestrator_DifferentKeysAreIndependent(t *testing.T) {
	store, _ := newTestIdempotencyStore(t)
	payments := newFakePaymentStore()

	counter := 0
	gw := &fakeGateway{
		generateLink: func(context.Context, gateway.LinkRequest) (*gateway.LinkResponse, error) {
			counter++
			return &gateway.LinkResponse{Link: "https://pay.example.com/x", TransID: "trans-1"}, nil
		},
	}

	o := NewOrchestrator(payments, &fakeContractReader{contract: testContract()}, gw, store, testLogger())

	reqA := linkFundRequest()
	reqA.IdempotencyKey = "key-a"
	reqB := linkFundRequest()
	reqB.IdempotencyKey = "key-b"

	_, err := o.FundWithLink(context.Background(), reqA)
	require.NoError(t, err)
	_, err = o.FundWithLink(context.Background(), reqB)
	require.NoError(t, err)

	assert.Equal(t, 2, counter)
	assert.Equal(t, 2, payments.count())
}
