package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/infrastructure/persistence/memory"
)

func newSession(t *testing.T, orderRef string) *domain.ThreeDSecureSession {
	t.Helper()
	money, err := domain.NewMoney(15050, domain.CurrencyTL)
	require.NoError(t, err)
	s, err := domain.NewThreeDSecureSession(orderRef, money, "00", domain.TranTypeSale, time.Now())
	require.NoError(t, err)
	return s
}

func TestSessionStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore(time.Minute, time.Minute)

	session := newSession(t, "ORD001")
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "ORD001")
	require.NoError(t, err)
	assert.Equal(t, session, got)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "ORD001"))
	_, err = store.Get(ctx, "ORD001")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStore_StoresCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore(time.Minute, time.Minute)

	session := newSession(t, "ORD001")
	require.NoError(t, store.Save(ctx, session))
	require.NoError(t, session.MarkAwaitingRedirect(time.Now()))

	got, err := store.Get(ctx, "ORD001")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseInitiated, got.Phase)
}

func TestSessionStore_ExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore(20*time.Millisecond, time.Hour)

	require.NoError(t, store.Save(ctx, newSession(t, "ORD001")))
	time.Sleep(40 * time.Millisecond)

	_, err := store.Get(ctx, "ORD001")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
