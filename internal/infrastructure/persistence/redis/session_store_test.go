package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	sessionredis "github.com/DanielPopoola/posnet-gateway/internal/infrastructure/persistence/redis"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return host + ":" + port.Port()
}

func TestSessionStore(t *testing.T) {
	addr := setupRedis(t)
	ctx := context.Background()

	client, err := sessionredis.Connect(ctx, addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	store := sessionredis.NewSessionStore(client, time.Minute)

	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	money, err := domain.NewMoney(15050, domain.CurrencyTL)
	require.NoError(t, err)
	session, err := domain.NewThreeDSecureSession("ORD001", money, "00", domain.TranTypeSale, now)
	require.NoError(t, err)
	require.NoError(t, session.MarkAwaitingRedirect(now))
	require.NoError(t, session.MarkCallbackReceived("bank-data", now.Add(time.Minute)))

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, session))

		got, err := store.Get(ctx, "ORD001")
		require.NoError(t, err)
		assert.Equal(t, session.Phase, got.Phase)
		assert.Equal(t, session.Amount, got.Amount)
		assert.Equal(t, session.Currency, got.Currency)
		assert.Equal(t, "bank-data", got.BankData)
		assert.True(t, session.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("key carries ttl", func(t *testing.T) {
		ttl, err := client.TTL(ctx, "posnet:3ds:session:ORD001").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "ORD001"))
		_, err := store.Get(ctx, "ORD001")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}
