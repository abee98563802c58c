package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/orbitflow/orbitflow/internal/config"
	"github.com/orbitflow/orbitflow/internal/events"
	"github.com/orbitflow/orbitflow/internal/trigger"
	"github.com/orbitflow/orbitflow/internal/workflow"
)

// newTestPool starts a disposable Postgres container, runs the embedded
// migrations against it, and returns a connected Pool — mirrors the
// teacher's newTestClient helper, adapted from an Ent schema-create to this
// repo's golang-migrate-based runMigrations.
func newTestPool(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("orbitflow_test"),
		postgres.WithUsername("orbitflow"),
		postgres.WithPassword("orbitflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(pgContainer)
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := Connect(ctx, config.DatabaseConfig{DSN: connStr, MaxConns: 5})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestPool_Health(t *testing.T) {
	pool := newTestPool(t)

	health, err := pool.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxConns, int32(0))
}

func TestTriggerStore_SaveGetListDelete(t *testing.T) {
	pool := newTestPool(t)
	store := NewTriggerStore(pool)

	reg := &trigger.Registration{
		TriggerID:   uuid.New(),
		FlowID:      uuid.New(),
		UserID:      "user-1",
		TriggerType: trigger.TypeCron,
		Args:        map[string]any{"schedule": "*/5 * * * *"},
		State:       trigger.StateArmed,
		Detail:      map[string]any{"next_run": "soon"},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.Save(reg))

	got, err := store.Get(reg.TriggerID)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, got.UserID)
	assert.Equal(t, "*/5 * * * *", got.Args["schedule"])
	assert.Equal(t, trigger.StateArmed, got.State)

	armed, err := store.ListByState(trigger.StateArmed)
	require.NoError(t, err)
	assert.Len(t, armed, 1)

	reg.State = trigger.StateDisarmed
	require.NoError(t, store.Save(reg))
	armed, err = store.ListByState(trigger.StateArmed)
	require.NoError(t, err)
	assert.Len(t, armed, 0)

	require.NoError(t, store.Delete(reg.TriggerID))
	_, err = store.Get(reg.TriggerID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFlowStore_SaveLoad(t *testing.T) {
	pool := newTestPool(t)
	store := NewFlowStore(pool)

	flow := &workflow.Flow{
		FlowID:   uuid.New(),
		OwnerID:  "user-1",
		IsActive: true,
		Steps: []workflow.Step{
			{Node: "http", Action: "get", Params: map[string]any{"url": "https://example.com"}, OutputKey: "page"},
			{Node: "slack", Action: "post", Params: map[string]any{"channel": "#alerts"}, OnError: "continue"},
		},
	}
	require.NoError(t, store.Save(flow))

	got, err := store.Load(flow.FlowID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "http", got.Steps[0].Node)
	assert.Equal(t, "page", got.Steps[0].OutputKey)
	assert.Equal(t, "continue", got.Steps[1].OnError)

	_, err = store.Load(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventStore_PublisherRoundTrip(t *testing.T) {
	pool := newTestPool(t)
	eventStore := NewEventStore(pool)
	publisher := events.NewPublisher(pool.Pool)

	flowID := uuid.New().String()
	require.NoError(t, publisher.PublishExecutionStarted(context.Background(), events.ExecutionStartedPayload{
		Type:        events.EventTypeExecutionStarted,
		FlowID:      flowID,
		ExecutionID: "exec-1",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}))

	got, err := eventStore.GetCatchupEvents(context.Background(), events.FlowChannel(flowID), 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, events.EventTypeExecutionStarted, got[0].Payload["type"])
}
