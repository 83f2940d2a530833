package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"solana_sniper/internal/models"
	"solana_sniper/pkg/db"
)

func setupJournal(t *testing.T) *Journal {
	t.Helper()
	if testing.Short() {
		t.Skip("journal integration test needs docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("journal"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := db.Open(ctx, db.Config{DSN: dsn, MaxConns: 2})
	require.NoError(t, err)
	pg := db.NewPostgres(pool)
	t.Cleanup(pg.Close)

	j := New(pg, zap.NewNop())
	require.NoError(t, j.Migrate(ctx))
	require.NoError(t, j.Migrate(ctx))
	return j
}

func TestJournal_Lifecycle(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	opened := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	pos := models.Position{
		ID:          uuid.NewString(),
		Address:     "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr",
		Symbol:      "POPCAT",
		OpenedAt:    opened,
		QuoteAmount: 0.1,
		Quantity:    100_000,
		EntryPrice:  0.0004,
		Anchored:    true,
		Simulated:   true,
	}
	buy := models.Fill{Address: pos.Address, Side: models.SideBuy, InputAmount: 0.1, OutputAmount: 100_000,
		Price: 1e-6, Endpoint: "simulation", Simulated: true, At: opened}

	require.NoError(t, j.Send(ctx, models.Event{Kind: models.EventAcquisitionSucceeded, Position: pos, Fill: buy}))
	require.Error(t, j.RecordOpen(ctx, pos, buy), "second open row for the same address")

	open, err := j.OpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, pos.ID, open[0].ID)
	assert.Equal(t, "POPCAT", open[0].Symbol)
	assert.True(t, open[0].OpenedAt.Equal(opened))
	assert.Equal(t, 0.0004, open[0].HighWater)
	assert.True(t, open[0].Simulated)

	pos.ExitAttempts = 2
	pos.LastExitError = "all endpoints failed"
	require.NoError(t, j.Send(ctx, models.Event{Kind: models.EventExitFailed, Position: pos, Err: errors.New(pos.LastExitError)}))
	open, err = j.OpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 2, open[0].ExitAttempts)
	assert.Equal(t, "all endpoints failed", open[0].LastExitError)

	sell := models.Fill{Address: pos.Address, Side: models.SideSell, InputAmount: 75_000, OutputAmount: 0.1125,
		Endpoint: "simulation", Simulated: true, At: opened.Add(time.Hour)}
	exit := models.Event{Kind: models.EventExitTriggered, At: opened.Add(time.Hour), Position: pos, Fill: sell,
		Trigger: models.TriggerTakeProfit, PnL: 0.0375, PnLPct: 0.5, Residual: 25_000}
	require.NoError(t, j.Send(ctx, exit))
	require.Error(t, j.RecordExit(ctx, exit), "already closed")

	open, err = j.OpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	var fills int
	require.NoError(t, j.db.Querier().QueryRow(ctx, `SELECT count(*) FROM fills WHERE position_id = $1`, pos.ID).Scan(&fills))
	assert.Equal(t, 2, fills)

	var residual float64
	var trigger string
	require.NoError(t, j.db.Querier().QueryRow(ctx,
		`SELECT residual, exit_trigger FROM positions WHERE id = $1`, pos.ID).Scan(&residual, &trigger))
	assert.Equal(t, 25_000.0, residual)
	assert.Equal(t, string(models.TriggerTakeProfit), trigger)
}

func TestJournal_RejectsPositionWithoutID(t *testing.T) {
	j := New(nil, nil)
	err := j.RecordOpen(context.Background(), models.Position{Address: "mint"}, models.Fill{})
	require.Error(t, err)
}
