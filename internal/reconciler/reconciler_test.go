package reconciler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"risk-monitorv1/internal/ledger"
	"risk-monitorv1/internal/model"
)

func newTestStore(t *testing.T) *ledger.Store {
	t.Helper()

	s, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func fixtureSnapshot() ([]model.BalanceSnapshot, []model.PositionSnapshot) {
	balances := []model.BalanceSnapshot{
		{AccountID: "account-1", Name: "Trader 1", Balance: 10000, Collateral: 2000, RealizedPnl: 500},
		{AccountID: "account-2", Name: "Trader 2", Balance: 5000, Collateral: 1000, RealizedPnl: -200},
	}
	positions := []model.PositionSnapshot{
		{AccountID: "account-1", Symbol: "BTCUSDT", Size: 1.0, EntryPrice: 60000, CurrentPrice: 62000, Margin: 2000},
		{AccountID: "account-2", Symbol: "ETHUSDT", Size: -10, EntryPrice: 3000, CurrentPrice: 2800, Margin: 1000},
	}
	return balances, positions
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()
	balances, positions := fixtureSnapshot()

	res, err := r.Reconcile(ctx, balances, positions)
	require.NoError(t, err)
	assert.Equal(t, 2, res.AccountsSynced)
	assert.Equal(t, 2, res.PositionsSynced)
	assert.Equal(t, 0, res.PositionsClosed)

	// Same snapshot again: same stored state, no new rows, nothing closed.
	res, err = r.Reconcile(ctx, balances, positions)
	require.NoError(t, err)
	assert.Equal(t, 0, res.PositionsClosed)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	all, err := s.ListPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, p := range all {
		assert.True(t, p.IsOpen)
	}
}

func TestReconcileClosesDisappearedPosition(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()
	balances, positions := fixtureSnapshot()

	var closedNotified int
	r.OnPositionsClosed = func(n int) { closedNotified += n }

	_, err := r.Reconcile(ctx, balances, positions)
	require.NoError(t, err)

	// account-2 closed its ETHUSDT short between polls.
	res, err := r.Reconcile(ctx, balances, positions[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, res.PositionsClosed)
	assert.Equal(t, 1, closedNotified)

	open, err := s.ListOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "account-1", open[0].AccountID)
	assert.Equal(t, "BTCUSDT", open[0].Symbol)

	// The closed record is retained, flagged closed exactly once.
	all, err := s.ListPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	res, err = r.Reconcile(ctx, balances, positions[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, res.PositionsClosed)
}

func TestReconcileClosesAllPositionsOfEmptyAccount(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()
	balances, positions := fixtureSnapshot()

	_, err := r.Reconcile(ctx, balances, positions)
	require.NoError(t, err)

	// account-2 reports no positions at all this cycle; its ETHUSDT entry
	// must still be closed even though nothing in the incoming list names
	// that account.
	res, err := r.Reconcile(ctx, balances, positions[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, res.PositionsClosed)

	byAccount, err := s.ListOpenPositionsByAccount(ctx, "account-2")
	require.NoError(t, err)
	assert.Empty(t, byAccount)
}

func TestReconcileReopenedPairIsNewRecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()
	balances, positions := fixtureSnapshot()

	_, err := r.Reconcile(ctx, balances, positions)
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, balances, nil)
	require.NoError(t, err)

	// Both pairs come back at new entry prices: fresh open records.
	positions[0].EntryPrice = 61000
	positions[1].EntryPrice = 2900
	_, err = r.Reconcile(ctx, balances, positions)
	require.NoError(t, err)

	all, err := s.ListPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	open, err := s.ListOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, p := range open {
		switch p.Symbol {
		case "BTCUSDT":
			assert.Equal(t, 61000.0, p.EntryPrice)
		case "ETHUSDT":
			assert.Equal(t, 2900.0, p.EntryPrice)
		default:
			t.Fatalf("unexpected symbol %q", p.Symbol)
		}
	}
}

func TestReconcileStoresProvisionalUnrealized(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := New(s)
	ctx := context.Background()
	balances, positions := fixtureSnapshot()

	_, err := r.Reconcile(ctx, balances, positions)
	require.NoError(t, err)

	open, err := s.ListOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, p := range open {
		switch p.Symbol {
		case "BTCUSDT":
			assert.Equal(t, 2000.0, p.UnrealizedPnl) // (62000-60000)*1.0
		case "ETHUSDT":
			assert.Equal(t, 2000.0, p.UnrealizedPnl) // (2800-3000)*-10
		}
	}
}
