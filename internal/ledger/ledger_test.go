package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"risk-monitorv1/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestUpsertAccountIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	b := model.BalanceSnapshot{AccountID: "acct-1", Name: "Trader 1", Balance: 10000, Collateral: 2000, RealizedPnl: 500}
	require.NoError(t, s.UpsertAccount(ctx, b, time.Now()))
	require.NoError(t, s.UpsertAccount(ctx, b, time.Now()))

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	a := accounts[0]
	assert.Equal(t, "acct-1", a.AccountID)
	assert.Equal(t, "Trader 1", a.Name)
	assert.Equal(t, 10000.0, a.Balance)
	assert.Equal(t, 2000.0, a.Collateral)
	assert.Equal(t, 500.0, a.RealizedPnl)
}

func TestUpsertAccountLeavesDerivedFields(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	b := model.BalanceSnapshot{AccountID: "acct-1", Balance: 100}
	require.NoError(t, s.UpsertAccount(ctx, b, time.Now()))
	require.NoError(t, s.UpdateAccountDerived(ctx, "acct-1", 42, 142, 42, time.Now()))

	// A later balance upsert must not wipe the derived fields.
	b.Balance = 200
	require.NoError(t, s.UpsertAccount(ctx, b, time.Now()))

	a, err := s.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, a.Balance)
	assert.Equal(t, 42.0, a.UnrealizedPnl)
	assert.Equal(t, 142.0, a.TotalAssets)
	assert.Equal(t, 42.0, a.TotalPnl)
}

func TestGetAccountNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.GetAccount(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateAccountDerivedNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	err := s.UpdateAccountDerived(context.Background(), "nonexistent", 0, 0, 0, time.Now())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpsertOpenPositionSinglePerPair(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	p := model.PositionSnapshot{AccountID: "acct-1", Symbol: "BTCUSDT", Size: 1, EntryPrice: 60000, CurrentPrice: 61000, Margin: 2000}
	require.NoError(t, s.UpsertOpenPosition(ctx, p, 1000, time.Now()))

	p.CurrentPrice = 62000
	require.NoError(t, s.UpsertOpenPosition(ctx, p, 2000, time.Now()))

	open, err := s.ListOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 62000.0, open[0].CurrentPrice)
	assert.Equal(t, 2000.0, open[0].UnrealizedPnl)
	assert.True(t, open[0].IsOpen)
}

func TestCloseOpenPositionsExcept(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	seed := []model.PositionSnapshot{
		{AccountID: "acct-1", Symbol: "BTCUSDT", Size: 1, EntryPrice: 100, CurrentPrice: 110},
		{AccountID: "acct-1", Symbol: "ETHUSDT", Size: 2, EntryPrice: 10, CurrentPrice: 11},
		{AccountID: "acct-2", Symbol: "BTCUSDT", Size: -1, EntryPrice: 100, CurrentPrice: 90},
	}
	for _, p := range seed {
		require.NoError(t, s.UpsertOpenPosition(ctx, p, 0, time.Now()))
	}

	// Only acct-1/BTCUSDT survives this cycle.
	current := map[model.PairKey]struct{}{
		{AccountID: "acct-1", Symbol: "BTCUSDT"}: {},
	}
	closed, err := s.CloseOpenPositionsExcept(ctx, current, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, closed)

	open, err := s.ListOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "acct-1", open[0].AccountID)
	assert.Equal(t, "BTCUSDT", open[0].Symbol)

	all, err := s.ListPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestClosedPairCanReopenAsNewRecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	p := model.PositionSnapshot{AccountID: "acct-1", Symbol: "BTCUSDT", Size: 1, EntryPrice: 100, CurrentPrice: 100}
	require.NoError(t, s.UpsertOpenPosition(ctx, p, 0, time.Now()))

	_, err := s.CloseOpenPositionsExcept(ctx, map[model.PairKey]struct{}{}, time.Now())
	require.NoError(t, err)

	// Symbol reappears: a fresh open record, not a reopened old one.
	p.EntryPrice = 120
	require.NoError(t, s.UpsertOpenPosition(ctx, p, 0, time.Now()))

	all, err := s.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	open, err := s.ListOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 120.0, open[0].EntryPrice)
}

func TestPnlSnapshotsAppendOnly(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		snap := model.PnlSnapshot{
			AccountID:     "acct-1",
			Timestamp:     base.Add(time.Duration(i) * time.Second),
			RealizedPnl:   float64(i),
			UnrealizedPnl: float64(i * 10),
			TotalAssets:   float64(1000 + i),
		}
		require.NoError(t, s.AppendPnlSnapshot(ctx, snap))
	}

	snaps, err := s.ListPnlSnapshots(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	for i, snap := range snaps {
		assert.Equal(t, base.Add(time.Duration(i)*time.Second).UnixNano(), snap.Timestamp.UnixNano())
		assert.Equal(t, float64(i), snap.RealizedPnl)
	}

	other, err := s.ListPnlSnapshots(ctx, "acct-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
