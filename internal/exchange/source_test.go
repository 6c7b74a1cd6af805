package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCredentials(t *testing.T) {
	t.Parallel()

	creds, err := ParseCredentials("account-1:Trader 1:k1:s1, account-2:Trader 2:k2:s2")
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, Credential{AccountID: "account-1", Name: "Trader 1", APIKey: "k1", APISecret: "s1"}, creds[0])
	assert.Equal(t, "account-2", creds[1].AccountID)
	assert.Equal(t, "s2", creds[1].APISecret)
}

func TestParseCredentialsRejectsMalformed(t *testing.T) {
	t.Parallel()

	_, err := ParseCredentials("account-1:Trader 1:k1")
	assert.Error(t, err)

	_, err = ParseCredentials("")
	assert.Error(t, err)

	_, err = ParseCredentials(", ,")
	assert.Error(t, err)
}

func TestSimFixtures(t *testing.T) {
	t.Parallel()

	sim := NewSim(1)
	ctx := context.Background()

	balances, err := sim.FetchBalances(ctx)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "account-1", balances[0].AccountID)
	assert.Equal(t, 10000.0, balances[0].Balance)
	assert.Equal(t, -200.0, balances[1].RealizedPnl)

	positions, err := sim.FetchPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, 1.0, positions[0].Size)
	assert.Equal(t, -10.0, positions[1].Size)

	// Marks drift but stay near the fixture anchors.
	assert.InDelta(t, 62000, positions[0].CurrentPrice, 62000*0.01)
	assert.InDelta(t, 2800, positions[1].CurrentPrice, 2800*0.01)
}

func TestSimDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	a, b := NewSim(42), NewSim(42)
	pa, err := a.FetchPositions(context.Background())
	require.NoError(t, err)
	pb, err := b.FetchPositions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pa[0].CurrentPrice, pb[0].CurrentPrice)
	assert.Equal(t, pa[1].CurrentPrice, pb[1].CurrentPrice)
}
