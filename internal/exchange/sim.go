package exchange

import (
	"context"
	"math/rand"
	"sync"

	"risk-monitorv1/internal/model"
)

// Sim is a deterministic in-process snapshot source for staging mode.
// It serves two fixture accounts and random-walks their mark prices a little
// on every position fetch so downstream views keep moving without venue
// credentials.
type Sim struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewSim creates a Sim source seeded for reproducible runs.
func NewSim(seed int64) *Sim {
	return &Sim{
		rng: rand.New(rand.NewSource(seed)),
		prices: map[string]float64{
			"BTCUSDT": 62000,
			"ETHUSDT": 2800,
		},
	}
}

// FetchBalances returns the staging fixture accounts.
func (s *Sim) FetchBalances(_ context.Context) ([]model.BalanceSnapshot, error) {
	return []model.BalanceSnapshot{
		{AccountID: "account-1", Name: "Trader 1", Balance: 10000, Collateral: 2000, RealizedPnl: 500},
		{AccountID: "account-2", Name: "Trader 2", Balance: 5000, Collateral: 1000, RealizedPnl: -200},
	}, nil
}

// FetchPositions returns the staging fixture positions with drifting marks.
func (s *Sim) FetchPositions(_ context.Context) ([]model.PositionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for symbol, price := range s.prices {
		// ±0.1% walk per poll
		s.prices[symbol] = price * (1 + (s.rng.Float64()-0.5)*0.002)
	}

	return []model.PositionSnapshot{
		{AccountID: "account-1", Symbol: "BTCUSDT", Size: 1.0, EntryPrice: 60000, CurrentPrice: s.prices["BTCUSDT"], Margin: 2000},
		{AccountID: "account-2", Symbol: "ETHUSDT", Size: -10, EntryPrice: 3000, CurrentPrice: s.prices["ETHUSDT"], Margin: 1000},
	}, nil
}
