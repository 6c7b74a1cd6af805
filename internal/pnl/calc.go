// Package pnl computes per-position, per-account, and cross-account
// profit-and-loss views from the current ledger state.
package pnl

import (
	"math"

	"risk-monitorv1/internal/model"
)

// Unrealized returns the notional profit or loss of an open position.
// The signed size handles both directions: a long (size>0) profits when
// price rises, a short (size<0) profits when price falls.
func Unrealized(p model.Position) float64 {
	return (p.CurrentPrice - p.EntryPrice) * p.Size
}

// Value returns the absolute notional exposure of a position, always
// non-negative.
func Value(p model.Position) float64 {
	return math.Abs(p.Size) * p.CurrentPrice
}

func detail(p model.Position) model.PositionDetail {
	p.UnrealizedPnl = Unrealized(p)
	return model.PositionDetail{Position: p, PositionValue: Value(p)}
}
