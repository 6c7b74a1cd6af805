// Package model defines the domain types shared across the risk monitor:
// durable ledger records (Account, Position, PnlSnapshot), the incoming
// venue snapshot shapes, and the computed view structures served to the UI.
package model

import (
	"encoding/json"
	"time"
)

// Account is the durable record for one venue sub-account.
//
// Balance, Collateral and RealizedPnl are venue-reported and overwritten on
// every reconcile cycle. UnrealizedPnl, TotalAssets and TotalPnl are derived
// from the account's open positions at last PnL computation time, cached for
// display, never authoritative.
type Account struct {
	AccountID     string    `json:"accountId"`
	Name          string    `json:"name"`
	Balance       float64   `json:"balance"`
	Collateral    float64   `json:"collateral"`
	RealizedPnl   float64   `json:"realizedPnl"`
	UnrealizedPnl float64   `json:"unrealizedPnl"`
	TotalAssets   float64   `json:"totalAssets"`
	TotalPnl      float64   `json:"totalPnl"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// JSON returns the JSON-encoded account (ignoring errors for publish paths).
func (a *Account) JSON() []byte {
	b, _ := json.Marshal(a)
	return b
}

// PnlSnapshot is one immutable row of the append-only PnL history for an
// account. Rows are created by the PnL calculator and never mutated.
type PnlSnapshot struct {
	AccountID     string    `json:"accountId"`
	Timestamp     time.Time `json:"timestamp"`
	RealizedPnl   float64   `json:"realizedPnl"`
	UnrealizedPnl float64   `json:"unrealizedPnl"`
	TotalAssets   float64   `json:"totalAssets"`
}

// JSON returns the JSON-encoded snapshot (ignoring errors for publish paths).
func (s *PnlSnapshot) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
