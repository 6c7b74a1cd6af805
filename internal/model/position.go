package model

import "time"

// Position is the durable record for one account+symbol exposure.
// Size is signed: positive = long, negative = short.
//
// At most one open position exists per (account, symbol) pair at any time.
// A closed position is retained for history and never reopened in place;
// if the symbol reappears on the venue, a fresh open record is created.
type Position struct {
	ID            int64     `json:"id"`
	AccountID     string    `json:"accountId"`
	Symbol        string    `json:"symbol"`
	Size          float64   `json:"size"`
	EntryPrice    float64   `json:"entryPrice"`
	CurrentPrice  float64   `json:"currentPrice"`
	Margin        float64   `json:"margin"`
	UnrealizedPnl float64   `json:"unrealizedPnl"`
	IsOpen        bool      `json:"isOpen"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PairKey identifies an account+symbol exposure as a genuine composite key.
// Never build this as a concatenated string: account IDs and symbols are
// venue-controlled and could contain any separator character.
type PairKey struct {
	AccountID string
	Symbol    string
}

// Key returns the composite account+symbol key for this position.
func (p *Position) Key() PairKey {
	return PairKey{AccountID: p.AccountID, Symbol: p.Symbol}
}
