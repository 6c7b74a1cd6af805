package model

// BalanceSnapshot is one account's balance entry from a single poll cycle,
// already parsed and validated at the snapshot source boundary.
type BalanceSnapshot struct {
	AccountID   string  `json:"accountId"`
	Name        string  `json:"name"`
	Balance     float64 `json:"balance"`
	Collateral  float64 `json:"collateral"`
	RealizedPnl float64 `json:"realizedPnl"`
}

// PositionSnapshot is one open position entry from a single poll cycle.
// A pair absent from the cycle's full position list means the venue has
// closed that position since the last poll.
type PositionSnapshot struct {
	AccountID    string  `json:"accountId"`
	Symbol       string  `json:"symbol"`
	Size         float64 `json:"size"`
	EntryPrice   float64 `json:"entryPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	Margin       float64 `json:"margin"`
}

// Key returns the composite account+symbol key for this snapshot entry.
func (p *PositionSnapshot) Key() PairKey {
	return PairKey{AccountID: p.AccountID, Symbol: p.Symbol}
}

// SyncResult reports what one reconcile cycle touched.
type SyncResult struct {
	AccountsSynced  int `json:"accountsSynced"`
	PositionsSynced int `json:"positionsSynced"`
	PositionsClosed int `json:"positionsClosed"`
}
