package model

import "encoding/json"

// PositionDetail is an open position enriched with computed fields for display.
type PositionDetail struct {
	Position
	PositionValue float64 `json:"positionValue"`
}

// AccountView is the per-account computed view returned by the PnL calculator.
type AccountView struct {
	AccountID              string             `json:"accountId"`
	Name                   string             `json:"name"`
	Balance                float64            `json:"balance"`
	Collateral             float64            `json:"collateral"`
	RealizedPnl            float64            `json:"realizedPnl"`
	UnrealizedPnl          float64            `json:"unrealizedPnl"`
	TotalPnl               float64            `json:"totalPnl"`
	TotalAssets            float64            `json:"totalAssets"`
	PositionsValue         float64            `json:"positionsValue"`
	OpenPositions          []PositionDetail   `json:"openPositions"`
	CumulativePositionSize map[string]float64 `json:"cumulativePositionSize"`
}

// AccountSummary is one account's row in the cumulative view.
type AccountSummary struct {
	AccountID      string  `json:"accountId"`
	Name           string  `json:"name"`
	Balance        float64 `json:"balance"`
	Collateral     float64 `json:"collateral"`
	RealizedPnl    float64 `json:"realizedPnl"`
	UnrealizedPnl  float64 `json:"unrealizedPnl"`
	TotalPnl       float64 `json:"totalPnl"`
	TotalAssets    float64 `json:"totalAssets"`
	PositionsValue float64 `json:"positionsValue"`
	PositionCount  int     `json:"positionCount"`
}

// GroupedPosition is one position's contribution to a symbol bucket.
type GroupedPosition struct {
	AccountID     string  `json:"accountId"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entryPrice"`
	CurrentPrice  float64 `json:"currentPrice"`
	UnrealizedPnl float64 `json:"unrealizedPnl"`
	PositionValue float64 `json:"positionValue"`
}

// SymbolGroup accumulates all open positions holding one symbol.
// TotalSize is the signed net exposure across accounts; TotalValue sums
// absolute notionals, so offsetting long/short legs do not cancel there.
type SymbolGroup struct {
	TotalSize       float64           `json:"totalSize"`
	TotalValue      float64           `json:"totalValue"`
	TotalUnrealized float64           `json:"totalUnrealized"`
	Positions       []GroupedPosition `json:"positions"`
}

// CumulativeSummary is the global totals block of the cumulative view.
type CumulativeSummary struct {
	TotalAssets         float64 `json:"totalAssets"`
	TotalBalance        float64 `json:"totalBalance"`
	TotalCollateral     float64 `json:"totalCollateral"`
	TotalPositionsValue float64 `json:"totalPositionsValue"`
	TotalRealized       float64 `json:"totalRealized"`
	TotalUnrealized     float64 `json:"totalUnrealized"`
	TotalPnl            float64 `json:"totalPnl"`
	AccountCount        int     `json:"accountCount"`
	TotalPositions      int     `json:"totalPositions"`
}

// CumulativeView is the cross-account portfolio view.
type CumulativeView struct {
	Summary              CumulativeSummary       `json:"summary"`
	Accounts             []AccountSummary        `json:"accounts"`
	GroupedPositionSizes map[string]float64      `json:"groupedPositionSizes"`
	DetailedPositions    map[string]*SymbolGroup `json:"detailedPositions"`
	OpenPositions        []PositionDetail        `json:"openPositions"`
}

// JSON returns the JSON-encoded view (ignoring errors for publish paths).
func (v *CumulativeView) JSON() []byte {
	b, _ := json.Marshal(v)
	return b
}
