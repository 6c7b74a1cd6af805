package pnl

import (
	"context"
	"log"
	"time"

	"risk-monitorv1/internal/ledger"
	"risk-monitorv1/internal/model"
)

// Calculator performs the stateful "compute and persist" PnL operation for a
// single account, and the read-only cumulative aggregation across accounts.
type Calculator struct {
	store *ledger.Store

	// OnSnapshot, if set, is called after each history row is appended.
	// Used to fan snapshots out to external consumers.
	OnSnapshot func(model.PnlSnapshot)

	// OnComputeDuration, if set, receives the wall time of each
	// ComputeAccountPnL call.
	OnComputeDuration func(time.Duration)
}

// NewCalculator creates a Calculator backed by the given ledger store.
func NewCalculator(store *ledger.Store) *Calculator {
	return &Calculator{store: store}
}

// ComputeAccountPnL loads one account and its open positions, computes the
// authoritative unrealized PnL and asset totals, writes the derived fields
// back onto the position and account records, and appends one immutable
// history row.
//
// Returns ledger.ErrAccountNotFound (with no writes) for an unknown account.
// The operation is not atomic across the account: a reconcile cycle landing
// mid-computation may leave slightly stale prices, corrected next cycle.
func (c *Calculator) ComputeAccountPnL(ctx context.Context, accountID string) (model.AccountView, error) {
	if c.OnComputeDuration != nil {
		start := time.Now()
		defer func() { c.OnComputeDuration(time.Since(start)) }()
	}

	account, err := c.store.GetAccount(ctx, accountID)
	if err != nil {
		return model.AccountView{}, err
	}

	positions, err := c.store.ListOpenPositionsByAccount(ctx, accountID)
	if err != nil {
		return model.AccountView{}, err
	}

	now := time.Now().UTC()
	var unrealized, positionsValue float64
	sizeBySymbol := make(map[string]float64)
	details := make([]model.PositionDetail, 0, len(positions))

	for _, pos := range positions {
		d := detail(pos)
		unrealized += d.UnrealizedPnl
		positionsValue += d.PositionValue
		sizeBySymbol[pos.Symbol] += pos.Size
		details = append(details, d)

		if err := c.store.SetPositionUnrealized(ctx, pos.ID, d.UnrealizedPnl); err != nil {
			log.Printf("[pnl] write-back for position %d failed: %v", pos.ID, err)
		}
	}

	totalAssets := account.Balance + account.Collateral + positionsValue
	totalPnl := account.RealizedPnl + unrealized

	if err := c.store.UpdateAccountDerived(ctx, accountID, unrealized, totalAssets, totalPnl, now); err != nil {
		return model.AccountView{}, err
	}

	snap := model.PnlSnapshot{
		AccountID:     accountID,
		Timestamp:     now,
		RealizedPnl:   account.RealizedPnl,
		UnrealizedPnl: unrealized,
		TotalAssets:   totalAssets,
	}
	if err := c.store.AppendPnlSnapshot(ctx, snap); err != nil {
		return model.AccountView{}, err
	}
	if c.OnSnapshot != nil {
		c.OnSnapshot(snap)
	}

	return model.AccountView{
		AccountID:              account.AccountID,
		Name:                   account.Name,
		Balance:                account.Balance,
		Collateral:             account.Collateral,
		RealizedPnl:            account.RealizedPnl,
		UnrealizedPnl:          unrealized,
		TotalPnl:               totalPnl,
		TotalAssets:            totalAssets,
		PositionsValue:         positionsValue,
		OpenPositions:          details,
		CumulativePositionSize: sizeBySymbol,
	}, nil
}

// ComputeCumulative builds the cross-account portfolio view: global totals,
// per-account summaries, and per-symbol grouped net exposure. It performs no
// writes and is safe to call concurrently with reconciliation.
//
// Grand totals and account summaries iterate the same open-position set, so
// they agree by construction.
func (c *Calculator) ComputeCumulative(ctx context.Context) (model.CumulativeView, error) {
	accounts, err := c.store.ListAccounts(ctx)
	if err != nil {
		return model.CumulativeView{}, err
	}
	allOpen, err := c.store.ListOpenPositions(ctx)
	if err != nil {
		return model.CumulativeView{}, err
	}

	byAccount := make(map[string][]model.Position)
	for _, p := range allOpen {
		byAccount[p.AccountID] = append(byAccount[p.AccountID], p)
	}

	view := model.CumulativeView{
		Accounts:             make([]model.AccountSummary, 0, len(accounts)),
		GroupedPositionSizes: make(map[string]float64),
		DetailedPositions:    make(map[string]*model.SymbolGroup),
		OpenPositions:        make([]model.PositionDetail, 0, len(allOpen)),
	}

	for _, acct := range accounts {
		var acctUnrealized, acctValue float64
		acctPositions := byAccount[acct.AccountID]
		for _, pos := range acctPositions {
			acctUnrealized += Unrealized(pos)
			acctValue += Value(pos)
		}

		view.Summary.TotalBalance += acct.Balance
		view.Summary.TotalCollateral += acct.Collateral
		view.Summary.TotalRealized += acct.RealizedPnl

		view.Accounts = append(view.Accounts, model.AccountSummary{
			AccountID:      acct.AccountID,
			Name:           acct.Name,
			Balance:        acct.Balance,
			Collateral:     acct.Collateral,
			RealizedPnl:    acct.RealizedPnl,
			UnrealizedPnl:  acctUnrealized,
			TotalPnl:       acct.RealizedPnl + acctUnrealized,
			TotalAssets:    acct.Balance + acct.Collateral + acctValue,
			PositionsValue: acctValue,
			PositionCount:  len(acctPositions),
		})
	}

	for _, pos := range allOpen {
		d := detail(pos)
		view.Summary.TotalUnrealized += d.UnrealizedPnl
		view.Summary.TotalPositionsValue += d.PositionValue

		group, ok := view.DetailedPositions[pos.Symbol]
		if !ok {
			group = &model.SymbolGroup{}
			view.DetailedPositions[pos.Symbol] = group
		}
		group.TotalSize += pos.Size
		group.TotalValue += d.PositionValue
		group.TotalUnrealized += d.UnrealizedPnl
		group.Positions = append(group.Positions, model.GroupedPosition{
			AccountID:     pos.AccountID,
			Size:          pos.Size,
			EntryPrice:    pos.EntryPrice,
			CurrentPrice:  pos.CurrentPrice,
			UnrealizedPnl: d.UnrealizedPnl,
			PositionValue: d.PositionValue,
		})

		view.OpenPositions = append(view.OpenPositions, d)
	}

	for symbol, group := range view.DetailedPositions {
		view.GroupedPositionSizes[symbol] = group.TotalSize
	}

	view.Summary.TotalAssets = view.Summary.TotalBalance + view.Summary.TotalCollateral + view.Summary.TotalPositionsValue
	view.Summary.TotalPnl = view.Summary.TotalRealized + view.Summary.TotalUnrealized
	view.Summary.AccountCount = len(accounts)
	view.Summary.TotalPositions = len(allOpen)

	return view, nil
}
