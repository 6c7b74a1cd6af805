// Package reconciler merges one poll cycle's venue snapshot into the ledger:
// it upserts accounts and open positions, then closes every position the
// venue no longer reports.
package reconciler

import (
	"context"
	"errors"
	"log"
	"time"

	"risk-monitorv1/internal/ledger"
	"risk-monitorv1/internal/model"
)

// Reconciler applies balance and position snapshots to the ledger store.
type Reconciler struct {
	store *ledger.Store

	// OnPositionsClosed, if set, is called with the number of stale
	// positions flagged closed in a cycle.
	OnPositionsClosed func(int)
}

// New creates a Reconciler backed by the given ledger store.
func New(store *ledger.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile merges one cycle's snapshot into the ledger.
//
// Individual upsert failures are logged and skipped rather than aborting the
// cycle: upserts are field-level idempotent, so the next poll converges to
// the same state. The stale-close pass runs only after the complete current
// pair set has been built from the full incoming position list, so an
// account whose positions all disappeared still has them closed. The
// returned error joins any per-record store failures; the SyncResult is
// valid either way.
func (r *Reconciler) Reconcile(ctx context.Context, balances []model.BalanceSnapshot, positions []model.PositionSnapshot) (model.SyncResult, error) {
	now := time.Now().UTC()
	var errs []error

	for _, b := range balances {
		if err := r.store.UpsertAccount(ctx, b, now); err != nil {
			log.Printf("[reconciler] account upsert skipped: %v", err)
			errs = append(errs, err)
		}
	}

	current := make(map[model.PairKey]struct{}, len(positions))
	for _, p := range positions {
		// Provisional estimate only; the PnL calculator recomputes the
		// authoritative value on demand.
		provisional := (p.CurrentPrice - p.EntryPrice) * p.Size
		if err := r.store.UpsertOpenPosition(ctx, p, provisional, now); err != nil {
			log.Printf("[reconciler] position upsert skipped: %v", err)
			errs = append(errs, err)
		}
		current[p.Key()] = struct{}{}
	}

	closed, err := r.store.CloseOpenPositionsExcept(ctx, current, now)
	if err != nil {
		log.Printf("[reconciler] stale close pass: %v", err)
		errs = append(errs, err)
	}
	if closed > 0 {
		log.Printf("[reconciler] closed %d stale position(s)", closed)
		if r.OnPositionsClosed != nil {
			r.OnPositionsClosed(closed)
		}
	}

	return model.SyncResult{
		AccountsSynced:  len(balances),
		PositionsSynced: len(positions),
		PositionsClosed: closed,
	}, errors.Join(errs...)
}
