package ledger

import (
	"context"
	"fmt"
	"time"

	"risk-monitorv1/internal/model"
)

// UpsertOpenPosition creates or refreshes the single open position for an
// account+symbol pair. The conflict target is the partial unique index on
// open rows, so closed history rows are never resurrected.
//
// provisionalPnl is the reconcile-time unrealized estimate; the PnL
// calculator supersedes it on the next computation.
func (s *Store) UpsertOpenPosition(ctx context.Context, p model.PositionSnapshot, provisionalPnl float64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (account_id, symbol, size, entry_price, current_price, margin, unrealized_pnl, is_open, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(account_id, symbol) WHERE is_open = 1 DO UPDATE SET
			size           = excluded.size,
			entry_price    = excluded.entry_price,
			current_price  = excluded.current_price,
			margin         = excluded.margin,
			unrealized_pnl = excluded.unrealized_pnl,
			updated_at     = excluded.updated_at
	`, p.AccountID, p.Symbol, p.Size, p.EntryPrice, p.CurrentPrice, p.Margin, provisionalPnl, at.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert position %s/%s: %w", p.AccountID, p.Symbol, err)
	}
	return nil
}

// CloseOpenPositionsExcept flags every open position whose account+symbol
// pair is absent from current as closed. The membership test runs against
// the complete incoming pair set in one pass, so accounts with zero current
// positions still have their stale positions closed. Each close is a single
// atomic UPDATE; the closed row is retained for history.
func (s *Store) CloseOpenPositionsExcept(ctx context.Context, current map[model.PairKey]struct{}, at time.Time) (int, error) {
	open, err := s.ListOpenPositions(ctx)
	if err != nil {
		return 0, err
	}

	closed := 0
	var firstErr error
	for i := range open {
		if _, ok := current[open[i].Key()]; ok {
			continue
		}
		_, err := s.db.ExecContext(ctx, `
			UPDATE positions SET is_open = 0, updated_at = ?
			WHERE id = ? AND is_open = 1
		`, at.UnixNano(), open[i].ID)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("close position %d: %w", open[i].ID, err)
			}
			continue
		}
		closed++
	}
	return closed, firstErr
}

// SetPositionUnrealized writes the authoritative unrealized PnL back onto a
// position record.
func (s *Store) SetPositionUnrealized(ctx context.Context, id int64, unrealized float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE positions SET unrealized_pnl = ? WHERE id = ?
	`, unrealized, id)
	if err != nil {
		return fmt.Errorf("set position %d unrealized: %w", id, err)
	}
	return nil
}

// ListPositions returns every position, open and closed, newest first.
func (s *Store) ListPositions(ctx context.Context) ([]model.Position, error) {
	return s.queryPositions(ctx, `
		SELECT id, account_id, symbol, size, entry_price, current_price, margin, unrealized_pnl, is_open, updated_at
		FROM positions ORDER BY updated_at DESC, id DESC
	`)
}

// ListOpenPositions returns all currently-open positions across accounts.
func (s *Store) ListOpenPositions(ctx context.Context) ([]model.Position, error) {
	return s.queryPositions(ctx, `
		SELECT id, account_id, symbol, size, entry_price, current_price, margin, unrealized_pnl, is_open, updated_at
		FROM positions WHERE is_open = 1 ORDER BY account_id, symbol
	`)
}

// ListOpenPositionsByAccount returns one account's open positions.
func (s *Store) ListOpenPositionsByAccount(ctx context.Context, accountID string) ([]model.Position, error) {
	return s.queryPositions(ctx, `
		SELECT id, account_id, symbol, size, entry_price, current_price, margin, unrealized_pnl, is_open, updated_at
		FROM positions WHERE is_open = 1 AND account_id = ? ORDER BY symbol
	`, accountID)
}

func (s *Store) queryPositions(ctx context.Context, q string, args ...any) ([]model.Position, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		var isOpen int
		var updatedNs int64
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Symbol, &p.Size, &p.EntryPrice,
			&p.CurrentPrice, &p.Margin, &p.UnrealizedPnl, &isOpen, &updatedNs); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		p.IsOpen = isOpen == 1
		p.UpdatedAt = time.Unix(0, updatedNs).UTC()
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
