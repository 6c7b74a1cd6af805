package ledger

import (
	"context"
	"fmt"
	"time"

	"risk-monitorv1/internal/model"
)

// AppendPnlSnapshot appends one immutable row to an account's PnL history.
// Rows are never updated or deleted here; retention is an operational concern.
func (s *Store) AppendPnlSnapshot(ctx context.Context, snap model.PnlSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pnl_snapshots (account_id, ts, realized_pnl, unrealized_pnl, total_assets)
		VALUES (?, ?, ?, ?, ?)
	`, snap.AccountID, snap.Timestamp.UnixNano(), snap.RealizedPnl, snap.UnrealizedPnl, snap.TotalAssets)
	if err != nil {
		return fmt.Errorf("append pnl snapshot %s: %w", snap.AccountID, err)
	}
	return nil
}

// ListPnlSnapshots returns an account's PnL history, oldest first.
func (s *Store) ListPnlSnapshots(ctx context.Context, accountID string) ([]model.PnlSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, ts, realized_pnl, unrealized_pnl, total_assets
		FROM pnl_snapshots WHERE account_id = ? ORDER BY ts ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list pnl snapshots %s: %w", accountID, err)
	}
	defer rows.Close()

	var snaps []model.PnlSnapshot
	for rows.Next() {
		var snap model.PnlSnapshot
		var tsNs int64
		if err := rows.Scan(&snap.AccountID, &tsNs, &snap.RealizedPnl, &snap.UnrealizedPnl, &snap.TotalAssets); err != nil {
			return nil, fmt.Errorf("scan pnl snapshot: %w", err)
		}
		snap.Timestamp = time.Unix(0, tsNs).UTC()
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
