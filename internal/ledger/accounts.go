package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"risk-monitorv1/internal/model"
)

// UpsertAccount overwrites the venue-reported fields of an account, creating
// the row on first appearance. Derived fields are never touched here, so
// replaying the same snapshot converges to identical state.
func (s *Store) UpsertAccount(ctx context.Context, b model.BalanceSnapshot, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (account_id, name, balance, collateral, realized_pnl, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			name         = excluded.name,
			balance      = excluded.balance,
			collateral   = excluded.collateral,
			realized_pnl = excluded.realized_pnl,
			updated_at   = excluded.updated_at
	`, b.AccountID, b.Name, b.Balance, b.Collateral, b.RealizedPnl, at.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", b.AccountID, err)
	}
	return nil
}

// UpdateAccountDerived writes back the derived PnL fields computed from the
// account's open positions.
func (s *Store) UpdateAccountDerived(ctx context.Context, accountID string, unrealized, totalAssets, totalPnl float64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET unrealized_pnl = ?, total_assets = ?, total_pnl = ?, updated_at = ?
		WHERE account_id = ?
	`, unrealized, totalAssets, totalPnl, at.UnixNano(), accountID)
	if err != nil {
		return fmt.Errorf("update account derived %s: %w", accountID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// GetAccount returns one account by its venue ID.
func (s *Store) GetAccount(ctx context.Context, accountID string) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, name, balance, collateral, realized_pnl,
		       unrealized_pnl, total_assets, total_pnl, updated_at
		FROM accounts WHERE account_id = ?
	`, accountID)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account %s: %w", accountID, err)
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by ID.
func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, name, balance, collateral, realized_pnl,
		       unrealized_pnl, total_assets, total_pnl, updated_at
		FROM accounts ORDER BY account_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (model.Account, error) {
	var a model.Account
	var updatedNs int64
	err := r.Scan(&a.AccountID, &a.Name, &a.Balance, &a.Collateral, &a.RealizedPnl,
		&a.UnrealizedPnl, &a.TotalAssets, &a.TotalPnl, &updatedNs)
	if err != nil {
		return model.Account{}, err
	}
	a.UpdatedAt = time.Unix(0, updatedNs).UTC()
	return a, nil
}
