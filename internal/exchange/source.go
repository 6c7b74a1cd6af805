// Package exchange supplies the per-cycle account snapshot: balances and
// open positions for every monitored venue sub-account, already parsed into
// strongly typed records so the reconciler never sees a partially-shaped one.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"risk-monitorv1/internal/model"
)

// ErrSourceUnavailable wraps any failure to reach the venue. A cycle that
// gets this performs no ledger writes and is retried on the next tick.
var ErrSourceUnavailable = errors.New("snapshot source unavailable")

// Source supplies one poll cycle's full snapshot.
type Source interface {
	// FetchBalances returns the balance entry for every monitored account.
	FetchBalances(ctx context.Context) ([]model.BalanceSnapshot, error)

	// FetchPositions returns every open position across monitored accounts.
	// An account with no entries here has no open positions on the venue.
	FetchPositions(ctx context.Context) ([]model.PositionSnapshot, error)
}

// Credential holds one sub-account's identity and API keys.
type Credential struct {
	AccountID string
	Name      string
	APIKey    string
	APISecret string
}

// ParseCredentials parses "accountId:name:apiKey:apiSecret" entries separated
// by commas, e.g. "account-1:Trader 1:k1:s1,account-2:Trader 2:k2:s2".
func ParseCredentials(s string) ([]Credential, error) {
	var creds []Credential
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("credential entry %q: want accountId:name:apiKey:apiSecret", entry)
		}
		creds = append(creds, Credential{
			AccountID: parts[0],
			Name:      parts[1],
			APIKey:    parts[2],
			APISecret: parts[3],
		})
	}
	if len(creds) == 0 {
		return nil, errors.New("no account credentials configured")
	}
	return creds, nil
}
