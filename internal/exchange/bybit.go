package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"risk-monitorv1/internal/model"
)

const (
	defaultBybitURL   = "https://api.bybit.com"
	defaultRecvWindow = "5000"
)

// BybitConfig configures the Bybit v5 snapshot source.
type BybitConfig struct {
	Accounts []Credential
	BaseURL  string        // default: https://api.bybit.com
	Timeout  time.Duration // default: 10s
}

// Bybit fetches balances and positions for each configured sub-account via
// the Bybit v5 REST API (HMAC-SHA256 signed requests).
type Bybit struct {
	accounts   []Credential
	baseURL    string
	recvWindow string
	httpClient *http.Client
}

// NewBybit creates a Bybit source. It performs no network I/O; the first
// poll cycle surfaces connectivity problems.
func NewBybit(cfg BybitConfig) *Bybit {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBybitURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Bybit{
		accounts:   cfg.Accounts,
		baseURL:    cfg.BaseURL,
		recvWindow: defaultRecvWindow,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// ---- v5 response envelopes ----

type bybitEnvelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type walletBalanceResult struct {
	List []struct {
		TotalWalletBalance string `json:"totalWalletBalance"`
		TotalInitialMargin string `json:"totalInitialMargin"`
		Coin               []struct {
			CumRealisedPnl string `json:"cumRealisedPnl"`
		} `json:"coin"`
	} `json:"list"`
}

type positionListResult struct {
	List []struct {
		Symbol        string `json:"symbol"`
		Side          string `json:"side"` // "Buy" or "Sell"
		Size          string `json:"size"`
		AvgPrice      string `json:"avgPrice"`
		MarkPrice     string `json:"markPrice"`
		PositionIM    string `json:"positionIM"`
		UnrealisedPnl string `json:"unrealisedPnl"`
	} `json:"list"`
}

// FetchBalances queries /v5/account/wallet-balance for every sub-account.
func (b *Bybit) FetchBalances(ctx context.Context) ([]model.BalanceSnapshot, error) {
	balances := make([]model.BalanceSnapshot, 0, len(b.accounts))
	for _, cred := range b.accounts {
		query := url.Values{"accountType": {"UNIFIED"}}
		var result walletBalanceResult
		if err := b.get(ctx, cred, "/v5/account/wallet-balance", query, &result); err != nil {
			return nil, err
		}
		if len(result.List) == 0 {
			return nil, fmt.Errorf("%w: empty wallet-balance list for %s", ErrSourceUnavailable, cred.AccountID)
		}

		w := result.List[0]
		var realized float64
		for _, coin := range w.Coin {
			realized += parseFloat(coin.CumRealisedPnl)
		}
		balances = append(balances, model.BalanceSnapshot{
			AccountID:   cred.AccountID,
			Name:        cred.Name,
			Balance:     parseFloat(w.TotalWalletBalance),
			Collateral:  parseFloat(w.TotalInitialMargin),
			RealizedPnl: realized,
		})
	}
	return balances, nil
}

// FetchPositions queries /v5/position/list for every sub-account. The venue
// reports size as unsigned with a side flag; the sign convention here is
// positive = long, negative = short.
func (b *Bybit) FetchPositions(ctx context.Context) ([]model.PositionSnapshot, error) {
	var positions []model.PositionSnapshot
	for _, cred := range b.accounts {
		query := url.Values{"category": {"linear"}, "settleCoin": {"USDT"}}
		var result positionListResult
		if err := b.get(ctx, cred, "/v5/position/list", query, &result); err != nil {
			return nil, err
		}

		for _, p := range result.List {
			size := parseFloat(p.Size)
			if size == 0 {
				continue
			}
			if p.Side == "Sell" {
				size = -size
			}
			positions = append(positions, model.PositionSnapshot{
				AccountID:    cred.AccountID,
				Symbol:       p.Symbol,
				Size:         size,
				EntryPrice:   parseFloat(p.AvgPrice),
				CurrentPrice: parseFloat(p.MarkPrice),
				Margin:       parseFloat(p.PositionIM),
			})
		}
	}
	return positions, nil
}

// get performs one signed GET request and decodes the result payload.
func (b *Bybit) get(ctx context.Context, cred Credential, path string, query url.Values, result any) error {
	queryString := query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path+"?"+queryString, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("X-BAPI-API-KEY", cred.APIKey)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", b.recvWindow)
	req.Header.Set("X-BAPI-SIGN", sign(cred.APISecret, ts+cred.APIKey+b.recvWindow+queryString))

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrSourceUnavailable, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: HTTP %d", ErrSourceUnavailable, path, resp.StatusCode)
	}

	var env bybitEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %s: decode envelope: %v", ErrSourceUnavailable, path, err)
	}
	if env.RetCode != 0 {
		return fmt.Errorf("%w: %s: retCode=%d %s", ErrSourceUnavailable, path, env.RetCode, env.RetMsg)
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("%w: %s: decode result: %v", ErrSourceUnavailable, path, err)
	}
	return nil
}

// sign computes the v5 request signature: hex(HMAC-SHA256(secret, payload)).
func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
