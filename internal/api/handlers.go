package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"risk-monitorv1/internal/exchange"
	"risk-monitorv1/internal/ledger"
)

// setCORS sets CORS headers for REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleAccounts serves GET /api/accounts: raw ledger account records with
// their last-computed derived fields.
func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		log.Printf("[api] list accounts: %v", err)
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// handleAccountSubtree serves GET /api/accounts/{accountId} (fresh PnL
// computation) and GET /api/accounts/{accountId}/history (snapshot rows).
func (s *Server) handleAccountSubtree(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
	accountID, sub, _ := strings.Cut(rest, "/")
	if accountID == "" {
		writeError(w, http.StatusNotFound, "missing account id")
		return
	}

	switch sub {
	case "":
		view, err := s.calc.ComputeAccountPnL(r.Context(), accountID)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account "+accountID+" not found")
			return
		}
		if err != nil {
			log.Printf("[api] account pnl %s: %v", accountID, err)
			writeError(w, http.StatusInternalServerError, "store error")
			return
		}
		writeJSON(w, http.StatusOK, view)

	case "history":
		snaps, err := s.store.ListPnlSnapshots(r.Context(), accountID)
		if err != nil {
			log.Printf("[api] history %s: %v", accountID, err)
			writeError(w, http.StatusInternalServerError, "store error")
			return
		}
		writeJSON(w, http.StatusOK, snaps)

	default:
		writeError(w, http.StatusNotFound, "unknown resource")
	}
}

// handleCumulative serves GET /api/cumulative: the cross-account view.
func (s *Server) handleCumulative(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	view, err := s.calc.ComputeCumulative(r.Context())
	if err != nil {
		log.Printf("[api] cumulative: %v", err)
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handlePositions serves GET /api/positions: every position, open and closed.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	positions, err := s.store.ListPositions(r.Context())
	if err != nil {
		log.Printf("[api] list positions: %v", err)
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

// handleSync serves POST /api/sync: a manual reconcile cycle, identical to a
// scheduler tick.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	res, err := s.sync(r.Context())
	if errors.Is(err, exchange.ErrSourceUnavailable) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if err != nil {
		// best-effort cycle with partial store failures; report the
		// counts and let the next cycle self-heal
		log.Printf("[api] manual sync completed with errors: %v", err)
	}
	writeJSON(w, http.StatusOK, res)
}
