// internal/api/balance/handlers.go
package balance

import (
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/api/apiutil"
	"github.com/codr1/courtsync/internal/api/authz"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
	"github.com/codr1/courtsync/internal/ledger"
)

var (
	service  *ledger.Service
	initOnce sync.Once
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *ledger.Service) {
	if s == nil {
		return
	}
	initOnce.Do(func() {
		service = s
	})
}

func Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/balance", HandleBalanceGet)
	mux.HandleFunc("POST /api/v1/balance/recharge", HandleRecharge)
}

type balanceResponse struct {
	UserID         int64                      `json:"user_id"`
	Balance        int64                      `json:"balance"`
	TotalRecharged int64                      `json:"total_recharged"`
	TotalSpent     int64                      `json:"total_spent"`
	Transactions   []dbgen.BalanceTransaction `json:"transactions"`
}

type rechargeRequest struct {
	UserID       int64  `json:"user_id" validate:"gt=0"`
	Amount       int64  `json:"amount" validate:"gt=0"`
	Description  string `json:"description" validate:"max=200"`
	PaymentTxnID string `json:"payment_txn_id" validate:"required,max=128"`
}

type rechargeResponse struct {
	UserID   int64 `json:"user_id"`
	Balance  int64 `json:"balance"`
	Replayed bool  `json:"replayed"`
}

// GET /api/v1/balance
//
// Admins may pass ?user_id= to read another member's account.
func HandleBalanceGet(w http.ResponseWriter, r *http.Request) {
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	s, ok := loadService(w, r)
	if !ok {
		return
	}

	userID := user.ID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := apiutil.ParsePositiveInt64Field(raw, "user_id")
		if err != nil {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err})
			return
		}
		if _, err := authz.RequireSelfOrAdmin(r.Context(), id); err != nil {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusForbidden, Message: "Forbidden", Err: err})
			return
		}
		userID = id
	}
	limit, err := apiutil.QueryLimit(r, defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	account, err := s.Account(r.Context(), userID)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}
	txns, err := s.History(r.Context(), userID, int(limit))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if txns == nil {
		txns = []dbgen.BalanceTransaction{}
	}

	writeJSON(w, r, http.StatusOK, balanceResponse{
		UserID:         account.UserID,
		Balance:        account.Balance,
		TotalRecharged: account.TotalRecharged,
		TotalSpent:     account.TotalSpent,
		Transactions:   txns,
	})
}

// POST /api/v1/balance/recharge
//
// Called by the payment collaborator once a top-up has settled. Retries with
// the same payment_txn_id are applied once.
func HandleRecharge(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireAdmin(w, r); !ok {
		return
	}
	s, ok := loadService(w, r)
	if !ok {
		return
	}

	var req rechargeRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	description := req.Description
	if description == "" {
		description = "Top-up " + req.PaymentTxnID
	}

	result, err := s.Recharge(r.Context(), req.UserID, req.Amount, description, req.PaymentTxnID)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, r, status, rechargeResponse{
		UserID:   result.Account.UserID,
		Balance:  result.Account.Balance,
		Replayed: result.Replayed,
	})
}

func loadService(w http.ResponseWriter, r *http.Request) (*ledger.Service, bool) {
	if service == nil {
		log.Ctx(r.Context()).Error().Msg("Balance handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return service, true
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Balance account not found", Err: err}
	case errors.Is(err, ledger.ErrInvalidAmount):
		return apiutil.HandlerError{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
			Err:     err,
			Fields:  []apiutil.FieldError{{Field: "amount", Reason: "must be greater than 0"}},
		}
	case errors.Is(err, ledger.ErrReferenceMismatch):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: err.Error(), Err: err}
	default:
		return err
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("Failed to write balance response")
	}
}
