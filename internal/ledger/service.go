package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
)

const defaultHistoryLimit = 50

// Service runs ledger operations in their own transaction. Booking code that
// needs a debit to commit with other writes calls Debit/Credit directly with
// its transactional querier instead.
type Service struct {
	db *db.DB
}

func NewService(database *db.DB) *Service {
	return &Service{db: database}
}

// Recharge credits points bought through the payment collaborator. Retried
// callbacks with the same payment id are applied once.
func (s *Service) Recharge(ctx context.Context, userID, amount int64, description, paymentTxnID string) (Result, error) {
	if paymentTxnID == "" {
		return Result{}, ErrReferenceRequired
	}

	var result Result
	err := s.db.RunInTx(ctx, func(tx *db.DB) error {
		var err error
		result, err = Recharge(ctx, tx.Queries, Entry{
			UserID:      userID,
			Amount:      amount,
			Description: description,
			Reference:   PaymentReference(paymentTxnID),
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}

	logger := log.Ctx(ctx)
	logger.Info().
		Str("component", "ledger").
		Int64("user_id", userID).
		Int64("amount", amount).
		Bool("replayed", result.Replayed).
		Msg("Balance recharged")
	return result, nil
}

// Account returns the balance account for userID.
func (s *Service) Account(ctx context.Context, userID int64) (dbgen.BalanceAccount, error) {
	account, err := s.db.Queries.GetBalanceAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.BalanceAccount{}, ErrAccountNotFound
		}
		return dbgen.BalanceAccount{}, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

// History returns the most recent transactions for userID, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]dbgen.BalanceTransaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	txns, err := s.db.Queries.ListBalanceTransactions(ctx, dbgen.ListBalanceTransactionsParams{
		UserID: userID,
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}
