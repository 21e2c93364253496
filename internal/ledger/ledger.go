// internal/ledger/ledger.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/codr1/courtsync/internal/db"
	dbgen "github.com/codr1/courtsync/internal/db/generated"
)

const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"

	TypeDebit    = "debit"
	TypeRefund   = "refund"
	TypeRecharge = "recharge"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("balance account not found")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrReferenceRequired   = errors.New("reference is required")
	// ErrReferenceMismatch is returned when a reference is reused for a
	// different user or amount.
	ErrReferenceMismatch = errors.New("reference already used for a different entry")
)

// InsufficientBalanceError reports the shortfall of a rejected debit.
type InsufficientBalanceError struct {
	UserID   int64
	Balance  int64
	Required int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for user %d: have %d, need %d", e.UserID, e.Balance, e.Required)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// Entry describes one ledger movement. Reference identifies the business event
// (e.g. "reservation:42"); together with the direction it is unique.
type Entry struct {
	UserID      int64
	Amount      int64
	Description string
	Reference   string
	At          time.Time
}

// Result is the account state after an entry and the transaction that recorded it.
// Replayed is set when the reference had already been applied and nothing changed.
type Result struct {
	Account     dbgen.BalanceAccount
	Transaction dbgen.BalanceTransaction
	Replayed    bool
}

// ReservationReference returns the ledger reference for a single reservation.
func ReservationReference(reservationID int64) string {
	return "reservation:" + strconv.FormatInt(reservationID, 10)
}

// GroupReference returns the ledger reference for a full-venue group.
func GroupReference(groupID string) string {
	return "group:" + groupID
}

// PaymentReference returns the ledger reference for an external payment.
func PaymentReference(paymentTxnID string) string {
	return "payment:" + paymentTxnID
}

// Debit removes entry.Amount points from the account. The balance check and the
// decrement are a single conditional UPDATE so concurrent debits cannot
// overdraw. Callers should pass a transactional querier when the debit must be
// atomic with other writes.
func Debit(ctx context.Context, q dbgen.Querier, entry Entry) (Result, error) {
	if err := validateEntry(q, entry); err != nil {
		return Result{}, err
	}
	at := entryTime(entry)

	if replay, ok, err := findApplied(ctx, q, entry, DirectionDebit); err != nil || ok {
		return replay, err
	}

	account, err := q.DebitBalanceAccount(ctx, dbgen.DebitBalanceAccountParams{
		Amount:    entry.Amount,
		UpdatedAt: at,
		UserID:    entry.UserID,
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("debit account: %w", err)
		}
		current, getErr := q.GetBalanceAccount(ctx, entry.UserID)
		if getErr != nil {
			if errors.Is(getErr, sql.ErrNoRows) {
				return Result{}, &InsufficientBalanceError{UserID: entry.UserID, Required: entry.Amount}
			}
			return Result{}, fmt.Errorf("load account: %w", getErr)
		}
		return Result{}, &InsufficientBalanceError{
			UserID:   entry.UserID,
			Balance:  current.Balance,
			Required: entry.Amount,
		}
	}

	txn, err := appendTransaction(ctx, q, entry, TypeDebit, DirectionDebit, at)
	if err != nil {
		return Result{}, err
	}
	return Result{Account: account, Transaction: txn}, nil
}

// Credit returns entry.Amount points to the account as a refund. The account
// must already exist since a refund always follows a debit.
func Credit(ctx context.Context, q dbgen.Querier, entry Entry) (Result, error) {
	if err := validateEntry(q, entry); err != nil {
		return Result{}, err
	}
	at := entryTime(entry)

	if replay, ok, err := findApplied(ctx, q, entry, DirectionCredit); err != nil || ok {
		return replay, err
	}

	account, err := q.RefundBalanceAccount(ctx, dbgen.RefundBalanceAccountParams{
		Amount:    entry.Amount,
		UpdatedAt: at,
		UserID:    entry.UserID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, ErrAccountNotFound
		}
		return Result{}, fmt.Errorf("refund account: %w", err)
	}

	txn, err := appendTransaction(ctx, q, entry, TypeRefund, DirectionCredit, at)
	if err != nil {
		return Result{}, err
	}
	return Result{Account: account, Transaction: txn}, nil
}

// Recharge adds purchased points to the account, opening it if needed.
func Recharge(ctx context.Context, q dbgen.Querier, entry Entry) (Result, error) {
	if err := validateEntry(q, entry); err != nil {
		return Result{}, err
	}
	at := entryTime(entry)

	if replay, ok, err := findApplied(ctx, q, entry, DirectionCredit); err != nil || ok {
		return replay, err
	}

	if err := q.EnsureBalanceAccount(ctx, dbgen.EnsureBalanceAccountParams{
		UserID:    entry.UserID,
		UpdatedAt: at,
	}); err != nil {
		return Result{}, fmt.Errorf("open account: %w", err)
	}

	account, err := q.RechargeBalanceAccount(ctx, dbgen.RechargeBalanceAccountParams{
		Amount:    entry.Amount,
		UpdatedAt: at,
		UserID:    entry.UserID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("recharge account: %w", err)
	}

	txn, err := appendTransaction(ctx, q, entry, TypeRecharge, DirectionCredit, at)
	if err != nil {
		return Result{}, err
	}
	return Result{Account: account, Transaction: txn}, nil
}

func validateEntry(q dbgen.Querier, entry Entry) error {
	if q == nil {
		return fmt.Errorf("queries are required")
	}
	if entry.UserID <= 0 {
		return fmt.Errorf("user_id must be a positive integer")
	}
	if entry.Amount <= 0 {
		return ErrInvalidAmount
	}
	if entry.Reference == "" {
		return ErrReferenceRequired
	}
	return nil
}

func entryTime(entry Entry) time.Time {
	if entry.At.IsZero() {
		return time.Now().UTC()
	}
	return entry.At.UTC()
}

// findApplied looks up an earlier transaction for the same reference and
// direction. A match for the same user and amount is a retry and is returned
// as a replay with the current account state.
func findApplied(ctx context.Context, q dbgen.Querier, entry Entry, direction string) (Result, bool, error) {
	existing, err := q.GetBalanceTransactionByReference(ctx, dbgen.GetBalanceTransactionByReferenceParams{
		Reference: entry.Reference,
		Direction: direction,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, false, nil
		}
		return Result{}, false, fmt.Errorf("lookup reference: %w", err)
	}
	if existing.UserID != entry.UserID || existing.Amount != entry.Amount {
		return Result{}, false, fmt.Errorf("%w: %s", ErrReferenceMismatch, entry.Reference)
	}

	account, err := q.GetBalanceAccount(ctx, entry.UserID)
	if err != nil {
		return Result{}, false, fmt.Errorf("load account: %w", err)
	}
	return Result{Account: account, Transaction: existing, Replayed: true}, true, nil
}

func appendTransaction(ctx context.Context, q dbgen.Querier, entry Entry, txnType, direction string, at time.Time) (dbgen.BalanceTransaction, error) {
	txn, err := q.CreateBalanceTransaction(ctx, dbgen.CreateBalanceTransactionParams{
		UserID:      entry.UserID,
		TxnType:     txnType,
		Direction:   direction,
		Amount:      entry.Amount,
		Description: entry.Description,
		Reference:   entry.Reference,
		CreatedAt:   at,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return dbgen.BalanceTransaction{}, fmt.Errorf("%w: %s", ErrReferenceMismatch, entry.Reference)
		}
		return dbgen.BalanceTransaction{}, fmt.Errorf("record transaction: %w", err)
	}
	return txn, nil
}
