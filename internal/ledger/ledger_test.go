package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/codr1/courtsync/internal/db"
	"github.com/codr1/courtsync/internal/testutil"
)

func TestDebit_InsufficientBalanceLeavesAccountUntouched(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, database, "Ana", "ana@example.com")
	testutil.FundAccount(t, database, userID, 100)

	_, err := Debit(ctx, database.Queries, Entry{
		UserID:    userID,
		Amount:    150,
		Reference: ReservationReference(1),
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	var shortfall *InsufficientBalanceError
	if !errors.As(err, &shortfall) || shortfall.Balance != 100 || shortfall.Required != 150 {
		t.Fatalf("unexpected shortfall detail: %+v", shortfall)
	}
	if got := testutil.Balance(t, database, userID); got != 100 {
		t.Fatalf("balance = %d, want 100", got)
	}
	if got := testutil.CountRows(t, database, "balance_transactions", ""); got != 0 {
		t.Fatalf("transactions = %d, want 0", got)
	}
}

func TestDebit_MissingAccountIsInsufficient(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.InsertUser(t, database, "Ben", "")

	_, err := Debit(context.Background(), database.Queries, Entry{
		UserID:    userID,
		Amount:    10,
		Reference: ReservationReference(7),
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestDebit_RetryWithSameReferenceChargesOnce(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, database, "Cleo", "")
	testutil.FundAccount(t, database, userID, 100)

	entry := Entry{UserID: userID, Amount: 60, Description: "Court 1", Reference: ReservationReference(3)}
	first, err := Debit(ctx, database.Queries, entry)
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}
	if first.Replayed || first.Account.Balance != 40 || first.Account.TotalSpent != 60 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second, err := Debit(ctx, database.Queries, entry)
	if err != nil {
		t.Fatalf("retried debit: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("expected replayed result")
	}
	if second.Transaction.ID != first.Transaction.ID {
		t.Fatalf("replay returned transaction %d, want %d", second.Transaction.ID, first.Transaction.ID)
	}
	if got := testutil.Balance(t, database, userID); got != 40 {
		t.Fatalf("balance = %d, want 40", got)
	}

	entry.Amount = 70
	if _, err := Debit(ctx, database.Queries, entry); !errors.Is(err, ErrReferenceMismatch) {
		t.Fatalf("expected ErrReferenceMismatch, got %v", err)
	}
}

func TestCredit_RefundRestoresBalance(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, database, "Dina", "")
	testutil.FundAccount(t, database, userID, 100)

	ref := ReservationReference(9)
	if _, err := Debit(ctx, database.Queries, Entry{UserID: userID, Amount: 80, Reference: ref}); err != nil {
		t.Fatalf("debit: %v", err)
	}
	refund, err := Credit(ctx, database.Queries, Entry{UserID: userID, Amount: 80, Reference: ref})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if refund.Account.Balance != 100 || refund.Account.TotalSpent != 0 {
		t.Fatalf("unexpected account after refund: %+v", refund.Account)
	}
	if refund.Transaction.TxnType != TypeRefund || refund.Transaction.Direction != DirectionCredit {
		t.Fatalf("unexpected refund transaction: %+v", refund.Transaction)
	}

	again, err := Credit(ctx, database.Queries, Entry{UserID: userID, Amount: 80, Reference: ref})
	if err != nil {
		t.Fatalf("retried credit: %v", err)
	}
	if !again.Replayed || again.Account.Balance != 100 {
		t.Fatalf("retried credit applied twice: %+v", again)
	}
}

func TestCredit_MissingAccount(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.InsertUser(t, database, "Eli", "")

	_, err := Credit(context.Background(), database.Queries, Entry{UserID: userID, Amount: 5, Reference: "reservation:1"})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestEntryValidation(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry Entry
		want  error
	}{
		{"zero amount", Entry{UserID: 1, Amount: 0, Reference: "r"}, ErrInvalidAmount},
		{"negative amount", Entry{UserID: 1, Amount: -5, Reference: "r"}, ErrInvalidAmount},
		{"missing reference", Entry{UserID: 1, Amount: 5}, ErrReferenceRequired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Debit(ctx, database.Queries, tc.entry); !errors.Is(err, tc.want) {
				t.Fatalf("Debit error = %v, want %v", err, tc.want)
			}
			if _, err := Credit(ctx, database.Queries, tc.entry); !errors.Is(err, tc.want) {
				t.Fatalf("Credit error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDebit_ConcurrentSpendNeverOverdraws(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, database, "Fay", "")
	testutil.FundAccount(t, database, userID, 100)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := database.RunInTx(ctx, func(tx *db.DB) error {
				_, err := Debit(ctx, tx.Queries, Entry{
					UserID:    userID,
					Amount:    10,
					Reference: ReservationReference(int64(i + 1)),
				})
				return err
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("worker %d: unexpected error %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("succeeded = %d, want 10", succeeded)
	}
	if got := testutil.Balance(t, database, userID); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}

func TestService_RechargeOpensAccountOnce(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, database, "Gus", "")
	service := NewService(database)

	if _, err := service.Recharge(ctx, userID, 200, "Top-up", "pay_123"); err != nil {
		t.Fatalf("recharge: %v", err)
	}
	replay, err := service.Recharge(ctx, userID, 200, "Top-up", "pay_123")
	if err != nil {
		t.Fatalf("retried recharge: %v", err)
	}
	if !replay.Replayed {
		t.Fatalf("expected replayed recharge")
	}

	account, err := service.Account(ctx, userID)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Balance != 200 || account.TotalRecharged != 200 {
		t.Fatalf("unexpected account: %+v", account)
	}

	history, err := service.History(ctx, userID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].TxnType != TypeRecharge {
		t.Fatalf("unexpected history: %+v", history)
	}

	if _, err := service.Account(ctx, userID+100); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
