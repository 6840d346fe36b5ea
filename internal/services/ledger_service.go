// Package services orchestrates the ledger write/read engine on top of the
// SQLite store.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"spendbook/internal/core"
	"spendbook/internal/query"
	"spendbook/internal/storage"
)

// LedgerService is the single entry point the command router uses for
// expense writes and filtered reads. Every method takes the session
// explicitly; the service holds no current-user state.
type LedgerService struct {
	store *storage.Store
}

func NewLedgerService(store *storage.Store) *LedgerService {
	return &LedgerService{store: store}
}

// AddExpense validates the raw input and runs the transactional write
// path. When bulk is set, success logging drops to Debug so batch imports
// stay quiet; errors are always surfaced.
func (s *LedgerService) AddExpense(ctx context.Context, sess core.Session, in core.ExpenseInput, bulk bool) (int64, error) {
	expense, err := in.Validate()
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", in.Amount, err)
	}

	id, err := s.store.CreateExpense(ctx, sess, expense)
	if err != nil {
		return 0, err
	}

	attrs := []any{
		"id", id,
		"username", sess.Username,
		"amount", expense.Amount.String(),
		"category", expense.Category,
	}
	if bulk {
		slog.DebugContext(ctx, "Expense added", attrs...)
	} else {
		slog.InfoContext(ctx, "Expense added", attrs...)
	}
	return id, nil
}

// UpdateExpense rewrites one field of an expense owned by the session user.
func (s *LedgerService) UpdateExpense(ctx context.Context, sess core.Session, id int64, field, value string) error {
	if err := s.store.UpdateExpense(ctx, sess, id, field, value); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense updated", "id", id, "field", field, "username", sess.Username)
	return nil
}

// DeleteExpense removes an expense owned by the session user together with
// its association rows.
func (s *LedgerService) DeleteExpense(ctx context.Context, sess core.Session, id int64) error {
	if err := s.store.DeleteExpense(ctx, sess, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id, "username", sess.Username)
	return nil
}

// ExpenseList is a filtered listing result with its computed total.
type ExpenseList struct {
	Rows  []core.ExpenseRow
	Total int
}

// ListExpenses compiles the constraints and runs the role-scoped listing
// query.
func (s *LedgerService) ListExpenses(ctx context.Context, sess core.Session, constraints []query.Constraint) (ExpenseList, error) {
	compiled, err := query.Compile(constraints)
	if err != nil {
		return ExpenseList{}, err
	}
	rows, err := s.store.ListExpenses(ctx, sess, compiled)
	if err != nil {
		return ExpenseList{}, err
	}
	return ExpenseList{Rows: rows, Total: len(rows)}, nil
}
