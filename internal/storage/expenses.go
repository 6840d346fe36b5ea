package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"spendbook/internal/core"
	"spendbook/internal/query"
)

// listJoin is the fixed join shape for filtered listing. LEFT JOINs so an
// expense with a dangling reference still surfaces (as "N/A") instead of
// silently disappearing.
const listJoin = `
SELECT e.expense_id, e.date, e.amount, e.description,
       c.category_name, t.tag_name, pm.payment_method_name, ue.username
FROM Expense e
LEFT JOIN category_expense ce ON e.expense_id = ce.expense_id
LEFT JOIN Categories c ON ce.category_id = c.category_id
LEFT JOIN tag_expense te ON e.expense_id = te.expense_id
LEFT JOIN Tags t ON te.tag_id = t.tag_id
LEFT JOIN payment_method_expense pme ON e.expense_id = pme.expense_id
LEFT JOIN Payment_Method pm ON pme.payment_method_id = pm.payment_method_id
LEFT JOIN user_expense ue ON e.expense_id = ue.expense_id`

// exportJoin is deliberately an INNER join: rows missing any reference are
// excluded from export, unlike listing.
const exportJoin = `
SELECT e.amount, c.category_name, pm.payment_method_name,
       e.date, e.description, t.tag_name, pme.payment_detail_identifier
FROM Expense e
JOIN category_expense ce ON e.expense_id = ce.expense_id
JOIN Categories c ON ce.category_id = c.category_id
JOIN payment_method_expense pme ON e.expense_id = pme.expense_id
JOIN Payment_Method pm ON pme.payment_method_id = pm.payment_method_id
JOIN tag_expense te ON e.expense_id = te.expense_id
JOIN Tags t ON te.tag_id = t.tag_id`

// exportSortColumns is the closed set of export sort fields.
var exportSortColumns = map[string]string{
	"amount":                    "e.amount",
	"category":                  "c.category_name",
	"payment_method":            "pm.payment_method_name",
	"date":                      "e.date",
	"description":               "e.description",
	"tag":                       "t.tag_name",
	"payment_detail_identifier": "pme.payment_detail_identifier",
}

// CreateExpense inserts the expense row and its four association rows as
// one transaction. Either all five rows exist afterwards or none do; the
// tag auto-creation rides on the same transaction, so a failed write never
// leaves a stray tag behind.
func (s *Store) CreateExpense(ctx context.Context, sess core.Session, e core.Expense) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	amount, _ := e.Amount.Float64()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO Expense (date, amount, description) VALUES (?, ?, ?)",
		e.Date, amount, e.Description)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	expenseID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}

	categoryID, err := s.categoryID(ctx, tx, e.Category)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO category_expense (category_id, expense_id) VALUES (?, ?)",
		categoryID, expenseID); err != nil {
		return 0, fmt.Errorf("insert category link: %w", err)
	}

	tagID, err := s.tagID(ctx, tx, e.Tag)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tag_expense (tag_id, expense_id) VALUES (?, ?)",
		tagID, expenseID); err != nil {
		return 0, fmt.Errorf("insert tag link: %w", err)
	}

	paymentMethodID, err := s.paymentMethodID(ctx, tx, e.PaymentMethod)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO payment_method_expense (payment_method_id, expense_id, payment_detail_identifier) VALUES (?, ?, ?)",
		paymentMethodID, expenseID, e.PaymentDetail); err != nil {
		return 0, fmt.Errorf("insert payment method link: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_expense (username, expense_id) VALUES (?, ?)",
		sess.Username, expenseID); err != nil {
		return 0, fmt.Errorf("insert user link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return expenseID, nil
}

// UpdateExpense rewrites one field of an owned expense. Scalar fields write
// through to the Expense row; reference fields repoint the association row,
// auto-creating tags only.
func (s *Store) UpdateExpense(ctx context.Context, sess core.Session, id int64, field, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	owned, err := s.ownsExpense(ctx, tx, id, sess.Username)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("expense %d: %w", id, core.ErrNotFoundOrForbidden)
	}

	switch strings.ToLower(field) {
	case "amount":
		_, err = tx.ExecContext(ctx, "UPDATE Expense SET amount = ? WHERE expense_id = ?", value, id)
	case "description":
		_, err = tx.ExecContext(ctx, "UPDATE Expense SET description = ? WHERE expense_id = ?", value, id)
	case "date":
		_, err = tx.ExecContext(ctx, "UPDATE Expense SET date = ? WHERE expense_id = ?", value, id)
	case "category":
		var categoryID int64
		categoryID, err = s.categoryID(ctx, tx, value)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE category_expense SET category_id = ? WHERE expense_id = ?", categoryID, id)
	case "tag":
		var tagID int64
		tagID, err = s.tagID(ctx, tx, value)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE tag_expense SET tag_id = ? WHERE expense_id = ?", tagID, id)
	case "payment_method":
		var paymentMethodID int64
		paymentMethodID, err = s.paymentMethodID(ctx, tx, value)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE payment_method_expense SET payment_method_id = ? WHERE expense_id = ?", paymentMethodID, id)
	default:
		return fmt.Errorf("%q: %w", field, core.ErrInvalidField)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", field, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteExpense removes the four association rows and then the expense row,
// in that order, as one transaction.
func (s *Store) DeleteExpense(ctx context.Context, sess core.Session, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	owned, err := s.ownsExpense(ctx, tx, id, sess.Username)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("expense %d: %w", id, core.ErrNotFoundOrForbidden)
	}

	for _, stmt := range []string{
		"DELETE FROM category_expense WHERE expense_id = ?",
		"DELETE FROM tag_expense WHERE expense_id = ?",
		"DELETE FROM payment_method_expense WHERE expense_id = ?",
		"DELETE FROM user_expense WHERE expense_id = ?",
		"DELETE FROM Expense WHERE expense_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) ownsExpense(ctx context.Context, q queryer, id int64, username string) (bool, error) {
	var n int64
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_expense WHERE expense_id = ? AND username = ?",
		id, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("ownership check: %w", err)
	}
	return n > 0, nil
}

// ListExpenses runs the fixed listing join constrained by the compiled
// filter. Non-admin sessions only ever see their own rows; admins see all
// rows with the owning username surfaced.
func (s *Store) ListExpenses(ctx context.Context, sess core.Session, filter query.Compiled) ([]core.ExpenseRow, error) {
	var (
		conds []string
		args  []any
	)
	if !sess.IsAdmin() {
		conds = append(conds,
			"e.expense_id IN (SELECT expense_id FROM user_expense WHERE username = ?)")
		args = append(args, sess.Username)
	}
	conds = append(conds, filter.Clauses...)
	args = append(args, filter.Args...)

	q := listJoin
	if len(conds) > 0 {
		q += "\nWHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseRow
	for rows.Next() {
		var (
			r             core.ExpenseRow
			category      sql.NullString
			tag           sql.NullString
			paymentMethod sql.NullString
			username      sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Date, &r.Amount, &r.Description,
			&category, &tag, &paymentMethod, &username); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		r.Category = core.Coalesce(category.String)
		r.Tag = core.Coalesce(tag.String)
		r.PaymentMethod = core.Coalesce(paymentMethod.String)
		r.Username = core.Coalesce(username.String)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense rows: %w", err)
	}
	return out, nil
}

// ExportExpenses runs the export inner join with an optional validated
// single-field sort. An empty sortField means store order.
func (s *Store) ExportExpenses(ctx context.Context, sortField string) ([]core.ExportRow, error) {
	q := exportJoin
	if sortField != "" {
		col, ok := exportSortColumns[strings.ToLower(sortField)]
		if !ok {
			return nil, fmt.Errorf("%q: %w", sortField, core.ErrInvalidSortField)
		}
		q += "\nORDER BY " + col
	}

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ExportRow
	for rows.Next() {
		var r core.ExportRow
		if err := rows.Scan(&r.Amount, &r.Category, &r.PaymentMethod,
			&r.Date, &r.Description, &r.Tag, &r.PaymentDetail); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}
	return out, nil
}
