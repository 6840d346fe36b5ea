// Package report issues read-only aggregate queries over the ledger. It
// shares the relational store with the write engine but builds its own
// queries; the listing filter compiler is not involved.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"spendbook/internal/core"
	"spendbook/internal/storage"
)

var (
	ErrInvalidLimit = errors.New("limit must be a positive integer")
	ErrInvalidDate  = errors.New("dates must be in the format YYYY-MM-DD")
)

const dateFormat = "2006-01-02"

// Reporter runs aggregate queries against the shared store.
type Reporter struct {
	store *storage.Store
}

func New(store *storage.Store) *Reporter {
	return &Reporter{store: store}
}

type (
	// CategoryStats summarizes spending within one category, with the
	// category's share of the caller's overall spending.
	CategoryStats struct {
		Category string
		Total    float64
		Count    int64
		Max      float64
		Min      float64
		Avg      float64
		Share    float64 // percent of overall spending
	}

	// MonthlyCategoryTotal is one cell of the month x category matrix.
	MonthlyCategoryTotal struct {
		Month    string
		Category string
		Total    float64
	}

	// MonthlySpender is the highest spender for one month.
	MonthlySpender struct {
		Month    string
		Username string
		Total    float64
	}

	// NameTotal pairs a reference name with a usage count and total.
	NameTotal struct {
		Name  string
		Count int64
		Total float64
	}

	// DetailUsage aggregates expenses per payment detail identifier. The
	// identifier is already display-masked for card methods.
	DetailUsage struct {
		Detail        string
		PaymentMethod string
		Count         int64
		Total         float64
		Avg           float64
	}
)

// scope appends the per-user restriction for non-admin sessions. The join
// alias ue must be present in the surrounding query.
func scope(sess core.Session, conds []string, args []any) ([]string, []any) {
	if sess.IsAdmin() {
		return conds, args
	}
	return append(conds, "ue.username = ?"), append(args, sess.Username)
}

// TopExpenses returns the n largest expenses within the date range,
// largest first. Admin sessions see all users' rows.
func (r *Reporter) TopExpenses(ctx context.Context, sess core.Session, n int, start, end string) ([]core.ExpenseRow, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	for _, d := range []string{start, end} {
		if _, err := time.Parse(dateFormat, d); err != nil {
			return nil, fmt.Errorf("%q: %w", d, ErrInvalidDate)
		}
	}

	conds := []string{"e.date BETWEEN ? AND ?"}
	args := []any{start, end}
	conds, args = scope(sess, conds, args)
	args = append(args, n)

	q := `
SELECT e.expense_id, e.date, e.amount, e.description,
       c.category_name, t.tag_name, pm.payment_method_name, ue.username
FROM Expense e
LEFT JOIN category_expense ce ON e.expense_id = ce.expense_id
LEFT JOIN Categories c ON ce.category_id = c.category_id
LEFT JOIN tag_expense te ON e.expense_id = te.expense_id
LEFT JOIN Tags t ON te.tag_id = t.tag_id
LEFT JOIN payment_method_expense pme ON e.expense_id = pme.expense_id
LEFT JOIN Payment_Method pm ON pme.payment_method_id = pm.payment_method_id
LEFT JOIN user_expense ue ON e.expense_id = ue.expense_id
WHERE ` + strings.Join(conds, " AND ") + `
ORDER BY e.amount DESC LIMIT ?`

	rows, err := r.store.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("top expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseRow
	for rows.Next() {
		var (
			row                             core.ExpenseRow
			category, tag, method, username sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.Date, &row.Amount, &row.Description,
			&category, &tag, &method, &username); err != nil {
			return nil, fmt.Errorf("scan top expense: %w", err)
		}
		row.Category = core.Coalesce(category.String)
		row.Tag = core.Coalesce(tag.String)
		row.PaymentMethod = core.Coalesce(method.String)
		row.Username = core.Coalesce(username.String)
		out = append(out, row)
	}
	return out, rows.Err()
}

// CategorySpending computes the summary statistics for one category and
// its share of the caller's overall spending. The two aggregate queries
// are independent and run concurrently.
func (r *Reporter) CategorySpending(ctx context.Context, sess core.Session, category string) (CategoryStats, error) {
	category = core.NormalizeName(category)
	stats := CategoryStats{Category: category}

	var overall float64
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		conds := []string{"c.category_name = ?"}
		args := []any{category}
		conds, args = scope(sess, conds, args)

		q := `
SELECT COALESCE(SUM(e.amount), 0), COUNT(e.expense_id),
       COALESCE(MAX(e.amount), 0), COALESCE(MIN(e.amount), 0), COALESCE(AVG(e.amount), 0)
FROM Expense e
JOIN category_expense ce ON e.expense_id = ce.expense_id
JOIN Categories c ON ce.category_id = c.category_id
JOIN user_expense ue ON e.expense_id = ue.expense_id
WHERE ` + strings.Join(conds, " AND ")

		return r.store.DB().QueryRowContext(gctx, q, args...).
			Scan(&stats.Total, &stats.Count, &stats.Max, &stats.Min, &stats.Avg)
	})

	g.Go(func() error {
		conds := []string{"1=1"}
		args := []any{}
		conds, args = scope(sess, conds, args)

		q := `
SELECT COALESCE(SUM(e.amount), 0)
FROM Expense e
JOIN user_expense ue ON e.expense_id = ue.expense_id
WHERE ` + strings.Join(conds, " AND ")

		return r.store.DB().QueryRowContext(gctx, q, args...).Scan(&overall)
	})

	if err := g.Wait(); err != nil {
		return CategoryStats{}, fmt.Errorf("category spending: %w", err)
	}
	if overall > 0 {
		stats.Share = stats.Total / overall * 100
	}
	return stats, nil
}

// AboveAverageExpenses lists the session user's expenses that exceed that
// user's own average amount.
func (r *Reporter) AboveAverageExpenses(ctx context.Context, sess core.Session) ([]core.ExpenseRow, error) {
	q := `
SELECT e.expense_id, e.date, e.amount, e.description,
       c.category_name, t.tag_name, pm.payment_method_name, ue.username
FROM Expense e
LEFT JOIN category_expense ce ON e.expense_id = ce.expense_id
LEFT JOIN Categories c ON ce.category_id = c.category_id
LEFT JOIN tag_expense te ON e.expense_id = te.expense_id
LEFT JOIN Tags t ON te.tag_id = t.tag_id
LEFT JOIN payment_method_expense pme ON e.expense_id = pme.expense_id
LEFT JOIN Payment_Method pm ON pme.payment_method_id = pm.payment_method_id
JOIN user_expense ue ON e.expense_id = ue.expense_id
WHERE ue.username = ?
  AND e.amount > (
      SELECT AVG(e2.amount) FROM Expense e2
      JOIN user_expense ue2 ON e2.expense_id = ue2.expense_id
      WHERE ue2.username = ?)
ORDER BY e.amount DESC`

	rows, err := r.store.DB().QueryContext(ctx, q, sess.Username, sess.Username)
	if err != nil {
		return nil, fmt.Errorf("above average expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseRow
	for rows.Next() {
		var (
			row                             core.ExpenseRow
			category, tag, method, username sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.Date, &row.Amount, &row.Description,
			&category, &tag, &method, &username); err != nil {
			return nil, fmt.Errorf("scan above-average expense: %w", err)
		}
		row.Category = core.Coalesce(category.String)
		row.Tag = core.Coalesce(tag.String)
		row.PaymentMethod = core.Coalesce(method.String)
		row.Username = core.Coalesce(username.String)
		out = append(out, row)
	}
	return out, rows.Err()
}

// MonthlyCategorySpending returns per-month, per-category totals for the
// caller (all users for admins), ordered by month then total descending.
func (r *Reporter) MonthlyCategorySpending(ctx context.Context, sess core.Session) ([]MonthlyCategoryTotal, error) {
	conds := []string{"1=1"}
	args := []any{}
	conds, args = scope(sess, conds, args)

	q := `
SELECT strftime('%m', e.date) AS month, c.category_name, SUM(e.amount) AS total
FROM Expense e
JOIN category_expense ce ON e.expense_id = ce.expense_id
JOIN Categories c ON ce.category_id = c.category_id
JOIN user_expense ue ON e.expense_id = ue.expense_id
WHERE ` + strings.Join(conds, " AND ") + `
GROUP BY month, c.category_name
ORDER BY month, total DESC`

	rows, err := r.store.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly category spending: %w", err)
	}
	defer rows.Close()

	var out []MonthlyCategoryTotal
	for rows.Next() {
		var m MonthlyCategoryTotal
		if err := rows.Scan(&m.Month, &m.Category, &m.Total); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// HighestSpenderPerMonth names the user with the largest monthly total for
// each month. Admin-only by the router's permission table.
func (r *Reporter) HighestSpenderPerMonth(ctx context.Context) ([]MonthlySpender, error) {
	q := `
SELECT month, username, total FROM (
    SELECT strftime('%m', e.date) AS month, ue.username AS username,
           SUM(e.amount) AS total,
           RANK() OVER (PARTITION BY strftime('%m', e.date) ORDER BY SUM(e.amount) DESC) AS rnk
    FROM Expense e
    JOIN user_expense ue ON e.expense_id = ue.expense_id
    GROUP BY month, ue.username
) WHERE rnk = 1
ORDER BY month`

	rows, err := r.store.DB().QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("highest spender per month: %w", err)
	}
	defer rows.Close()

	var out []MonthlySpender
	for rows.Next() {
		var m MonthlySpender
		if err := rows.Scan(&m.Month, &m.Username, &m.Total); err != nil {
			return nil, fmt.Errorf("scan monthly spender: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PaymentMethodUsage counts and totals expenses per payment method.
func (r *Reporter) PaymentMethodUsage(ctx context.Context, sess core.Session) ([]NameTotal, error) {
	return r.nameTotals(ctx, sess, `
SELECT pm.payment_method_name, COUNT(e.expense_id), COALESCE(SUM(e.amount), 0)
FROM Expense e
JOIN payment_method_expense pme ON e.expense_id = pme.expense_id
JOIN Payment_Method pm ON pme.payment_method_id = pm.payment_method_id
JOIN user_expense ue ON e.expense_id = ue.expense_id`,
		"GROUP BY pm.payment_method_name ORDER BY COUNT(e.expense_id) DESC")
}

// TagExpenses counts and totals expenses per tag.
func (r *Reporter) TagExpenses(ctx context.Context, sess core.Session) ([]NameTotal, error) {
	return r.nameTotals(ctx, sess, `
SELECT t.tag_name, COUNT(e.expense_id), COALESCE(SUM(e.amount), 0)
FROM Expense e
JOIN tag_expense te ON e.expense_id = te.expense_id
JOIN Tags t ON te.tag_id = t.tag_id
JOIN user_expense ue ON e.expense_id = ue.expense_id`,
		"GROUP BY t.tag_name ORDER BY SUM(e.amount) DESC")
}

// FrequentCategories counts expenses per category, most frequent first.
func (r *Reporter) FrequentCategories(ctx context.Context, sess core.Session) ([]NameTotal, error) {
	return r.nameTotals(ctx, sess, `
SELECT c.category_name, COUNT(e.expense_id), COALESCE(SUM(e.amount), 0)
FROM Expense e
JOIN category_expense ce ON e.expense_id = ce.expense_id
JOIN Categories c ON ce.category_id = c.category_id
JOIN user_expense ue ON e.expense_id = ue.expense_id`,
		"GROUP BY c.category_name ORDER BY COUNT(e.expense_id) DESC")
}

func (r *Reporter) nameTotals(ctx context.Context, sess core.Session, base, tail string) ([]NameTotal, error) {
	conds := []string{"1=1"}
	args := []any{}
	conds, args = scope(sess, conds, args)

	q := base + "\nWHERE " + strings.Join(conds, " AND ") + "\n" + tail
	rows, err := r.store.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate totals: %w", err)
	}
	defer rows.Close()

	var out []NameTotal
	for rows.Next() {
		var nt NameTotal
		if err := rows.Scan(&nt.Name, &nt.Count, &nt.Total); err != nil {
			return nil, fmt.Errorf("scan aggregate total: %w", err)
		}
		out = append(out, nt)
	}
	return out, rows.Err()
}

// PaymentDetailUsage aggregates the session user's expenses per payment
// detail identifier. Card details are display-masked to their first and
// last two characters.
func (r *Reporter) PaymentDetailUsage(ctx context.Context, sess core.Session) ([]DetailUsage, error) {
	q := `
SELECT pme.payment_detail_identifier, pm.payment_method_name,
       COUNT(e.expense_id), SUM(e.amount), AVG(e.amount)
FROM Expense e
JOIN payment_method_expense pme ON e.expense_id = pme.expense_id
JOIN Payment_Method pm ON pme.payment_method_id = pm.payment_method_id
JOIN user_expense ue ON e.expense_id = ue.expense_id
WHERE pme.payment_detail_identifier != '' AND ue.username = ?
GROUP BY pme.payment_detail_identifier
ORDER BY COUNT(e.expense_id) DESC`

	rows, err := r.store.DB().QueryContext(ctx, q, sess.Username)
	if err != nil {
		return nil, fmt.Errorf("payment detail usage: %w", err)
	}
	defer rows.Close()

	var out []DetailUsage
	for rows.Next() {
		var d DetailUsage
		if err := rows.Scan(&d.Detail, &d.PaymentMethod, &d.Count, &d.Total, &d.Avg); err != nil {
			return nil, fmt.Errorf("scan detail usage: %w", err)
		}
		if strings.HasSuffix(strings.ToLower(d.PaymentMethod), "card") {
			d.Detail = maskForDisplay(d.Detail)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// maskForDisplay keeps the first and last two characters of a detail
// identifier; short identifiers are fully masked.
func maskForDisplay(detail string) string {
	if detail == "" {
		return ""
	}
	if len(detail) <= 4 {
		return strings.Repeat("*", len(detail))
	}
	return detail[:2] + strings.Repeat("*", len(detail)-4) + detail[len(detail)-2:]
}
