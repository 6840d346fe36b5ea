package storage

import (
	"context"
	"fmt"
	"log/slog"

	"spendbook/internal/core"
)

// AddCategory inserts a category name, normalized to trimmed lowercase.
// Names are permanent once created; there is no delete.
func (s *Store) AddCategory(ctx context.Context, name string) error {
	return s.addName(ctx, "Categories", "category_name", name)
}

// AddPaymentMethod inserts a payment method name, normalized to trimmed
// lowercase.
func (s *Store) AddPaymentMethod(ctx context.Context, name string) error {
	return s.addName(ctx, "Payment_Method", "payment_method_name", name)
}

func (s *Store) addName(ctx context.Context, table, column, name string) error {
	name = core.NormalizeName(name)
	// ON CONFLICT instead of parsing driver-specific constraint errors:
	// zero rows affected means the name was already present.
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (?) ON CONFLICT DO NOTHING", table, column),
		name)
	if err != nil {
		return fmt.Errorf("insert %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", column, name, core.ErrAlreadyExists)
	}
	slog.InfoContext(ctx, "Reference name added", "table", table, "name", name)
	return nil
}

// ListCategories returns all category names in store order.
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, "SELECT category_name FROM Categories")
}

// ListPaymentMethods returns all payment method names in store order.
func (s *Store) ListPaymentMethods(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, "SELECT payment_method_name FROM Payment_Method")
}

func (s *Store) listNames(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

// categoryID resolves a category name to its id, consulting the id cache
// first. Returns core.ErrUnknownCategory when absent.
func (s *Store) categoryID(ctx context.Context, q queryer, name string) (int64, error) {
	key := "category:" + core.NormalizeName(name)
	if id, ok := s.ids.Get(key); ok {
		return id, nil
	}
	var id int64
	err := q.QueryRowContext(ctx,
		"SELECT category_id FROM Categories WHERE category_name = ?", name).Scan(&id)
	if err != nil {
		return 0, lookupErr(err, core.ErrUnknownCategory, name)
	}
	s.ids.Set(key, id)
	return id, nil
}

// paymentMethodID resolves a payment method name to its id through the
// same cache. Returns core.ErrUnknownPaymentMethod when absent.
func (s *Store) paymentMethodID(ctx context.Context, q queryer, name string) (int64, error) {
	key := "payment_method:" + core.NormalizeName(name)
	if id, ok := s.ids.Get(key); ok {
		return id, nil
	}
	var id int64
	err := q.QueryRowContext(ctx,
		"SELECT payment_method_id FROM Payment_Method WHERE payment_method_name = ?", name).Scan(&id)
	if err != nil {
		return 0, lookupErr(err, core.ErrUnknownPaymentMethod, name)
	}
	s.ids.Set(key, id)
	return id, nil
}

// tagID resolves a tag by name, creating it when absent. Tags are the only
// auto-vivifying reference entity, and the insert runs on the caller's
// transaction so a later rollback also undoes the tag.
func (s *Store) tagID(ctx context.Context, q queryer, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		"SELECT tag_id FROM Tags WHERE tag_name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !isNoRows(err) {
		return 0, fmt.Errorf("lookup tag: %w", err)
	}
	res, err := q.ExecContext(ctx, "INSERT INTO Tags (tag_name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("create tag: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("tag id: %w", err)
	}
	return id, nil
}
