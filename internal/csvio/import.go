// Package csvio implements the bulk CSV import and masked export paths.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"spendbook/internal/core"
	"spendbook/internal/services"
)

// header is the fixed 7-column import/export contract.
var header = []string{
	"amount", "category", "payment_method", "date",
	"description", "tag", "payment_detail_identifier",
}

// ImportSummary reports the outcome of one import run. Duplicates are
// counted separately from hard errors.
type ImportSummary struct {
	Succeeded  int
	Failed     int
	Duplicates int
}

// Importer feeds validated CSV rows through the ledger write path.
type Importer struct {
	ledger *services.LedgerService
}

func NewImporter(ledger *services.LedgerService) *Importer {
	return &Importer{ledger: ledger}
}

// ImportFile reads the file and imports each row. File-level problems
// (missing file, header mismatch) abort before any write; row-level
// problems are counted and the batch continues.
func (im *Importer) ImportFile(ctx context.Context, sess core.Session, path string) (ImportSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	return im.Import(ctx, sess, f)
}

// Import reads rows from r and writes them through the create operation
// with the bulk flag set.
func (im *Importer) Import(ctx context.Context, sess core.Session, r io.Reader) (ImportSummary, error) {
	batch := uuid.New().String()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // per-row field counting is ours

	head, err := cr.Read()
	if err != nil {
		return ImportSummary{}, fmt.Errorf("read csv header: %w", err)
	}
	if !headerMatches(head) {
		return ImportSummary{}, core.ErrHeaderMismatch
	}

	slog.InfoContext(ctx, "Import started", "batch", batch, "username", sess.Username)

	var (
		summary ImportSummary
		seen    = make(map[string]bool)
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read csv row %d: %w", line, err)
		}
		if len(row) < 6 {
			slog.WarnContext(ctx, "Skipping malformed row", "batch", batch, "line", line, "fields", len(row))
			summary.Failed++
			continue
		}

		in := core.ExpenseInput{
			Amount:        row[0],
			Category:      core.NormalizeName(row[1]),
			PaymentMethod: core.NormalizeName(row[2]),
			Date:          row[3],
			Description:   row[4],
			Tag:           core.NormalizeName(row[5]),
		}
		if len(row) >= 7 {
			in.PaymentDetail = row[6]
		}

		key := dedupKey(in)
		if seen[key] {
			slog.DebugContext(ctx, "Skipping duplicate row", "batch", batch, "line", line)
			summary.Duplicates++
			continue
		}

		if _, err := im.ledger.AddExpense(ctx, sess, in, true); err != nil {
			slog.WarnContext(ctx, "Failed to import row", "batch", batch, "line", line, "error", err)
			summary.Failed++
			continue
		}
		seen[key] = true
		summary.Succeeded++
	}

	slog.InfoContext(ctx, "Import complete", "batch", batch,
		"succeeded", summary.Succeeded, "failed", summary.Failed, "duplicates", summary.Duplicates)
	return summary, nil
}

// dedupKey builds the normalized 6-tuple identifying a row within one
// batch. The payment detail is deliberately excluded.
func dedupKey(in core.ExpenseInput) string {
	return strings.Join([]string{
		strings.TrimSpace(in.Amount),
		in.Category,
		in.PaymentMethod,
		in.Date,
		in.Description,
		in.Tag,
	}, "\x1f")
}

func headerMatches(got []string) bool {
	if len(got) != len(header) {
		return false
	}
	for i, col := range got {
		if strings.ToLower(strings.TrimSpace(col)) != header[i] {
			return false
		}
	}
	return true
}
