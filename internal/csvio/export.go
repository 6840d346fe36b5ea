package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"spendbook/internal/core"
	"spendbook/internal/storage"
)

// Exporter writes the masked, optionally sorted export of the full ledger.
type Exporter struct {
	store *storage.Store
}

func NewExporter(store *storage.Store) *Exporter {
	return &Exporter{store: store}
}

// ExportFile queries first and only then creates the file, so an invalid
// sort field aborts before any I/O. Returns the number of exported rows.
func (ex *Exporter) ExportFile(ctx context.Context, path, sortField string) (int, error) {
	rows, err := ex.store.ExportExpenses(ctx, sortField)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := writeRows(f, rows); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Export complete", "path", path, "rows", len(rows), "sort", sortField)
	return len(rows), nil
}

func writeRows(w io.Writer, rows []core.ExportRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		detail := r.PaymentDetail
		if isCardMethod(r.PaymentMethod) && detail != "" {
			detail = MaskDetail(detail)
		}
		if err := cw.Write([]string{
			core.FormatAmount(r.Amount),
			r.Category,
			r.PaymentMethod,
			r.Date,
			r.Description,
			r.Tag,
			detail,
		}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return cw.Error()
}
