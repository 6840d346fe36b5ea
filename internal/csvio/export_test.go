package csvio

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendbook/internal/core"
)

func TestExportFileMasksCardDetails(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	for _, in := range []core.ExpenseInput{
		{Amount: "30", Category: "food", PaymentMethod: "credit card",
			Date: "2024-03-02", Description: "dinner", Tag: "friends",
			PaymentDetail: "1234567890123456"},
		{Amount: "10.5", Category: "food", PaymentMethod: "cash",
			Date: "2024-03-01", Description: "lunch", Tag: "work"},
	} {
		_, err := ledger.AddExpense(ctx, alice, in, true)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	ex := NewExporter(s)
	n, err := ex.ExportFile(ctx, path, "date")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])
	// Sorted by date: the cash row first, unmasked empty detail.
	assert.Equal(t, []string{"10.50", "food", "cash", "2024-03-01", "lunch", "work", ""}, records[1])
	assert.Equal(t, []string{"30.00", "food", "credit card", "2024-03-02", "dinner", "friends", "************3456"}, records[2])
}

func TestExportFileInvalidSortFieldCreatesNoFile(t *testing.T) {
	_, s := newTestLedger(t)
	ex := NewExporter(s)

	path := filepath.Join(t.TempDir(), "out.csv")
	_, err := ex.ExportFile(context.Background(), path, "username")
	require.ErrorIs(t, err, core.ErrInvalidSortField)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "export file must not be created on a bad sort field")
}
