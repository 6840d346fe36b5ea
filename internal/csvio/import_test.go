package csvio

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendbook/internal/core"
	"spendbook/internal/query"
	"spendbook/internal/services"
	"spendbook/internal/storage"
)

var alice = core.Session{Username: "alice", Role: core.RoleUser}

func newTestLedger(t *testing.T) (*services.LedgerService, *storage.Store) {
	t.Helper()

	s, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, alice.Username, "not-a-real-hash", alice.Role))
	require.NoError(t, s.AddCategory(ctx, "food"))
	require.NoError(t, s.AddPaymentMethod(ctx, "cash"))
	require.NoError(t, s.AddPaymentMethod(ctx, "credit card"))
	return services.NewLedgerService(s), s
}

const csvHeader = "amount,category,payment_method,date,description,tag,payment_detail_identifier\n"

func TestImportRejectsHeaderMismatch(t *testing.T) {
	ledger, _ := newTestLedger(t)
	im := NewImporter(ledger)

	_, err := im.Import(context.Background(), alice,
		strings.NewReader("amount,category,payment_method\n1.00,food,cash\n"))
	assert.ErrorIs(t, err, core.ErrHeaderMismatch)
}

func TestImportAcceptsCaseInsensitiveHeader(t *testing.T) {
	ledger, _ := newTestLedger(t)
	im := NewImporter(ledger)

	upper := "Amount, Category ,PAYMENT_METHOD,date,Description,Tag,Payment_Detail_Identifier\n"
	summary, err := im.Import(context.Background(), alice,
		strings.NewReader(upper+"1.00,food,cash,2024-03-01,lunch,work,\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestImportCountsRowOutcomes(t *testing.T) {
	ledger, s := newTestLedger(t)
	im := NewImporter(ledger)

	input := csvHeader +
		"12.50,food,cash,2024-03-01,lunch,work,\n" + // ok
		"12.50,Food,cash,2024-03-01,lunch,Work,\n" + // duplicate after normalization
		"9.99,food,cash\n" + // too few fields
		"8.00,unknown-cat,cash,2024-03-02,coffee,work,\n" + // unknown category
		"not-a-number,food,cash,2024-03-03,tea,work,\n" + // bad amount
		"20.00,food,credit card,2024-03-04,dinner,friends,1234567890123456\n" // ok, with detail

	summary, err := im.Import(context.Background(), alice, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 3, summary.Failed)
	assert.Equal(t, 1, summary.Duplicates)

	rows, err := s.ListExpenses(context.Background(), alice, query.Compiled{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestImportDedupIgnoresPaymentDetail(t *testing.T) {
	ledger, _ := newTestLedger(t)
	im := NewImporter(ledger)

	// Same six identifying fields, different detail: still a duplicate.
	input := csvHeader +
		"10.00,food,credit card,2024-03-01,lunch,work,1111222233334444\n" +
		"10.00,food,credit card,2024-03-01,lunch,work,5555666677778888\n"

	summary, err := im.Import(context.Background(), alice, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Duplicates)
}

func TestImportFailedRowDoesNotReserveDedupKey(t *testing.T) {
	ledger, _ := newTestLedger(t)
	im := NewImporter(ledger)

	// Only rows that actually insert mark their key as seen; a repeated
	// failing row is two failures, not a failure and a duplicate.
	input := csvHeader +
		"10.00,books,cash,2024-03-01,novel,leisure,\n" +
		"10.00,books,cash,2024-03-01,novel,leisure,\n"

	summary, err := im.Import(context.Background(), alice, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.Zero(t, summary.Duplicates)
}

func TestImportFileMissing(t *testing.T) {
	ledger, _ := newTestLedger(t)
	im := NewImporter(ledger)

	_, err := im.ImportFile(context.Background(), alice, filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
