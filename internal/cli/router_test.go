package cli

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendbook/internal/core"
	"spendbook/internal/query"
	"spendbook/internal/storage"
)

func newTestRouter(t *testing.T) (*Router, *bytes.Buffer) {
	t.Helper()

	s, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	out := &bytes.Buffer{}
	r := NewRouter(s, bufio.NewReader(strings.NewReader("")), out)
	require.NoError(t, r.Bootstrap(context.Background(), "admin", "changeme-now"))
	return r, out
}

// execAll runs a sequence of commands, failing the test on the first error.
func execAll(t *testing.T, r *Router, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, r.Execute(context.Background(), line), "command %q", line)
	}
}

func TestExecuteRequiresLogin(t *testing.T) {
	r, _ := newTestRouter(t)

	err := r.Execute(context.Background(), "list_expenses")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLoginLogout(t *testing.T) {
	r, out := newTestRouter(t)
	ctx := context.Background()

	err := r.Execute(ctx, "login admin wrong-password")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	assert.Nil(t, r.Session())

	execAll(t, r, "login admin changeme-now")
	require.NotNil(t, r.Session())
	assert.True(t, r.Session().IsAdmin())
	assert.Contains(t, out.String(), "Logged in as admin")

	execAll(t, r, "logout")
	assert.Nil(t, r.Session())

	assert.ErrorIs(t, r.Execute(ctx, "logout"), ErrNotLoggedIn)
}

func TestPermissionTable(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	execAll(t, r, "login admin changeme-now")

	// add_expense exists but is not an admin command.
	err := r.Execute(ctx, "add_expense 10 food cash 2024-03-01 work")
	assert.ErrorIs(t, err, ErrNotPermitted)

	err = r.Execute(ctx, "frobnicate")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	execAll(t, r,
		"add_category food",
		"add_user alice password123 user",
		"logout",
		"login alice password123",
	)

	// list_users exists but is not a user command.
	err = r.Execute(ctx, "list_users")
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestExpenseLifecycle(t *testing.T) {
	r, out := newTestRouter(t)

	execAll(t, r,
		"login admin changeme-now",
		"add_category food",
		"add_payment_method cash",
		"add_user alice password123 user",
		"logout",
		"login alice password123",
		`add_expense 12,50 Food cash 2024-03-01 "lunch with team" work`,
	)
	assert.Contains(t, out.String(), "Expense recorded with id 1")

	out.Reset()
	execAll(t, r, "list_expenses")
	assert.Contains(t, out.String(), "12.50")
	assert.Contains(t, out.String(), "lunch with team")
	assert.Contains(t, out.String(), "Total expenses: 1")

	execAll(t, r, "update_expense 1 amount 20")
	out.Reset()
	execAll(t, r, "list_expenses amount >= 20")
	assert.Contains(t, out.String(), "Total expenses: 1")

	execAll(t, r, "delete_expense 1")
	out.Reset()
	execAll(t, r, "list_expenses")
	assert.Contains(t, out.String(), "Total expenses: 0")
}

func TestAddExpensePromptsForCardDetail(t *testing.T) {
	r, out := newTestRouter(t)

	execAll(t, r,
		"login admin changeme-now",
		"add_category food",
		`add_payment_method "credit card"`,
		"add_user alice password123 user",
		"logout",
		"login alice password123",
	)

	r.in = bufio.NewReader(strings.NewReader("1234567890123456\n"))
	execAll(t, r, `add_expense 30 food "credit card" 2024-03-02 dinner`)
	assert.Contains(t, out.String(), "Enter the payment detail identifier:")
	assert.Contains(t, out.String(), "Expense recorded")
}

func TestParseConstraints(t *testing.T) {
	constraints, err := ParseConstraints("amount > 10, category = food, month <= 7")
	require.NoError(t, err)
	assert.Equal(t, []query.Constraint{
		{Field: query.FieldAmount, Op: query.OpGT, Value: "10"},
		{Field: query.FieldCategory, Op: query.OpEQ, Value: "food"},
		{Field: query.FieldMonth, Op: query.OpLE, Value: "7"},
	}, constraints)

	constraints, err = ParseConstraints("  ")
	require.NoError(t, err)
	assert.Nil(t, constraints)

	_, err = ParseConstraints("amount 10")
	assert.ErrorIs(t, err, core.ErrInvalidFilter)

	_, err = ParseConstraints("= 10")
	assert.ErrorIs(t, err, core.ErrInvalidFilter)
}

func TestParseConstraintsKeepsTwoCharOperators(t *testing.T) {
	constraints, err := ParseConstraints("amount >= 10")
	require.NoError(t, err)
	require.Len(t, constraints, 1)
	assert.Equal(t, query.OpGE, constraints[0].Op)

	constraints, err = ParseConstraints("amount <= 10")
	require.NoError(t, err)
	require.Len(t, constraints, 1)
	assert.Equal(t, query.OpLE, constraints[0].Op)
}

func TestParseExportArgs(t *testing.T) {
	path, sortField, err := ParseExportArgs("/tmp/out.csv")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out.csv", path)
	assert.Equal(t, "date", sortField)

	path, sortField, err = ParseExportArgs("/tmp/out.csv, sort-on Amount")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out.csv", path)
	assert.Equal(t, "amount", sortField)

	_, _, err = ParseExportArgs("")
	assert.Error(t, err)

	_, _, err = ParseExportArgs("/tmp/out.csv, descending")
	assert.Error(t, err)
}

func TestReportPermissions(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	execAll(t, r, "login admin changeme-now", "add_user alice password123 user",
		"logout", "login alice password123")

	// highest_spender_per_month is admin-only.
	err := r.Execute(ctx, "report highest_spender_per_month")
	assert.ErrorIs(t, err, ErrNotPermitted)

	execAll(t, r, "logout", "login admin changeme-now")
	execAll(t, r, "report highest_spender_per_month")

	// category_spending is user-only.
	err = r.Execute(ctx, "report category_spending food")
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestHelpListsRoleCommands(t *testing.T) {
	r, out := newTestRouter(t)

	execAll(t, r, "login admin changeme-now", "help")
	assert.Contains(t, out.String(), "add_user")
	assert.NotContains(t, out.String(), "add_expense")
}
