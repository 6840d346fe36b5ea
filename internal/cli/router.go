package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"spendbook/internal/auth"
	"spendbook/internal/core"
	"spendbook/internal/csvio"
	"spendbook/internal/query"
	"spendbook/internal/report"
	"spendbook/internal/services"
	"spendbook/internal/storage"
)

var (
	ErrNotLoggedIn    = errors.New("please login first")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotPermitted   = errors.New("command not permitted for your role")
)

// operators in match order: two-character forms before their one-character
// prefixes, so "<=" never parses as "<" followed by "=".
var operators = []string{"<=", ">=", "=", "<", ">"}

// Router tokenizes command lines, enforces the role permission table and
// dispatches into the ledger engine. The session is explicit state set by
// login and cleared by logout.
type Router struct {
	auth     *auth.Authenticator
	store    *storage.Store
	ledger   *services.LedgerService
	importer *csvio.Importer
	exporter *csvio.Exporter
	reporter *report.Reporter

	in   *bufio.Reader
	out  io.Writer
	sess *core.Session
}

// NewRouter wires the full command surface over one store. The reader is
// shared with the surrounding loop and consulted only for interactive
// follow-up prompts (the payment detail identifier).
func NewRouter(store *storage.Store, in *bufio.Reader, out io.Writer) *Router {
	ledger := services.NewLedgerService(store)
	return &Router{
		auth:     auth.New(store),
		store:    store,
		ledger:   ledger,
		importer: csvio.NewImporter(ledger),
		exporter: csvio.NewExporter(store),
		reporter: report.New(store),
		in:       in,
		out:      out,
	}
}

// Session returns the active session, or nil when logged out.
func (r *Router) Session() *core.Session {
	return r.sess
}

// Bootstrap creates the initial admin account when the user table is empty.
func (r *Router) Bootstrap(ctx context.Context, adminUser, adminPassword string) error {
	return r.auth.EnsureBootstrapAdmin(ctx, adminUser, adminPassword)
}

// Execute runs one command line. Errors are returned, not printed, so the
// surrounding loop decides presentation and tests can assert on them.
func (r *Router) Execute(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(tokens[0]), tokens[1:]

	// login and logout work regardless of session state.
	switch cmd {
	case "login":
		return r.login(ctx, args)
	case "logout":
		return r.logout()
	}

	if r.sess == nil {
		return ErrNotLoggedIn
	}
	sess := *r.sess

	usage, allowed := permissions[sess.Role][cmd]
	if !allowed {
		if commandKnown(cmd) {
			return fmt.Errorf("%s: %w", cmd, ErrNotPermitted)
		}
		return fmt.Errorf("%q: %w", cmd, ErrUnknownCommand)
	}

	switch cmd {
	case "help":
		r.printHelp(sess)
		return nil
	case "add_user":
		return r.addUser(ctx, usage, args)
	case "list_users":
		return r.listUsers(ctx)
	case "add_category":
		return r.addName(ctx, usage, args, r.store.AddCategory, "Category")
	case "add_payment_method":
		return r.addName(ctx, usage, args, r.store.AddPaymentMethod, "Payment method")
	case "list_categories":
		return r.listNames(ctx, r.store.ListCategories, "No categories yet.")
	case "list_payment_methods":
		return r.listNames(ctx, r.store.ListPaymentMethods, "No payment methods yet.")
	case "add_expense":
		return r.addExpense(ctx, sess, usage, args)
	case "update_expense":
		return r.updateExpense(ctx, sess, usage, args)
	case "delete_expense":
		return r.deleteExpense(ctx, sess, usage, args)
	case "list_expenses":
		return r.listExpenses(ctx, sess, rawArgs(line, tokens[0]))
	case "import_expenses":
		return r.importExpenses(ctx, sess, usage, args)
	case "export_csv":
		return r.exportCSV(ctx, usage, rawArgs(line, tokens[0]))
	case "report":
		return r.report(ctx, sess, args)
	}
	return fmt.Errorf("%q: %w", cmd, ErrUnknownCommand)
}

// rawArgs strips the command word from the line, keeping the argument text
// verbatim. The comma-separated grammars (filters, export options) parse
// the raw text rather than shell tokens.
func rawArgs(line, cmd string) string {
	trimmed := strings.TrimSpace(line)
	return strings.TrimSpace(strings.TrimPrefix(trimmed, cmd))
}

func (r *Router) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <username> <password>")
	}
	sess, err := r.auth.Authenticate(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	r.sess = &sess
	fmt.Fprintf(r.out, "Logged in as %s (%s).\n", sess.Username, sess.Role)
	return nil
}

func (r *Router) logout() error {
	if r.sess == nil {
		return ErrNotLoggedIn
	}
	fmt.Fprintf(r.out, "Logged out %s.\n", r.sess.Username)
	r.sess = nil
	return nil
}

func (r *Router) printHelp(sess core.Session) {
	fmt.Fprintln(r.out, "Available commands:")
	for _, usage := range sortedValues(permissions[sess.Role]) {
		fmt.Fprintf(r.out, "  %s\n", usage)
	}
	fmt.Fprintln(r.out, "Report types:")
	for _, usage := range sortedValues(reportTypes[sess.Role]) {
		fmt.Fprintf(r.out, "  %s\n", usage)
	}
	fmt.Fprintln(r.out, "  logout")
	fmt.Fprintln(r.out, "  exit")
}

func sortedValues(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

func (r *Router) addUser(ctx context.Context, usage string, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: %s", usage)
	}
	if err := r.auth.Register(ctx, args[0], args[1], core.Role(strings.ToLower(args[2]))); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "User %s created.\n", args[0])
	return nil
}

func (r *Router) listUsers(ctx context.Context) error {
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	renderUsers(r.out, users)
	return nil
}

func (r *Router) addName(ctx context.Context, usage string, args []string, add func(context.Context, string) error, label string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", usage)
	}
	if err := add(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s %q added.\n", label, core.NormalizeName(args[0]))
	return nil
}

func (r *Router) listNames(ctx context.Context, list func(context.Context) ([]string, error), empty string) error {
	names, err := list(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(r.out, empty)
		return nil
	}
	for _, name := range names {
		fmt.Fprintf(r.out, "  %s\n", name)
	}
	return nil
}

func (r *Router) addExpense(ctx context.Context, sess core.Session, usage string, args []string) error {
	if len(args) != 5 && len(args) != 6 {
		return fmt.Errorf("usage: %s", usage)
	}
	in := core.ExpenseInput{
		Amount:        args[0],
		Category:      core.NormalizeName(args[1]),
		PaymentMethod: core.NormalizeName(args[2]),
		Date:          args[3],
	}
	if len(args) == 6 {
		in.Description = args[4]
		in.Tag = core.NormalizeName(args[5])
	} else {
		in.Tag = core.NormalizeName(args[4])
	}

	if strings.HasSuffix(in.PaymentMethod, "card") {
		fmt.Fprint(r.out, "Enter the payment detail identifier: ")
		detail, err := r.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read payment detail: %w", err)
		}
		in.PaymentDetail = strings.TrimSpace(detail)
	}

	id, err := r.ledger.AddExpense(ctx, sess, in, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Expense recorded with id %d.\n", id)
	return nil
}

func (r *Router) updateExpense(ctx context.Context, sess core.Session, usage string, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: %s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("expense id %q must be a number", args[0])
	}
	if err := r.ledger.UpdateExpense(ctx, sess, id, args[1], args[2]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Expense %d updated.\n", id)
	return nil
}

func (r *Router) deleteExpense(ctx context.Context, sess core.Session, usage string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("expense id %q must be a number", args[0])
	}
	if err := r.ledger.DeleteExpense(ctx, sess, id); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Expense %d deleted.\n", id)
	return nil
}

func (r *Router) listExpenses(ctx context.Context, sess core.Session, raw string) error {
	constraints, err := ParseConstraints(raw)
	if err != nil {
		return err
	}
	list, err := r.ledger.ListExpenses(ctx, sess, constraints)
	if err != nil {
		return err
	}
	renderExpenses(r.out, list.Rows, sess.IsAdmin())
	fmt.Fprintf(r.out, "Total expenses: %d\n", list.Total)
	return nil
}

// ParseConstraints parses the comma-separated filter grammar, e.g.
// "amount > 10, category = food, month = January". An empty string means
// no filtering. Field and operator validity is left to the compiler.
func ParseConstraints(raw string) ([]query.Constraint, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []query.Constraint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := parseConstraint(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseConstraint(part string) (query.Constraint, error) {
	for _, op := range operators {
		idx := strings.Index(part, op)
		if idx < 0 {
			continue
		}
		field := strings.ToLower(strings.TrimSpace(part[:idx]))
		value := strings.TrimSpace(part[idx+len(op):])
		if field == "" || value == "" {
			return query.Constraint{}, fmt.Errorf("%w: %q", core.ErrInvalidFilter, part)
		}
		return query.Constraint{Field: query.Field(field), Op: query.Op(op), Value: value}, nil
	}
	return query.Constraint{}, fmt.Errorf("%w: %q has no operator", core.ErrInvalidFilter, part)
}

func (r *Router) importExpenses(ctx context.Context, sess core.Session, usage string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", usage)
	}
	summary, err := r.importer.ImportFile(ctx, sess, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Import finished: %d imported, %d failed, %d duplicates skipped.\n",
		summary.Succeeded, summary.Failed, summary.Duplicates)
	return nil
}

func (r *Router) exportCSV(ctx context.Context, usage, raw string) error {
	path, sortField, err := ParseExportArgs(raw)
	if err != nil {
		return fmt.Errorf("%w (usage: %s)", err, usage)
	}
	n, err := r.exporter.ExportFile(ctx, path, sortField)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Exported %d expenses to %s.\n", n, path)
	return nil
}

// ParseExportArgs parses "<path>[, sort-on <field>]". The sort field
// defaults to date.
func ParseExportArgs(raw string) (path, sortField string, err error) {
	parts := strings.SplitN(raw, ",", 2)
	path = strings.TrimSpace(parts[0])
	if path == "" {
		return "", "", errors.New("export path is required")
	}
	sortField = "date"
	if len(parts) == 2 {
		opt := strings.TrimSpace(parts[1])
		field, ok := strings.CutPrefix(opt, "sort-on ")
		if !ok {
			return "", "", fmt.Errorf("unrecognized export option %q", opt)
		}
		sortField = strings.ToLower(strings.TrimSpace(field))
	}
	return path, sortField, nil
}

func (r *Router) report(ctx context.Context, sess core.Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: report <type> [args...], one of: %s",
			strings.Join(sortedKeys(reportTypes[sess.Role]), ", "))
	}
	kind := strings.ToLower(args[0])
	usage, ok := reportTypes[sess.Role][kind]
	if !ok {
		return fmt.Errorf("report %q: %w", kind, ErrNotPermitted)
	}
	rest := args[1:]

	switch kind {
	case "top_expenses":
		if len(rest) != 3 {
			return fmt.Errorf("usage: %s", usage)
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return report.ErrInvalidLimit
		}
		rows, err := r.reporter.TopExpenses(ctx, sess, n, rest[1], rest[2])
		if err != nil {
			return err
		}
		renderExpenses(r.out, rows, sess.IsAdmin())
	case "category_spending":
		if len(rest) != 1 {
			return fmt.Errorf("usage: %s", usage)
		}
		stats, err := r.reporter.CategorySpending(ctx, sess, rest[0])
		if err != nil {
			return err
		}
		renderCategoryStats(r.out, stats)
	case "above_average_expenses":
		rows, err := r.reporter.AboveAverageExpenses(ctx, sess)
		if err != nil {
			return err
		}
		renderExpenses(r.out, rows, false)
	case "monthly_category_spending":
		totals, err := r.reporter.MonthlyCategorySpending(ctx, sess)
		if err != nil {
			return err
		}
		renderMonthlyTotals(r.out, totals)
	case "highest_spender_per_month":
		spenders, err := r.reporter.HighestSpenderPerMonth(ctx)
		if err != nil {
			return err
		}
		renderMonthlySpenders(r.out, spenders)
	case "payment_method_usage":
		return r.runNameReport(ctx, sess, r.reporter.PaymentMethodUsage, "Payment method")
	case "tag_expenses":
		return r.runNameReport(ctx, sess, r.reporter.TagExpenses, "Tag")
	case "frequent_category":
		return r.runNameReport(ctx, sess, r.reporter.FrequentCategories, "Category")
	case "payment_method_details_expense":
		usages, err := r.reporter.PaymentDetailUsage(ctx, sess)
		if err != nil {
			return err
		}
		renderDetailUsage(r.out, usages)
	default:
		return fmt.Errorf("report %q: %w", kind, ErrUnknownCommand)
	}
	return nil
}

func (r *Router) runNameReport(ctx context.Context, sess core.Session,
	run func(context.Context, core.Session) ([]report.NameTotal, error), label string) error {
	totals, err := run(ctx, sess)
	if err != nil {
		return err
	}
	renderNameTotals(r.out, label, totals)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
