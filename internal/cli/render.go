package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"spendbook/internal/core"
	"spendbook/internal/report"
)

const maxDescription = 40

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// truncate shortens long free-text fields so tables stay readable.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func renderExpenses(w io.Writer, rows []core.ExpenseRow, showUser bool) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No expenses found.")
		return
	}
	tw := newTable(w)
	if showUser {
		fmt.Fprintln(tw, "ID\tDate\tAmount\tCategory\tTag\tPayment Method\tUser\tDescription")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Date, core.FormatAmount(r.Amount), r.Category, r.Tag,
				r.PaymentMethod, r.Username, truncate(r.Description, maxDescription))
		}
	} else {
		fmt.Fprintln(tw, "ID\tDate\tAmount\tCategory\tTag\tPayment Method\tDescription")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Date, core.FormatAmount(r.Amount), r.Category, r.Tag,
				r.PaymentMethod, truncate(r.Description, maxDescription))
		}
	}
	tw.Flush()
}

func renderUsers(w io.Writer, users []core.UserInfo) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Username\tRole")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\n", u.Username, u.Role)
	}
	tw.Flush()
}

func renderCategoryStats(w io.Writer, s report.CategoryStats) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Category\t%s\n", s.Category)
	fmt.Fprintf(tw, "Expenses\t%d\n", s.Count)
	fmt.Fprintf(tw, "Total\t%s\n", core.FormatAmount(s.Total))
	fmt.Fprintf(tw, "Max\t%s\n", core.FormatAmount(s.Max))
	fmt.Fprintf(tw, "Min\t%s\n", core.FormatAmount(s.Min))
	fmt.Fprintf(tw, "Average\t%s\n", core.FormatAmount(s.Avg))
	fmt.Fprintf(tw, "Share of total\t%.1f%%\n", s.Share)
	tw.Flush()
}

func renderMonthlyTotals(w io.Writer, totals []report.MonthlyCategoryTotal) {
	if len(totals) == 0 {
		fmt.Fprintln(w, "No expenses found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Month\tCategory\tTotal")
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Month, t.Category, core.FormatAmount(t.Total))
	}
	tw.Flush()
}

func renderMonthlySpenders(w io.Writer, spenders []report.MonthlySpender) {
	if len(spenders) == 0 {
		fmt.Fprintln(w, "No expenses found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Month\tUsername\tTotal")
	for _, s := range spenders {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Month, s.Username, core.FormatAmount(s.Total))
	}
	tw.Flush()
}

func renderNameTotals(w io.Writer, label string, totals []report.NameTotal) {
	if len(totals) == 0 {
		fmt.Fprintln(w, "No expenses found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "%s\tCount\tTotal\n", label)
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Name, t.Count, core.FormatAmount(t.Total))
	}
	tw.Flush()
}

func renderDetailUsage(w io.Writer, usages []report.DetailUsage) {
	if len(usages) == 0 {
		fmt.Fprintln(w, "No expenses with payment details found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Detail\tPayment Method\tCount\tTotal\tAverage")
	for _, u := range usages {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			u.Detail, u.PaymentMethod, u.Count,
			core.FormatAmount(u.Total), core.FormatAmount(u.Avg))
	}
	tw.Flush()
}
