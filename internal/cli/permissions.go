package cli

import "spendbook/internal/core"

// permissions maps each role to its allowed commands with usage strings.
// The router refuses any command not present for the session's role.
var permissions = map[core.Role]map[string]string{
	core.RoleAdmin: {
		"add_user":             "add_user <username> <password> <role>",
		"list_users":           "list_users",
		"add_category":         "add_category <category_name>",
		"list_categories":      "list_categories",
		"add_payment_method":   "add_payment_method <payment_method_name>",
		"list_payment_methods": "list_payment_methods",
		"report":               "report <type> [args...]",
		"help":                 "help",
	},
	core.RoleUser: {
		"list_categories":      "list_categories",
		"list_payment_methods": "list_payment_methods",
		"add_expense":          "add_expense <amount> <category> <payment_method> <date> [<description>] <tag>",
		"update_expense":       "update_expense <expense_id> <field> <new_value>",
		"delete_expense":       "delete_expense <expense_id>",
		"list_expenses":        "list_expenses [<field> <operator> <value>, ...]",
		"import_expenses":      "import_expenses <file_path>",
		"export_csv":           "export_csv <file_path>[, sort-on <field>]",
		"report":               "report <type> [args...]",
		"help":                 "help",
	},
}

// reportTypes maps each role to its allowed report types with usage strings.
var reportTypes = map[core.Role]map[string]string{
	core.RoleAdmin: {
		"top_expenses":              "report top_expenses <n> <start_date> <end_date>",
		"monthly_category_spending": "report monthly_category_spending",
		"highest_spender_per_month": "report highest_spender_per_month",
		"frequent_category":         "report frequent_category",
	},
	core.RoleUser: {
		"top_expenses":                   "report top_expenses <n> <start_date> <end_date>",
		"category_spending":              "report category_spending <category>",
		"above_average_expenses":         "report above_average_expenses",
		"monthly_category_spending":      "report monthly_category_spending",
		"payment_method_usage":           "report payment_method_usage",
		"tag_expenses":                   "report tag_expenses",
		"payment_method_details_expense": "report payment_method_details_expense",
	},
}

func commandKnown(cmd string) bool {
	for _, table := range permissions {
		if _, ok := table[cmd]; ok {
			return true
		}
	}
	return false
}
