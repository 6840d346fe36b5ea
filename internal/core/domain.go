package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type (
	// Role is one of the closed set of user roles.
	Role string

	// Session identifies the authenticated caller of a core operation.
	// It is an explicit value passed into every call; the engine keeps no
	// ambient current-user state.
	Session struct {
		Username string
		Role     Role
	}

	// ExpenseInput carries the raw fields of an expense write as received
	// from the command router or a CSV row. Amount stays a string until the
	// write path parses it.
	ExpenseInput struct {
		Amount        string
		Category      string
		PaymentMethod string
		Date          string
		Description   string
		Tag           string
		PaymentDetail string
	}

	// Expense is the validated form of an ExpenseInput, ready for the store.
	Expense struct {
		Amount        decimal.Decimal
		Category      string
		PaymentMethod string
		Date          string
		Description   string
		Tag           string
		PaymentDetail string
	}

	// ExpenseRow is one row of the filtered listing join. Reference names
	// are already null-coalesced to "N/A" where the left join found nothing.
	ExpenseRow struct {
		ID            int64
		Date          string
		Amount        float64
		Description   string
		Category      string
		Tag           string
		PaymentMethod string
		Username      string
	}

	// ExportRow is one row of the export inner join, in CSV column order.
	ExportRow struct {
		Amount        float64
		Category      string
		PaymentMethod string
		Date          string
		Description   string
		Tag           string
		PaymentDetail string
	}

	// UserInfo pairs a username with its role for listing.
	UserInfo struct {
		Username string
		Role     Role
	}
)

// Missing marks an absent join match in listing output.
const Missing = "N/A"

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Validate parses the raw input into an Expense. Amount is the only field
// with a format requirement; everything else writes through as given.
func (in ExpenseInput) Validate() (Expense, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Expense{}, err
	}
	return Expense{
		Amount:        amount,
		Category:      in.Category,
		PaymentMethod: in.PaymentMethod,
		Date:          in.Date,
		Description:   in.Description,
		Tag:           in.Tag,
		PaymentDetail: in.PaymentDetail,
	}, nil
}

// NormalizeName trims and lower-cases a reference-entity name. Categories,
// tags and payment methods are identified case-insensitively.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Coalesce returns the listing placeholder for empty reference names.
func Coalesce(s string) string {
	if s == "" {
		return Missing
	}
	return s
}
