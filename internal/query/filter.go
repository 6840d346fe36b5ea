// Package query compiles free-form listing constraints into parameterized
// SQL predicates. Only field names and operators from closed sets are ever
// interpolated into query text; every value travels as a bound parameter.
package query

import (
	"fmt"
	"strings"

	"spendbook/internal/core"
)

// Op is a comparison operator from the closed filter grammar.
type Op string

const (
	OpLT Op = "<"
	OpGT Op = ">"
	OpEQ Op = "="
	OpLE Op = "<="
	OpGE Op = ">="
)

// Field is a filterable field from the closed filter grammar.
type Field string

const (
	FieldAmount        Field = "amount"
	FieldDate          Field = "date"
	FieldCategory      Field = "category"
	FieldTag           Field = "tag"
	FieldPaymentMethod Field = "payment_method"
	FieldMonth         Field = "month"
)

// Constraint is one (field, operator, value) triple supplied by the caller.
type Constraint struct {
	Field Field
	Op    Op
	Value string
}

// Compiled is the result of compiling a constraint set: a list of
// independently parenthesized per-field clauses, to be AND-joined with
// whatever role scoping the store prepends, plus their bound arguments.
type Compiled struct {
	Clauses []string
	Args    []any
}

// columns maps filter fields to columns of the fixed listing join.
// month has no stored column; it is always derived from the date.
var columns = map[Field]string{
	FieldAmount:        "e.amount",
	FieldDate:          "e.date",
	FieldCategory:      "c.category_name",
	FieldTag:           "t.tag_name",
	FieldPaymentMethod: "pm.payment_method_name",
}

// andFields combine their own constraints with AND; every other field
// OR-joins internally. This grouping policy is fixed, not user-selectable.
var andFields = map[Field]bool{
	FieldAmount: true,
	FieldDate:   true,
}

var monthNumbers = map[string]string{
	"january": "01", "february": "02", "march": "03", "april": "04",
	"may": "05", "june": "06", "july": "07", "august": "08",
	"september": "09", "october": "10", "november": "11", "december": "12",
}

// ValidField reports whether s names a filterable field.
func ValidField(s string) bool {
	switch Field(s) {
	case FieldAmount, FieldDate, FieldCategory, FieldTag, FieldPaymentMethod, FieldMonth:
		return true
	}
	return false
}

// ValidOp reports whether s is a recognized comparison operator.
func ValidOp(s string) bool {
	switch Op(s) {
	case OpLT, OpGT, OpEQ, OpLE, OpGE:
		return true
	}
	return false
}

// Compile validates the constraints and builds the per-field predicate
// groups. Constraints keep their supplied order inside each group, and
// groups appear in order of each field's first occurrence. Fields with no
// constraints contribute nothing.
func Compile(constraints []Constraint) (Compiled, error) {
	groups := make(map[Field][]Constraint)
	var order []Field

	for _, c := range constraints {
		if !ValidField(string(c.Field)) {
			return Compiled{}, fmt.Errorf("%w: %q", core.ErrInvalidFilter, c.Field)
		}
		if !ValidOp(string(c.Op)) {
			return Compiled{}, fmt.Errorf("%w: %q", core.ErrInvalidOperator, c.Op)
		}
		if _, seen := groups[c.Field]; !seen {
			order = append(order, c.Field)
		}
		groups[c.Field] = append(groups[c.Field], c)
	}

	var out Compiled
	for _, field := range order {
		clause, args := compileGroup(field, groups[field])
		out.Clauses = append(out.Clauses, clause)
		out.Args = append(out.Args, args...)
	}
	return out, nil
}

func compileGroup(field Field, group []Constraint) (string, []any) {
	joiner := " OR "
	if andFields[field] {
		joiner = " AND "
	}

	var (
		preds []string
		args  []any
	)
	for _, c := range group {
		if field == FieldMonth {
			preds = append(preds, fmt.Sprintf("strftime('%%m', e.date) %s ?", c.Op))
			args = append(args, NormalizeMonth(c.Value))
			continue
		}
		preds = append(preds, fmt.Sprintf("%s %s ?", columns[field], c.Op))
		args = append(args, c.Value)
	}
	return "(" + strings.Join(preds, joiner) + ")", args
}

// NormalizeMonth maps English month names to their two-digit numbers and
// zero-pads bare single digits. Anything else passes through unchanged;
// the comparison against the derived month simply matches nothing.
func NormalizeMonth(v string) string {
	if num, ok := monthNumbers[strings.ToLower(strings.TrimSpace(v))]; ok {
		return num
	}
	if len(v) == 1 {
		return "0" + v
	}
	return v
}
