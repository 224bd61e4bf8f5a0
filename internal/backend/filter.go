package backend

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

var columnName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidColumn reports whether name is a plain lower-case column identifier.
func ValidColumn(name string) bool {
	return columnName.MatchString(name)
}

// Filter is a single column predicate. It renders as "column=op.value".
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter  { return Filter{Column: column, Op: OpEq, Value: value} }
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }
func Lte(column string, value any) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

func (f Filter) String() string {
	return fmt.Sprintf("%s=%s.%s", f.Column, f.Op, render(f.Value))
}

// Validate checks the column identifier and operator.
func (f Filter) Validate() error {
	if !ValidColumn(f.Column) {
		return fmt.Errorf("invalid filter column %q", f.Column)
	}
	switch f.Op {
	case OpEq, OpGte, OpLte:
		return nil
	default:
		return fmt.Errorf("invalid filter operator %q", f.Op)
	}
}

var errFilterSyntax = errors.New("filter must look like column=op.value")

// ParseFilter parses the "column=op.value" form. The value stays a string;
// Matches compares across representations.
func ParseFilter(s string) (Filter, error) {
	col, rest, ok := strings.Cut(s, "=")
	if !ok {
		return Filter{}, errFilterSyntax
	}
	op, val, ok := strings.Cut(rest, ".")
	if !ok {
		return Filter{}, errFilterSyntax
	}
	f := Filter{Column: col, Op: Op(op), Value: val}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Matches evaluates the predicate against a row. A missing column never matches.
func (f Filter) Matches(r Row) bool {
	v, ok := r[f.Column]
	if !ok {
		return false
	}
	c, ok := compare(v, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return c == 0
	case OpGte:
		return c >= 0
	case OpLte:
		return c <= 0
	default:
		return false
	}
}

// MatchesAll reports whether every filter matches.
func MatchesAll(r Row, filters []Filter) bool {
	for _, f := range filters {
		if !f.Matches(r) {
			return false
		}
	}
	return true
}

func render(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

// Compare orders two column values: numerically when both are numbers,
// chronologically when both are RFC 3339 timestamps, textually otherwise.
// The second result is false when the values cannot be ordered.
func Compare(a, b any) (int, bool) {
	return compare(a, b)
}

func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		return 0, false
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return cmpFloat(fa, fb), true
		}
	}
	sa, sb := render(a), render(b)
	if ta, err := time.Parse(time.RFC3339Nano, sa); err == nil {
		if tb, err := time.Parse(time.RFC3339Nano, sb); err == nil {
			return ta.Compare(tb), true
		}
	}
	return strings.Compare(sa, sb), true
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
