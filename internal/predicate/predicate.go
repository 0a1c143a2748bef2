// Package predicate models filter expressions over a monitored entity's
// fields and reflects them into equivalent expressions over the
// activity log's untyped JSON payload. The log stores every value as
// JSONB, so reflected comparisons degrade to text comparison; that is
// the price of querying a schema-less history with the original
// entity's field names.
package predicate

import "fmt"

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "<>"
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Expr is a node in a predicate expression tree.
type Expr interface {
	// fields appends every entity field the subtree references.
	fields(dst []string) []string
}

// Cmp compares an entity field against a literal value.
type Cmp struct {
	Field string
	Op    Op
	Value any
}

func (c Cmp) fields(dst []string) []string { return append(dst, c.Field) }

// Conj is a boolean combination of subtrees.
type Conj struct {
	And   bool // true = AND, false = OR
	Exprs []Expr
}

func (c Conj) fields(dst []string) []string {
	for _, e := range c.Exprs {
		dst = e.fields(dst)
	}
	return dst
}

// Negation inverts a subtree.
type Negation struct {
	Expr Expr
}

func (n Negation) fields(dst []string) []string { return n.Expr.fields(dst) }

// Eq builds field = value.
func Eq(field string, value any) Expr { return Cmp{Field: field, Op: OpEq, Value: value} }

// Ne builds field <> value.
func Ne(field string, value any) Expr { return Cmp{Field: field, Op: OpNe, Value: value} }

// Lt builds field < value.
func Lt(field string, value any) Expr { return Cmp{Field: field, Op: OpLt, Value: value} }

// Le builds field <= value.
func Le(field string, value any) Expr { return Cmp{Field: field, Op: OpLe, Value: value} }

// Gt builds field > value.
func Gt(field string, value any) Expr { return Cmp{Field: field, Op: OpGt, Value: value} }

// Ge builds field >= value.
func Ge(field string, value any) Expr { return Cmp{Field: field, Op: OpGe, Value: value} }

// And combines subtrees conjunctively.
func And(exprs ...Expr) Expr { return Conj{And: true, Exprs: exprs} }

// Or combines subtrees disjunctively.
func Or(exprs ...Expr) Expr { return Conj{And: false, Exprs: exprs} }

// Not inverts a subtree.
func Not(e Expr) Expr { return Negation{Expr: e} }

// UnsupportedFieldError reports a predicate leaf referencing a field
// the entity does not declare (or has excluded from capture).
type UnsupportedFieldError struct {
	Table string
	Field string
}

func (e *UnsupportedFieldError) Error() string {
	return fmt.Sprintf("predicate: field %q is not available on %q", e.Field, e.Table)
}
