package predicate

import (
	"fmt"
	"strings"

	"github.com/alfredjeanlab/chronicle/internal/model"
	"github.com/alfredjeanlab/chronicle/internal/schema"
)

// Reflected is a predicate rewritten from an entity's typed fields onto
// the activity log's merged JSON payload. Comparison and boolean
// structure is preserved; every leaf becomes a text lookup on
// (old_data || changed_data) ->> field.
type Reflected struct {
	Table string
	expr  Expr
}

// Reflect validates expr against the entity's declared, non-excluded
// columns and binds it to the entity's table. Referencing an unknown
// field fails with *UnsupportedFieldError.
func Reflect(entity *schema.Entity, expr Expr) (*Reflected, error) {
	for _, field := range expr.fields(nil) {
		if !entity.HasColumn(field) {
			return nil, &UnsupportedFieldError{Table: entity.Table, Field: field}
		}
	}
	return &Reflected{Table: entity.Table, expr: expr}, nil
}

// DataSQL renders the merged-payload expression for an activity table
// alias, the same merge Activity.Data performs in memory.
func DataSQL(alias string) string {
	return fmt.Sprintf("(COALESCE(%s.old_data, '{}'::jsonb) || COALESCE(%s.changed_data, '{}'::jsonb))", alias, alias)
}

// SQL renders the reflected predicate as a parameterized fragment over
// the given activity table alias. Placeholders start at argIndex;
// values are passed as their text rendering.
func (r *Reflected) SQL(alias string, argIndex int) (string, []any) {
	b := &sqlBuilder{alias: alias, argIndex: argIndex}
	r.render(r.expr, b)
	return b.sql.String(), b.args
}

type sqlBuilder struct {
	alias    string
	argIndex int
	sql      strings.Builder
	args     []any
}

func (b *sqlBuilder) placeholder(v any) string {
	b.args = append(b.args, model.Stringify(v))
	p := fmt.Sprintf("$%d", b.argIndex)
	b.argIndex++
	return p
}

func (r *Reflected) render(e Expr, b *sqlBuilder) {
	switch t := e.(type) {
	case Cmp:
		fmt.Fprintf(&b.sql, "%s ->> '%s' %s %s", DataSQL(b.alias), t.Field, t.Op, b.placeholder(t.Value))
	case Conj:
		sep := " OR "
		if t.And {
			sep = " AND "
		}
		b.sql.WriteByte('(')
		for i, sub := range t.Exprs {
			if i > 0 {
				b.sql.WriteString(sep)
			}
			r.render(sub, b)
		}
		b.sql.WriteByte(')')
	case Negation:
		b.sql.WriteString("NOT (")
		r.render(t.Expr, b)
		b.sql.WriteByte(')')
	}
}

// Matches evaluates the reflected predicate against a merged payload in
// memory, with the same text-comparison semantics the SQL rendering
// has. Used by the in-memory store fake and the equivalence tests.
func (r *Reflected) Matches(data map[string]any) bool {
	return matches(r.expr, data)
}

func matches(e Expr, data map[string]any) bool {
	switch t := e.(type) {
	case Cmp:
		raw, ok := data[t.Field]
		if !ok || raw == nil {
			// SQL NULL comparisons are never true.
			return false
		}
		got := model.Stringify(raw)
		want := model.Stringify(t.Value)
		switch t.Op {
		case OpEq:
			return got == want
		case OpNe:
			return got != want
		case OpLt:
			return got < want
		case OpLe:
			return got <= want
		case OpGt:
			return got > want
		case OpGe:
			return got >= want
		}
		return false
	case Conj:
		for _, sub := range t.Exprs {
			if matches(sub, data) != t.And {
				return !t.And
			}
		}
		return t.And
	case Negation:
		return !matches(t.Expr, data)
	}
	return false
}
