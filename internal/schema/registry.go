// Package schema maps monitored Go struct types onto their database
// metadata: table name, column set, and primary-key order. The registry
// is the identity matcher for the versioning engine; it is configured
// in two explicit phases (Register, then Finalize) so the host
// application controls exactly when monitoring takes effect.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// TableNamer provides a custom table name for a monitored type.
type TableNamer interface {
	TableName() string
}

// Option customizes a registration.
type Option func(*registration)

// WithTable overrides the derived table name.
func WithTable(name string) Option {
	return func(r *registration) { r.table = name }
}

// WithExclude marks columns whose values the capture trigger drops.
// Excluded columns are also rejected in reflected predicates.
func WithExclude(columns ...string) Option {
	return func(r *registration) { r.exclude = append(r.exclude, columns...) }
}

type registration struct {
	typ     reflect.Type
	table   string
	exclude []string
}

// Registry holds monitored types. Register collects types; Finalize
// resolves their metadata and validates the configuration. After
// Finalize the registry is read-only and safe for concurrent use.
type Registry struct {
	pending   []registration
	entities  map[reflect.Type]*Entity
	byTable   map[string]*Entity
	finalized bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[reflect.Type]*Entity),
		byTable:  make(map[string]*Entity),
	}
}

// Register queues a prototype struct (value or pointer) for monitoring.
// Metadata is not resolved until Finalize.
func (r *Registry) Register(prototype any, opts ...Option) error {
	if r.finalized {
		return &ConfigurationError{Type: fmt.Sprintf("%T", prototype), Reason: "registry already finalized"}
	}
	typ, err := structType(prototype)
	if err != nil {
		return err
	}
	reg := registration{typ: typ, table: tableNameFor(prototype, typ)}
	for _, opt := range opts {
		opt(&reg)
	}
	r.pending = append(r.pending, reg)
	return nil
}

// Finalize resolves column metadata for every registered type. It fails
// with *ConfigurationError when a type declares no primary key or an
// exclude list references an unknown column.
func (r *Registry) Finalize() error {
	for _, reg := range r.pending {
		e, err := buildEntity(reg)
		if err != nil {
			return err
		}
		r.entities[reg.typ] = e
		r.byTable[e.Table] = e
	}
	r.pending = nil
	r.finalized = true
	return nil
}

// Lookup returns the metadata for a monitored value's type.
func (r *Registry) Lookup(v any) (*Entity, error) {
	typ, err := structType(v)
	if err != nil {
		return nil, err
	}
	e, ok := r.entities[typ]
	if !ok {
		return nil, &ConfigurationError{Type: typ.String(), Reason: "type is not registered for versioning"}
	}
	return e, nil
}

// LookupTable returns the metadata for a monitored table name.
func (r *Registry) LookupTable(table string) (*Entity, error) {
	e, ok := r.byTable[table]
	if !ok {
		return nil, &ConfigurationError{Type: table, Reason: "table is not registered for versioning"}
	}
	return e, nil
}

func buildEntity(reg registration) (*Entity, error) {
	e := &Entity{
		Type:     reg.typ,
		Table:    reg.table,
		excluded: make(map[string]bool, len(reg.exclude)),
	}

	for i := 0; i < reg.typ.NumField(); i++ {
		f := reg.typ.Field(i)
		if !f.IsExported() {
			continue
		}
		name, pk, skip := parseDBTag(f)
		if skip {
			continue
		}
		col := Column{Name: name, Index: i, PrimaryKey: pk}
		e.Columns = append(e.Columns, col)
		if pk {
			e.PrimaryKey = append(e.PrimaryKey, name)
		}
	}

	if len(e.PrimaryKey) == 0 {
		return nil, &ConfigurationError{Type: reg.typ.String(), Reason: "no primary key column declared"}
	}
	for _, col := range reg.exclude {
		if e.column(col) == nil {
			return nil, &ConfigurationError{
				Type:   reg.typ.String(),
				Reason: fmt.Sprintf("cannot exclude unknown column %q", col),
			}
		}
		e.excluded[col] = true
	}
	return e, nil
}

// parseDBTag maps a struct field to its column name. `db:"name"` names
// the column, `db:"name,pk"` marks a primary-key component, `db:"-"`
// skips the field. Untagged fields map to the snake_case field name.
func parseDBTag(f reflect.StructField) (name string, pk, skip bool) {
	tag := f.Tag.Get("db")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = toSnakeCase(f.Name)
	}
	for _, p := range parts[1:] {
		if p == "pk" {
			pk = true
		}
	}
	return name, pk, false
}

func structType(v any) (reflect.Type, error) {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return nil, &ConfigurationError{Type: "<nil>", Reason: "nil prototype"}
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, &ConfigurationError{Type: typ.String(), Reason: "prototype must be a struct or struct pointer"}
	}
	return typ, nil
}

// tableNameFor derives the table name: a TableNamer implementation
// wins, otherwise the pluralized snake_case type name.
func tableNameFor(prototype any, typ reflect.Type) string {
	if namer, ok := prototype.(TableNamer); ok {
		if name := strings.TrimSpace(namer.TableName()); name != "" {
			return name
		}
	}
	if reflect.PointerTo(typ).Implements(tableNamerType) {
		if namer, ok := reflect.New(typ).Interface().(TableNamer); ok {
			if name := strings.TrimSpace(namer.TableName()); name != "" {
				return name
			}
		}
	}
	return inflection.Plural(toSnakeCase(typ.Name()))
}

var tableNamerType = reflect.TypeOf((*TableNamer)(nil)).Elem()

func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
