package schema

import (
	"fmt"
	"reflect"
	"time"

	"github.com/alfredjeanlab/chronicle/internal/model"
)

// Column is one mapped struct field.
type Column struct {
	Name       string
	Index      int // struct field index
	PrimaryKey bool
}

// Entity is the resolved metadata for one monitored type.
type Entity struct {
	Type       reflect.Type
	Table      string
	Columns    []Column
	PrimaryKey []string // column names in declared order
	excluded   map[string]bool
}

// HasColumn reports whether the entity declares a non-excluded column.
func (e *Entity) HasColumn(name string) bool {
	return e.column(name) != nil && !e.excluded[name]
}

// Excluded reports whether the column is dropped from capture.
func (e *Entity) Excluded(name string) bool {
	return e.excluded[name]
}

func (e *Entity) column(name string) *Column {
	for i := range e.Columns {
		if e.Columns[i].Name == name {
			return &e.Columns[i]
		}
	}
	return nil
}

// IdentityOf extracts the primary-key values of a live value in
// declared order and stringifies each, producing the identity key used
// to correlate activity records.
func (e *Entity) IdentityOf(v any) (model.Identity, error) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Pointer {
		val = val.Elem()
	}
	if val.Type() != e.Type {
		return model.Identity{}, &ConfigurationError{
			Type:   val.Type().String(),
			Reason: fmt.Sprintf("value is not a %s", e.Type),
		}
	}

	id := model.Identity{Table: e.Table}
	for _, name := range e.PrimaryKey {
		col := e.column(name)
		id.Fields = append(id.Fields, model.IdentityField{
			Name:  name,
			Value: model.Stringify(val.Field(col.Index).Interface()),
		})
	}
	return id, nil
}

// New returns a pointer to a fresh zero value of the entity's type.
func (e *Entity) New() any {
	return reflect.New(e.Type).Interface()
}

// Apply assigns a payload snapshot onto a live struct pointer. Only
// fields present in the snapshot are touched; values are coerced from
// their JSON decoding (numbers arrive as float64, timestamps as RFC3339
// strings). Unknown keys are ignored: history may carry columns the
// current schema no longer has.
func (e *Entity) Apply(target any, data map[string]any) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		return &ConfigurationError{Type: fmt.Sprintf("%T", target), Reason: "target must be a non-nil struct pointer"}
	}
	val = val.Elem()
	if val.Type() != e.Type {
		return &ConfigurationError{Type: val.Type().String(), Reason: fmt.Sprintf("target is not a %s", e.Type)}
	}

	for _, col := range e.Columns {
		raw, ok := data[col.Name]
		if !ok {
			continue
		}
		field := val.Field(col.Index)
		if err := assign(field, raw); err != nil {
			return fmt.Errorf("apply %s.%s: %w", e.Table, col.Name, err)
		}
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// assign coerces a decoded JSON value onto a struct field.
func assign(field reflect.Value, raw any) error {
	if raw == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	if field.Kind() == reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		if err := assign(ptr.Elem(), raw); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}

	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f, ok := raw.(float64); ok {
			field.SetInt(int64(f))
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f, ok := raw.(float64); ok && f >= 0 {
			field.SetUint(uint64(f))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := raw.(float64); ok {
			field.SetFloat(f)
			return nil
		}
	case reflect.Bool:
		if b, ok := raw.(bool); ok {
			field.SetBool(b)
			return nil
		}
	case reflect.String:
		if s, ok := raw.(string); ok {
			field.SetString(s)
			return nil
		}
	case reflect.Struct:
		if field.Type() == timeType {
			if s, ok := raw.(string); ok {
				t, err := parseTime(s)
				if err != nil {
					return err
				}
				field.Set(reflect.ValueOf(t))
				return nil
			}
		}
	}
	return fmt.Errorf("cannot assign %T to %s", raw, field.Type())
}

// parseTime accepts the timestamp renderings Postgres emits in JSON
// payloads.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05.999999-07",
		"2006-01-02 15:04:05.999999",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
