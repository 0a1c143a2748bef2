package schema

import (
	"errors"
	"testing"
	"time"
)

type Article struct {
	ID     int    `db:"id,pk"`
	Title  string `db:"title"`
	Secret string `db:"secret"`
}

type Page struct {
	BookID int `db:"book_id,pk"`
	Num    int `db:"num,pk"`
	Body   string
}

type legacyRow struct {
	Code string `db:"code,pk"`
}

func (legacyRow) TableName() string { return "legacy.rows" }

type NoKey struct {
	Name string `db:"name"`
}

func newFinalized(t *testing.T, prototypes ...any) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, p := range prototypes {
		if err := reg.Register(p); err != nil {
			t.Fatalf("register %T: %v", p, err)
		}
	}
	if err := reg.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return reg
}

func TestRegistry_TableNames(t *testing.T) {
	reg := newFinalized(t, &Article{}, &Page{}, &legacyRow{})

	for _, tc := range []struct {
		prototype any
		want      string
	}{
		{&Article{}, "articles"},
		{&Page{}, "pages"},
		{&legacyRow{}, "legacy.rows"}, // TableNamer wins over inflection
	} {
		e, err := reg.Lookup(tc.prototype)
		if err != nil {
			t.Fatalf("lookup %T: %v", tc.prototype, err)
		}
		if e.Table != tc.want {
			t.Errorf("table for %T = %q, want %q", tc.prototype, e.Table, tc.want)
		}
	}
}

func TestRegistry_WithTableOverride(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&Article{}, WithTable("posts")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Finalize(); err != nil {
		t.Fatal(err)
	}
	e, err := reg.LookupTable("posts")
	if err != nil {
		t.Fatalf("lookup by table: %v", err)
	}
	if e.Type.Name() != "Article" {
		t.Errorf("entity type = %s, want Article", e.Type.Name())
	}
}

func TestRegistry_NoPrimaryKey(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&NoKey{}); err != nil {
		t.Fatal(err)
	}
	err := reg.Finalize()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestRegistry_ExcludeUnknownColumn(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&Article{}, WithExclude("nope")); err != nil {
		t.Fatal(err)
	}
	err := reg.Finalize()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestRegistry_ExcludedColumnHidden(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&Article{}, WithExclude("secret")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Finalize(); err != nil {
		t.Fatal(err)
	}
	e, err := reg.Lookup(&Article{})
	if err != nil {
		t.Fatal(err)
	}
	if e.HasColumn("secret") {
		t.Error("excluded column should not be visible to predicates")
	}
	if !e.HasColumn("title") {
		t.Error("title should remain visible")
	}
}

func TestRegistry_UnregisteredType(t *testing.T) {
	reg := newFinalized(t, &Article{})
	_, err := reg.Lookup(&Page{})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestEntity_IdentityOf(t *testing.T) {
	reg := newFinalized(t, &Article{}, &Page{})

	e, _ := reg.Lookup(&Article{})
	id, err := e.IdentityOf(&Article{ID: 7, Title: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if id.String() != "articles(id=7)" {
		t.Errorf("identity = %s, want articles(id=7)", id)
	}

	// Composite keys keep declared order.
	pe, _ := reg.Lookup(&Page{})
	pid, err := pe.IdentityOf(Page{BookID: 3, Num: 12})
	if err != nil {
		t.Fatal(err)
	}
	if pid.String() != "pages(book_id=3,num=12)" {
		t.Errorf("identity = %s, want pages(book_id=3,num=12)", pid)
	}
}

func TestEntity_Apply(t *testing.T) {
	type Versioned struct {
		ID        int        `db:"id,pk"`
		Title     string     `db:"title"`
		Views     int64      `db:"views"`
		Rating    float64    `db:"rating"`
		Published bool       `db:"published"`
		CreatedAt time.Time  `db:"created_at"`
		DeletedAt *time.Time `db:"deleted_at"`
	}
	reg := newFinalized(t, &Versioned{})
	e, _ := reg.Lookup(&Versioned{})

	target := &Versioned{Title: "stale", Views: 99}
	err := e.Apply(target, map[string]any{
		"id":         float64(5),
		"title":      "fresh",
		"rating":     4.5,
		"published":  true,
		"created_at": "2024-03-01T10:30:00Z",
		"deleted_at": nil,
	})
	if err != nil {
		t.Fatal(err)
	}
	if target.ID != 5 || target.Title != "fresh" || target.Rating != 4.5 || !target.Published {
		t.Errorf("apply result: %+v", target)
	}
	// views absent from the snapshot: left untouched.
	if target.Views != 99 {
		t.Errorf("views = %d, want untouched 99", target.Views)
	}
	if target.CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}
	if target.DeletedAt != nil {
		t.Error("deleted_at should stay nil")
	}
}

func TestEntity_ApplyIgnoresUnknownKeys(t *testing.T) {
	reg := newFinalized(t, &Article{})
	e, _ := reg.Lookup(&Article{})

	target := &Article{}
	if err := e.Apply(target, map[string]any{"id": float64(1), "dropped_col": "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.ID != 1 {
		t.Errorf("id = %d, want 1", target.ID)
	}
}

func TestToSnakeCase(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"Article", "article"},
		{"BlogPost", "blog_post"},
		{"HTTPLog", "http_log"},
		{"UserID", "user_id"},
	} {
		if got := toSnakeCase(tc.in); got != tc.want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
