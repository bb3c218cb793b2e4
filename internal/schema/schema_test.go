package schema

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/logger"
)

func TestIsPrimaryKeyHeuristic(t *testing.T) {
	tests := []struct {
		name, field, desc string
		want              bool
	}{
		{"id column", "id", "", true},
		{"postgrest note", "order_no", "Note:\nThis is a Primary Key.<pk/>", true},
		{"plain column", "customer", "", false},
		// Known misses: the heuristic is not authoritative.
		{"false positive: id in a join table", "id", "not actually the key", true},
		{"false negative: uuid key without note", "uuid", "", false},
		{"false negative: lower-case note", "code", "primary key of the row", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPrimaryKeyHeuristic(tt.field, tt.desc); got != tt.want {
				t.Errorf("IsPrimaryKeyHeuristic(%q, %q) = %v, want %v", tt.field, tt.desc, got, tt.want)
			}
		})
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		name string
		prop backend.Property
		want string
	}{
		{"array of strings", backend.Property{Type: "array", Items: &backend.Property{Type: "string"}}, "string[]"},
		{"array with format", backend.Property{Type: "array", Format: "text[]", Items: &backend.Property{Type: "string"}}, "text[]"},
		{"array without items", backend.Property{Type: "array"}, "text[]"},
		{"object", backend.Property{Type: "object"}, "jsonb"},
		{"free-form", backend.Property{}, "jsonb"},
		{"format wins", backend.Property{Type: "integer", Format: "bigint"}, "bigint"},
		{"type passthrough", backend.Property{Type: "boolean"}, "boolean"},
		{"json column", backend.Property{Format: "jsonb"}, "jsonb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeType(tt.prop); got != tt.want {
				t.Errorf("NormalizeType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFieldsFromDefinition(t *testing.T) {
	def := backend.Definition{
		Required: []string{"id", "email"},
		Properties: backend.Properties{
			{Name: "id", Type: "integer", Format: "bigint", Description: "Note:\nThis is a Primary Key.<pk/>"},
			{Name: "email", Type: "string", Format: "text"},
			{Name: "tags", Type: "array", Items: &backend.Property{Type: "string"}},
			{Name: "profile", Type: "object"},
			{Name: "created_at", Type: "string", Format: "timestamp with time zone", Default: "now()"},
		},
	}

	got := FieldsFromDefinition(def)
	want := []TableField{
		{Name: "id", Type: "bigint", Required: true, IsPrimaryKey: true, Format: "bigint", Description: "This is a Primary Key."},
		{Name: "email", Type: "text", Required: true, Format: "text"},
		{Name: "tags", Type: "string[]"},
		{Name: "profile", Type: "jsonb"},
		{Name: "created_at", Type: "timestamp with time zone", Format: "timestamp with time zone", Default: "now()"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FieldsFromDefinition():\n got  %+v\n want %+v", got, want)
	}
}

func TestPrimaryKeyAndOrderColumn(t *testing.T) {
	withPK := []TableField{{Name: "code", IsPrimaryKey: true}, {Name: "id"}}
	if got := PrimaryKey(withPK); got != "code" {
		t.Errorf("PrimaryKey = %q, want code", got)
	}
	if got := OrderColumn(withPK); got != "code" {
		t.Errorf("OrderColumn = %q, want code", got)
	}

	noPK := []TableField{{Name: "id"}, {Name: "name"}}
	if got := PrimaryKey(noPK); got != "id" {
		t.Errorf("PrimaryKey = %q, want id", got)
	}
	if got := OrderColumn(noPK); got != "id" {
		t.Errorf("OrderColumn = %q, want id", got)
	}

	noID := []TableField{{Name: "slug"}}
	if got := OrderColumn(noID); got != "" {
		t.Errorf("OrderColumn = %q, want empty", got)
	}
	if got := OrderColumn(nil); got != "id" {
		t.Errorf("OrderColumn(nil) = %q, want id", got)
	}
}

func TestCreatableFields(t *testing.T) {
	fields := []TableField{{Name: "id", IsPrimaryKey: true}, {Name: "name"}, {Name: "price"}}
	got := CreatableFields(fields)
	if len(got) != 2 || got[0].Name != "name" || got[1].Name != "price" {
		t.Errorf("CreatableFields = %+v", got)
	}
}

func TestIsSystemTable(t *testing.T) {
	for _, name := range []string{"pg_stat", "sql_features", "_prisma_migrations", "supadmin_settings"} {
		if !IsSystemTable(name) {
			t.Errorf("IsSystemTable(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"orders", "users", "page_views"} {
		if IsSystemTable(name) {
			t.Errorf("IsSystemTable(%q) = true, want false", name)
		}
	}
}

func TestResolveFieldsFirstSuccessWins(t *testing.T) {
	var calls []string
	strategies := []FieldStrategy{
		{Name: "one", Fetch: func(ctx context.Context, table string) ([]TableField, error) {
			calls = append(calls, "one")
			return nil, errors.New("rpc missing")
		}},
		{Name: "two", Fetch: func(ctx context.Context, table string) ([]TableField, error) {
			calls = append(calls, "two")
			return []TableField{{Name: "id", IsPrimaryKey: true}}, nil
		}},
		{Name: "three", Fetch: func(ctx context.Context, table string) ([]TableField, error) {
			calls = append(calls, "three")
			return []TableField{{Name: "never"}}, nil
		}},
	}

	got := ResolveFields(context.Background(), "orders", strategies, logger.Nop())
	if len(got) != 1 || got[0].Name != "id" {
		t.Errorf("ResolveFields = %+v", got)
	}
	if !reflect.DeepEqual(calls, []string{"one", "two"}) {
		t.Errorf("calls = %v, want [one two]", calls)
	}
}

func TestResolveFieldsEmptyAdvances(t *testing.T) {
	merged := []TableField{{Name: "id", Type: "bigint", Required: true, IsPrimaryKey: true}, {Name: "note", Type: "text"}}
	strategies := []FieldStrategy{
		{Name: "one", Fetch: func(context.Context, string) ([]TableField, error) { return nil, nil }},
		{Name: "two", Fetch: func(context.Context, string) ([]TableField, error) { return []TableField{}, nil }},
		{Name: "three", Fetch: func(context.Context, string) ([]TableField, error) { return merged, nil }},
	}

	got := ResolveFields(context.Background(), "notes", strategies, logger.Nop())
	if !reflect.DeepEqual(got, merged) {
		t.Errorf("ResolveFields = %+v, want %+v", got, merged)
	}
}

func TestResolveFieldsExhausted(t *testing.T) {
	strategies := []FieldStrategy{
		{Name: "one", Fetch: func(context.Context, string) ([]TableField, error) { return nil, errors.New("a") }},
		{Name: "two", Fetch: func(context.Context, string) ([]TableField, error) { return nil, errors.New("b") }},
	}
	got := ResolveFields(context.Background(), "x", strategies, logger.Nop())
	if got == nil || len(got) != 0 {
		t.Errorf("ResolveFields = %#v, want empty non-nil slice", got)
	}
}

func TestResolveTablesFiltersSystemTables(t *testing.T) {
	strategies := []TableStrategy{
		{Name: "only-system", Fetch: func(context.Context) ([]TableInfo, error) {
			return []TableInfo{{Name: "supadmin_settings"}}, nil
		}},
		{Name: "real", Counts: true, Fetch: func(context.Context) ([]TableInfo, error) {
			return []TableInfo{{Name: "orders", RecordCount: 3}, {Name: "_hidden"}}, nil
		}},
	}
	got, winner := ResolveTables(context.Background(), strategies, logger.Nop())
	if winner.Name != "real" || !winner.Counts {
		t.Errorf("winner = %+v, want real", winner)
	}
	if len(got) != 1 || got[0].Name != "orders" {
		t.Errorf("tables = %+v", got)
	}
}

// fakeSource is an in-memory Source.
type fakeSource struct {
	mu        sync.Mutex
	rpcErr    map[string]error
	rpcResult map[string]string // raw JSON per function
	doc       *backend.Document
	docErr    error
	selects   map[string][]backend.Row
	selectErr map[string]error
	counts    map[string]int64
	countErr  map[string]error
	calls     []string
}

func (f *fakeSource) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeSource) RPC(ctx context.Context, fn string, args, out any) error {
	f.record("rpc:" + fn)
	if err := f.rpcErr[fn]; err != nil {
		return err
	}
	raw, ok := f.rpcResult[fn]
	if !ok {
		return errs.New(errs.ErrKindNotFound, "function missing")
	}
	dec := json.NewDecoder(stringsReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

func (f *fakeSource) OpenAPI(ctx context.Context) (*backend.Document, error) {
	f.record("openapi")
	if f.docErr != nil {
		return nil, f.docErr
	}
	if f.doc == nil {
		return &backend.Document{}, nil
	}
	return f.doc, nil
}

func (f *fakeSource) Select(ctx context.Context, q backend.Query) ([]backend.Row, error) {
	f.record("select:" + q.Table)
	if err := f.selectErr[q.Table]; err != nil {
		return nil, err
	}
	return f.selects[q.Table], nil
}

func (f *fakeSource) Count(ctx context.Context, table string) (int64, error) {
	f.record("count:" + table)
	if err := f.countErr[table]; err != nil {
		return 0, err
	}
	return f.counts[table], nil
}

func TestIntrospectorFieldsRPCThrowsOpenAPIWins(t *testing.T) {
	src := &fakeSource{
		rpcErr: map[string]error{RPCTableColumns: errs.New(errs.ErrKindNotFound, "no rpc")},
		doc: &backend.Document{Definitions: map[string]backend.Definition{
			"orders": {Required: []string{"id"}, Properties: backend.Properties{
				{Name: "id", Type: "integer", Format: "bigint"},
				{Name: "total", Type: "number", Format: "numeric"},
			}},
		}},
	}
	in := NewIntrospector(src, nil, logger.Nop())

	got := in.Fields(context.Background(), "orders")
	if len(got) != 2 || !got[0].IsPrimaryKey || got[1].Type != "numeric" {
		t.Errorf("Fields = %+v", got)
	}
	for _, c := range src.calls {
		if c == "select:columns" {
			t.Errorf("information_schema strategy should not run, calls = %v", src.calls)
		}
	}
}

func TestIntrospectorFieldsFallsBackToInformationSchema(t *testing.T) {
	src := &fakeSource{
		rpcResult: map[string]string{RPCTableColumns: `[]`},
		doc:       &backend.Document{Definitions: map[string]backend.Definition{}},
		selects: map[string][]backend.Row{
			"columns": {
				{"column_name": "order_id", "data_type": "uuid", "is_nullable": "NO", "column_default": "gen_random_uuid()"},
				{"column_name": "note", "data_type": "text", "is_nullable": "YES"},
			},
			"key_column_usage": {{"column_name": "order_id"}},
		},
	}
	in := NewIntrospector(src, nil, logger.Nop())

	got := in.Fields(context.Background(), "orders")
	want := []TableField{
		{Name: "order_id", Type: "uuid", Required: true, IsPrimaryKey: true, Default: "gen_random_uuid()"},
		{Name: "note", Type: "text"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fields:\n got  %+v\n want %+v", got, want)
	}
}

func TestIntrospectorFieldsRPC(t *testing.T) {
	src := &fakeSource{
		rpcResult: map[string]string{RPCTableColumns: `[
			{"column_name":"id","data_type":"bigint","is_nullable":false,"is_primary_key":true},
			{"column_name":"title","data_type":"text","is_nullable":true,"is_primary_key":false}
		]`},
	}
	in := NewIntrospector(src, nil, logger.Nop())

	got := in.Fields(context.Background(), "posts")
	if len(got) != 2 {
		t.Fatalf("Fields = %+v", got)
	}
	if !got[0].IsPrimaryKey || !got[0].Required {
		t.Errorf("id field = %+v", got[0])
	}
	if got[1].Required {
		t.Errorf("title should be optional: %+v", got[1])
	}
	if len(src.calls) != 1 {
		t.Errorf("calls = %v, want only the rpc", src.calls)
	}
}

type fakeCatalog struct {
	fields []TableField
	tables []TableInfo
}

func (c *fakeCatalog) Tables(context.Context) ([]TableInfo, error)           { return c.tables, nil }
func (c *fakeCatalog) Columns(context.Context, string) ([]TableField, error) { return c.fields, nil }

func TestIntrospectorCatalogIsLastResort(t *testing.T) {
	src := &fakeSource{
		docErr:    errors.New("openapi disabled"),
		selectErr: map[string]error{"columns": errors.New("schema not exposed")},
	}
	cat := &fakeCatalog{fields: []TableField{{Name: "id", Type: "integer", IsPrimaryKey: true}}}
	in := NewIntrospector(src, cat, logger.Nop())

	got := in.Fields(context.Background(), "things")
	if !reflect.DeepEqual(got, cat.fields) {
		t.Errorf("Fields = %+v, want catalog fields", got)
	}
}

func TestIntrospectorFieldsAllFail(t *testing.T) {
	src := &fakeSource{
		docErr:    errors.New("down"),
		selectErr: map[string]error{"columns": errors.New("down")},
	}
	in := NewIntrospector(src, nil, logger.Nop())

	got := in.Fields(context.Background(), "things")
	if got == nil || len(got) != 0 {
		t.Errorf("Fields = %#v, want empty", got)
	}
}

func TestIntrospectorTablesRPCCarriesCounts(t *testing.T) {
	src := &fakeSource{
		rpcResult: map[string]string{RPCTables: `[
			{"name":"orders","description":"Customer orders","record_count":12},
			{"name":"supadmin_settings","record_count":2}
		]`},
	}
	in := NewIntrospector(src, nil, logger.Nop())

	got := in.Tables(context.Background())
	want := []TableInfo{{Name: "orders", Description: "Customer orders", RecordCount: 12}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tables = %+v, want %+v", got, want)
	}
	for _, c := range src.calls {
		if c == "count:orders" {
			t.Error("rpc listing should not trigger per-table counts")
		}
	}
}

func TestIntrospectorTablesCountFailureIsIsolated(t *testing.T) {
	src := &fakeSource{
		selects: map[string][]backend.Row{
			"tables": {
				{"table_schema": "public", "table_name": "orders"},
				{"table_schema": "public", "table_name": "audit"},
				{"table_schema": "public", "table_name": "users"},
			},
		},
		counts:   map[string]int64{"orders": 25, "users": 4},
		countErr: map[string]error{"audit": errs.New(errs.ErrKindPermissionDenied, "rls")},
	}
	in := NewIntrospector(src, nil, logger.Nop())

	got := in.Tables(context.Background())
	want := []TableInfo{
		{Name: "audit", RecordCount: 0},
		{Name: "orders", RecordCount: 25},
		{Name: "users", RecordCount: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tables = %+v, want %+v", got, want)
	}
}

func TestIntrospectorTablesOpenAPIFallback(t *testing.T) {
	src := &fakeSource{
		selectErr: map[string]error{"tables": errs.New(errs.ErrKindNotFound, "information_schema not exposed")},
		doc: &backend.Document{Definitions: map[string]backend.Definition{
			"products": {Description: "Catalogue"},
			"_secret":  {},
		}},
		counts: map[string]int64{"products": 7},
	}
	in := NewIntrospector(src, nil, logger.Nop())

	got := in.Tables(context.Background())
	want := []TableInfo{{Name: "products", Description: "Catalogue", RecordCount: 7}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tables = %+v, want %+v", got, want)
	}
}

func TestIntrospectorTablesNothingWorks(t *testing.T) {
	src := &fakeSource{
		selectErr: map[string]error{"tables": errors.New("x")},
		docErr:    errors.New("y"),
	}
	in := NewIntrospector(src, nil, logger.Nop())
	if got := in.Tables(context.Background()); got == nil || len(got) != 0 {
		t.Errorf("Tables = %#v, want empty", got)
	}
}

func TestMergeColumnsWithoutKeys(t *testing.T) {
	got := MergeColumns([]backend.Row{{"column_name": "a", "data_type": "text", "is_nullable": "NO"}}, nil)
	if len(got) != 1 || got[0].IsPrimaryKey || !got[0].Required {
		t.Errorf("MergeColumns = %+v", got)
	}
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
