package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/logger"
)

// RPC names a backend may provide for fast introspection.
const (
	RPCTableColumns = "get_table_columns"
	RPCTables       = "get_tables"
)

const defaultCountWorkers = 4

// internalSchemas are never listed by the catalog strategies.
var internalSchemas = []string{
	"pg_catalog", "information_schema", "pg_toast",
	"auth", "storage", "realtime", "extensions", "graphql", "graphql_public",
	"vault", "pgsodium", "pgsodium_masks", "supabase_functions", "supabase_migrations",
	"net", "cron",
}

// Source is the backend surface the introspector reads from.
// *backend.Client satisfies it.
type Source interface {
	RPC(ctx context.Context, fn string, args, out any) error
	OpenAPI(ctx context.Context) (*backend.Document, error)
	Select(ctx context.Context, q backend.Query) ([]backend.Row, error)
	Count(ctx context.Context, table string) (int64, error)
}

// Catalog is a direct database connection able to describe tables.
type Catalog interface {
	Tables(ctx context.Context) ([]TableInfo, error)
	Columns(ctx context.Context, table string) ([]TableField, error)
}

// Introspector discovers tables and fields through ordered fallback chains.
type Introspector struct {
	src          Source
	catalog      Catalog
	log          *logger.Logger
	countWorkers int
}

// NewIntrospector returns an Introspector. catalog may be nil.
func NewIntrospector(src Source, catalog Catalog, log *logger.Logger) *Introspector {
	if log == nil {
		log = logger.Nop()
	}
	return &Introspector{
		src:          src,
		catalog:      catalog,
		log:          log,
		countWorkers: defaultCountWorkers,
	}
}

// Fields returns the fields of table. It never fails: when no strategy
// works the table is treated as schema-less.
func (in *Introspector) Fields(ctx context.Context, table string) []TableField {
	return ResolveFields(ctx, table, in.FieldStrategies(), in.log)
}

// FieldStrategies returns the field chain in preference order.
func (in *Introspector) FieldStrategies() []FieldStrategy {
	strategies := []FieldStrategy{
		{Name: "rpc", Fetch: in.rpcFields},
		{Name: "openapi", Fetch: in.openAPIFields},
		{Name: "information_schema", Fetch: in.infoSchemaFields},
	}
	if in.catalog != nil {
		strategies = append(strategies, FieldStrategy{Name: "catalog", Fetch: in.catalog.Columns})
	}
	return strategies
}

// Tables lists user tables with record counts. Tables whose count cannot
// be read report zero.
func (in *Introspector) Tables(ctx context.Context) []TableInfo {
	tables, winner := ResolveTables(ctx, in.TableStrategies(), in.log)
	if !winner.Counts {
		in.countAll(ctx, tables)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

// TableStrategies returns the listing chain in preference order.
func (in *Introspector) TableStrategies() []TableStrategy {
	strategies := []TableStrategy{
		{Name: "rpc", Counts: true, Fetch: in.rpcTables},
		{Name: "information_schema", Fetch: in.infoSchemaTables},
	}
	if in.catalog != nil {
		strategies = append(strategies, TableStrategy{Name: "catalog", Counts: true, Fetch: in.catalog.Tables})
	}
	strategies = append(strategies, TableStrategy{Name: "openapi", Fetch: in.openAPITables})
	return strategies
}

// countAll fills RecordCount with bounded concurrency. A failing count
// only affects its own table.
func (in *Introspector) countAll(ctx context.Context, tables []TableInfo) {
	var g errgroup.Group
	g.SetLimit(in.countWorkers)
	for i := range tables {
		g.Go(func() error {
			n, err := in.src.Count(ctx, tables[i].Name)
			if err != nil {
				in.log.With().Str("table", tables[i].Name).Err(err).Logger().Warn("count failed")
				n = 0
			}
			tables[i].RecordCount = n
			return nil
		})
	}
	_ = g.Wait()
}

// --- field strategies ---

func (in *Introspector) rpcFields(ctx context.Context, table string) ([]TableField, error) {
	var rows []map[string]any
	if err := in.src.RPC(ctx, RPCTableColumns, map[string]string{"table_name": table}, &rows); err != nil {
		return nil, err
	}
	fields := make([]TableField, 0, len(rows))
	for _, r := range rows {
		name := stringValue(first(r, "column_name", "name"))
		if name == "" {
			continue
		}
		nullable := boolValue(first(r, "is_nullable", "nullable"))
		fields = append(fields, TableField{
			Name:         name,
			Type:         stringValue(first(r, "data_type", "type")),
			Required:     !nullable,
			IsPrimaryKey: boolValue(first(r, "is_primary_key", "is_primary", "primary_key")),
			Default:      stringValue(r["column_default"]),
		})
	}
	return fields, nil
}

func (in *Introspector) openAPIFields(ctx context.Context, table string) ([]TableField, error) {
	doc, err := in.src.OpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	def, ok := doc.Definitions[table]
	if !ok {
		return nil, fmt.Errorf("openapi: no definition for %q", table)
	}
	return FieldsFromDefinition(def), nil
}

// infoSchemaFields reads information_schema.columns, then the columns of
// the conventionally named "<table>_pkey" constraint, and merges them.
func (in *Introspector) infoSchemaFields(ctx context.Context, table string) ([]TableField, error) {
	cols, err := in.src.Select(ctx, backend.Query{
		Table:   "columns",
		Profile: "information_schema",
		Columns: []string{"column_name", "data_type", "is_nullable", "column_default"},
		Filters: []backend.Filter{backend.Eq("table_name", table)},
		Order:   "ordinal_position.asc",
	})
	if err != nil {
		return nil, err
	}

	keys, err := in.src.Select(ctx, backend.Query{
		Table:   "key_column_usage",
		Profile: "information_schema",
		Columns: []string{"column_name"},
		Filters: []backend.Filter{
			backend.Eq("table_name", table),
			backend.Eq("constraint_name", table+"_pkey"),
		},
	})
	if err != nil {
		in.log.With().Str("table", table).Err(err).Logger().Debug("primary key lookup failed")
		keys = nil
	}

	return MergeColumns(cols, keys), nil
}

// MergeColumns joins information_schema column rows with primary-key
// usage rows by column name.
func MergeColumns(cols, keys []backend.Row) []TableField {
	pk := make(map[string]bool, len(keys))
	for _, k := range keys {
		pk[stringValue(k["column_name"])] = true
	}
	fields := make([]TableField, 0, len(cols))
	for _, c := range cols {
		name := stringValue(c["column_name"])
		if name == "" {
			continue
		}
		fields = append(fields, TableField{
			Name:         name,
			Type:         stringValue(c["data_type"]),
			Required:     !boolValue(c["is_nullable"]),
			IsPrimaryKey: pk[name],
			Default:      stringValue(c["column_default"]),
		})
	}
	return fields
}

// --- table strategies ---

func (in *Introspector) rpcTables(ctx context.Context) ([]TableInfo, error) {
	var rows []map[string]any
	if err := in.src.RPC(ctx, RPCTables, nil, &rows); err != nil {
		return nil, err
	}
	tables := make([]TableInfo, 0, len(rows))
	for _, r := range rows {
		name := stringValue(first(r, "name", "table_name"))
		if name == "" {
			continue
		}
		tables = append(tables, TableInfo{
			Name:        name,
			Description: stringValue(r["description"]),
			RecordCount: intValue(first(r, "record_count", "row_count", "count")),
		})
	}
	return tables, nil
}

func (in *Introspector) infoSchemaTables(ctx context.Context) ([]TableInfo, error) {
	rows, err := in.src.Select(ctx, backend.Query{
		Table:   "tables",
		Profile: "information_schema",
		Columns: []string{"table_schema", "table_name"},
		Filters: []backend.Filter{
			backend.Eq("table_type", "BASE TABLE"),
			{Column: "table_schema", Op: "not.in", Value: "(" + strings.Join(internalSchemas, ",") + ")"},
		},
		Order: "table_name.asc",
	})
	if err != nil {
		return nil, err
	}
	tables := make([]TableInfo, 0, len(rows))
	for _, r := range rows {
		if name := stringValue(r["table_name"]); name != "" {
			tables = append(tables, TableInfo{Name: name})
		}
	}
	return tables, nil
}

func (in *Introspector) openAPITables(ctx context.Context) ([]TableInfo, error) {
	doc, err := in.src.OpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	names := doc.TableNames()
	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		tables = append(tables, TableInfo{
			Name:        name,
			Description: cleanDescription(doc.Definitions[name].Description),
		})
	}
	return tables, nil
}

// --- loose row decoding ---

func first(r map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func boolValue(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToUpper(x) {
		case "YES", "TRUE", "T", "1":
			return true
		}
	}
	return false
}

func intValue(v any) int64 {
	switch x := v.(type) {
	case json.Number:
		n, _ := x.Int64()
		return n
	case float64:
		return int64(x)
	case int:
		return int64(x)
	case int64:
		return x
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	}
	return 0
}
