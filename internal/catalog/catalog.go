// Package catalog is an optional direct Postgres connection used when the
// REST surface cannot describe a table or create the settings table.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/schema"
)

const (
	defaultSchema      = "public"
	defaultMaxConns    = 4
	defaultIdleTimeout = 30 * time.Second
)

// Catalog reads table metadata straight from the Postgres catalogs.
type Catalog struct {
	pool   *pgxpool.Pool
	schema string
	dbName string
}

// Open connects to dsn and pings the server.
func Open(ctx context.Context, dsn string) (*Catalog, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "catalog dsn is empty")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidURL, "invalid catalog dsn", err)
	}
	poolCfg.MaxConns = defaultMaxConns
	poolCfg.MaxConnIdleTime = defaultIdleTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapError(err, "catalog connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "catalog ping", err)
	}
	return &Catalog{pool: pool, schema: defaultSchema, dbName: extractDBName(dsn)}, nil
}

// DatabaseName is the database named in the DSN.
func (c *Catalog) DatabaseName() string { return c.dbName }

// Close releases the pool.
func (c *Catalog) Close() error {
	c.pool.Close()
	return nil
}

// extractDBName parses the database name from the DSN.
func extractDBName(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err == nil && u.Scheme != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	for _, part := range strings.Fields(dsn) {
		if strings.HasPrefix(part, "dbname=") {
			return strings.TrimPrefix(part, "dbname=")
		}
	}
	return ""
}

// Tables lists base tables of the public schema with exact row counts.
func (c *Catalog) Tables(ctx context.Context) ([]schema.TableInfo, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT t.table_name,
		        COALESCE(obj_description(format('%I.%I', t.table_schema, t.table_name)::regclass, 'pg_class'), '')
		 FROM information_schema.tables t
		 WHERE t.table_schema = $1
		   AND t.table_type   = 'BASE TABLE'
		 ORDER BY t.table_name`, c.schema)
	if err != nil {
		return nil, mapError(err, "tables")
	}
	tables, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.TableInfo, error) {
		var t schema.TableInfo
		err := row.Scan(&t.Name, &t.Description)
		return t, err
	})
	if err != nil {
		return nil, mapError(err, "tables scan")
	}

	for i := range tables {
		n, err := c.count(ctx, tables[i].Name)
		if err != nil {
			continue
		}
		tables[i].RecordCount = n
	}
	return tables, nil
}

func (c *Catalog) count(ctx context.Context, table string) (int64, error) {
	ident := pgx.Identifier{c.schema, table}.Sanitize()
	var n int64
	if err := c.pool.QueryRow(ctx, "SELECT count(*) FROM "+ident).Scan(&n); err != nil {
		return 0, mapError(err, "count "+table)
	}
	return n, nil
}

// Columns describes table in ordinal order with authoritative primary keys.
func (c *Catalog) Columns(ctx context.Context, table string) ([]schema.TableField, error) {
	pkSet, err := c.primaryKeyColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := c.pool.Query(ctx,
		`SELECT column_name,
		        data_type,
		        is_nullable,
		        COALESCE(column_default, '')
		 FROM information_schema.columns
		 WHERE table_schema = $1
		   AND table_name   = $2
		 ORDER BY ordinal_position`, c.schema, table)
	if err != nil {
		return nil, mapError(err, "columns")
	}
	defer rows.Close()

	var fields []schema.TableField
	for rows.Next() {
		var name, dtype, nullable, dflt string
		if err := rows.Scan(&name, &dtype, &nullable, &dflt); err != nil {
			return nil, mapError(err, "columns scan")
		}
		fields = append(fields, schema.TableField{
			Name:         name,
			Type:         dtype,
			Required:     nullable != "YES",
			IsPrimaryKey: pkSet[name],
			Default:      dflt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "columns")
	}
	if len(fields) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", table)
	}
	return fields, nil
}

// primaryKeyColumns returns the set of columns in the table's primary key.
func (c *Catalog) primaryKeyColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT a.attname
		 FROM pg_index i
		 JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		 WHERE i.indrelid = format('%I.%I', $1::text, $2::text)::regclass
		   AND i.indisprimary`, c.schema, table)
	if err != nil {
		return nil, mapError(err, "primary keys")
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(err, "primary keys")
	}
	pk := make(map[string]bool, len(names))
	for _, n := range names {
		pk[n] = true
	}
	return pk, nil
}

// EnsureSettingsTable creates the key/value settings table if missing.
func (c *Catalog) EnsureSettingsTable(ctx context.Context, table string) error {
	ident := pgx.Identifier{c.schema, table}.Sanitize()
	_, err := c.pool.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
		   key        text PRIMARY KEY,
		   value      jsonb NOT NULL DEFAULT '{}'::jsonb,
		   updated_at timestamptz NOT NULL DEFAULT now()
		 )`, ident))
	if err != nil {
		return mapError(err, "create settings table")
	}
	// PostgREST only sees new relations after a schema cache reload.
	if _, err := c.pool.Exec(ctx, `NOTIFY pgrst, 'reload schema'`); err != nil {
		return mapError(err, "reload schema cache")
	}
	return nil
}

// DatabaseSize returns the on-disk size of the current database in bytes.
func (c *Catalog) DatabaseSize(ctx context.Context) (int64, error) {
	var n int64
	if err := c.pool.QueryRow(ctx, `SELECT pg_database_size(current_database())`).Scan(&n); err != nil {
		return 0, mapError(err, "database size")
	}
	return n, nil
}
