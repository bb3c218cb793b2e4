package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sadopc/supadmin/internal/errs"
)

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 10

// Filter is one PostgREST horizontal filter, rendered as column=op.value.
type Filter struct {
	Column string
	Op     string // eq, neq, like, in, ...
	Value  any
}

// Eq returns an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: "eq", Value: value}
}

// Query describes a generic select.
type Query struct {
	Table   string
	Profile string   // schema exposed under Accept-Profile; empty for the default
	Columns []string // empty selects *
	Filters []Filter
	Order   string // e.g. "ordinal_position.asc"
	Limit   int
}

// Page is one page of rows plus the exact total.
type Page struct {
	Rows     []Row
	Total    int64
	Page     int
	PageSize int
}

// PageRange returns the inclusive, 0-based row range of page.
func PageRange(page, pageSize int) (from, to int) {
	page, pageSize = normalizePage(page, pageSize)
	from = (page - 1) * pageSize
	to = page*pageSize - 1
	return from, to
}

// TotalPages returns the number of pages needed for total rows; at least 1.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func (q Query) values() url.Values {
	v := url.Values{}
	if len(q.Columns) == 0 {
		v.Set("select", "*")
	} else {
		v.Set("select", strings.Join(q.Columns, ","))
	}
	for _, f := range q.Filters {
		v.Add(f.Column, f.Op+"."+formatValue(f.Value))
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func profileHeader(h http.Header, profile string) http.Header {
	if h == nil {
		h = http.Header{}
	}
	if profile != "" {
		h.Set("Accept-Profile", profile)
	}
	return h
}

func tablePath(table string) string {
	return "/" + url.PathEscape(table)
}

// Select runs a generic read.
func (c *Client) Select(ctx context.Context, q Query) ([]Row, error) {
	if q.Table == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "select: table is required")
	}
	resp, err := c.do(ctx, "select "+q.Table, request{
		method: http.MethodGet,
		path:   tablePath(q.Table),
		query:  q.values(),
		header: profileHeader(nil, q.Profile),
	})
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := decodeJSON(resp.body, &rows); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "select "+q.Table+": decode rows", err)
	}
	return rows, nil
}

// Count returns the exact number of rows in table using a HEAD request.
func (c *Client) Count(ctx context.Context, table string) (int64, error) {
	resp, err := c.do(ctx, "count "+table, request{
		method: http.MethodHead,
		path:   tablePath(table),
		query:  url.Values{"select": {"*"}},
		header: http.Header{"Prefer": {"count=exact"}},
	})
	if err != nil {
		return 0, err
	}
	total, err := parseContentRangeTotal(resp.header.Get("Content-Range"))
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindQueryFailed, "count "+table, err)
	}
	if total < 0 {
		return 0, errs.New(errs.ErrKindQueryFailed, "count "+table+": backend did not report a total")
	}
	return total, nil
}

// List fetches one page of table ordered by orderBy ascending (no explicit
// order when orderBy is empty) together with the exact total.
func (c *Client) List(ctx context.Context, table string, page, pageSize int, orderBy string) (*Page, error) {
	page, pageSize = normalizePage(page, pageSize)
	from, to := PageRange(page, pageSize)

	q := url.Values{"select": {"*"}}
	if orderBy != "" {
		q.Set("order", orderBy+".asc")
	}

	resp, err := c.do(ctx, "list "+table, request{
		method: http.MethodGet,
		path:   tablePath(table),
		query:  q,
		header: http.Header{
			"Range-Unit": {"items"},
			"Range":      {fmt.Sprintf("%d-%d", from, to)},
			"Prefer":     {"count=exact"},
		},
	})
	if err != nil {
		return nil, err
	}

	out := &Page{Page: page, PageSize: pageSize}
	if total, err := parseContentRangeTotal(resp.header.Get("Content-Range")); err == nil && total >= 0 {
		out.Total = total
	}
	if resp.status == http.StatusRequestedRangeNotSatisfiable {
		out.Rows = []Row{}
		return out, nil
	}
	if err := decodeJSON(resp.body, &out.Rows); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "list "+table+": decode rows", err)
	}
	if out.Rows == nil {
		out.Rows = []Row{}
	}
	return out, nil
}

// Get fetches the row whose pk column equals id.
func (c *Client) Get(ctx context.Context, table, pk string, id any) (Row, error) {
	resp, err := c.do(ctx, "get "+table, request{
		method: http.MethodGet,
		path:   tablePath(table),
		query:  Query{Filters: []Filter{Eq(pk, id)}}.values(),
		header: http.Header{"Accept": {"application/vnd.pgrst.object+json"}},
	})
	if err != nil {
		return nil, err
	}
	var row Row
	if err := decodeJSON(resp.body, &row); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "get "+table+": decode row", err)
	}
	return row, nil
}

// Insert creates one row and returns it as stored.
func (c *Client) Insert(ctx context.Context, table string, fields Row) (Row, error) {
	resp, err := c.do(ctx, "insert "+table, request{
		method: http.MethodPost,
		path:   tablePath(table),
		body:   fields,
		header: http.Header{"Prefer": {"return=representation"}},
	})
	if err != nil {
		return nil, err
	}
	return firstRow(resp.body, "insert "+table)
}

// Update applies patch to the row whose pk column equals id. It fails with
// a NotFound error when no row matched.
func (c *Client) Update(ctx context.Context, table, pk string, id any, patch Row) (Row, error) {
	if len(patch) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "update "+table+": empty patch")
	}
	resp, err := c.do(ctx, "update "+table, request{
		method: http.MethodPatch,
		path:   tablePath(table),
		query:  url.Values{pk: {"eq." + formatValue(id)}},
		body:   patch,
		header: http.Header{"Prefer": {"return=representation"}},
	})
	if err != nil {
		return nil, err
	}
	return firstRow(resp.body, "update "+table)
}

// Delete removes the row whose pk column equals id. Deleting a missing row
// is not an error at the backend.
func (c *Client) Delete(ctx context.Context, table, pk string, id any) error {
	_, err := c.do(ctx, "delete "+table, request{
		method: http.MethodDelete,
		path:   tablePath(table),
		query:  url.Values{pk: {"eq." + formatValue(id)}},
	})
	return err
}

// Upsert inserts row or merges it into the row sharing onConflict.
func (c *Client) Upsert(ctx context.Context, table string, row Row, onConflict string) error {
	q := url.Values{}
	if onConflict != "" {
		q.Set("on_conflict", onConflict)
	}
	_, err := c.do(ctx, "upsert "+table, request{
		method: http.MethodPost,
		path:   tablePath(table),
		query:  q,
		body:   row,
		header: http.Header{"Prefer": {"resolution=merge-duplicates,return=minimal"}},
	})
	return err
}

func firstRow(body []byte, op string) (Row, error) {
	var rows []Row
	if err := decodeJSON(body, &rows); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, op+": decode rows", err)
	}
	if len(rows) == 0 {
		return nil, errs.New(errs.ErrKindNotFound, op+": no row matched")
	}
	return rows[0], nil
}

// parseContentRangeTotal extracts N from "a-b/N" or "*/N". An unknown
// total ("*") yields -1.
func parseContentRangeTotal(h string) (int64, error) {
	if h == "" {
		return -1, fmt.Errorf("missing Content-Range header")
	}
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return -1, fmt.Errorf("malformed Content-Range %q", h)
	}
	totalStr := strings.TrimSpace(h[i+1:])
	if totalStr == "*" {
		return -1, nil
	}
	n, err := strconv.ParseInt(totalStr, 10, 64)
	if err != nil {
		return -1, fmt.Errorf("malformed Content-Range %q: %w", h, err)
	}
	return n, nil
}
