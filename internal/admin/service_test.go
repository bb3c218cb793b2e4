package admin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/supadmin/internal/audit"
	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/config"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/history"
	"github.com/sadopc/supadmin/internal/store"
)

const testKey = "anon-key-0123456789"

// fakeRest is an in-memory PostgREST good enough for the service: no RPCs
// except get_database_size, no information_schema, and an OpenAPI
// document describing "orders" only.
type fakeRest struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	keys   map[string]string
	nextID int
	orders []string
	docs   int
}

func newFakeRest() *fakeRest {
	return &fakeRest{
		tables: map[string][]map[string]any{
			"orders": {
				{"code": 1, "item": "apple"},
				{"code": 2, "item": "pear"},
			},
			"notes": {
				{"body": "hello"},
			},
		},
		keys:   map[string]string{"orders": "code"},
		nextID: 3,
	}
}

const openAPIDoc = `{
  "swagger": "2.0",
  "definitions": {
    "orders": {
      "type": "object",
      "required": ["code"],
      "properties": {
        "code": {"type": "integer", "format": "bigint", "description": "Note:\nThis is a Primary Key.<pk/>"},
        "item": {"type": "string", "format": "text"}
      }
    }
  }
}`

func (f *fakeRest) docCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pgError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"code": code, "message": code})
}

func (f *fakeRest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/rest/v1")
	switch {
	case path == "/" || path == "":
		f.docs++
		w.Header().Set("Content-Type", "application/openapi+json")
		_, _ = w.Write([]byte(openAPIDoc))
		return
	case path == "/rpc/"+RPCDatabaseSize:
		writeJSON(w, http.StatusOK, 2048)
		return
	case strings.HasPrefix(path, "/rpc/"):
		pgError(w, http.StatusNotFound, "PGRST202")
		return
	case r.Header.Get("Accept-Profile") != "":
		pgError(w, http.StatusNotFound, "42P01")
		return
	}

	table := strings.TrimPrefix(path, "/")
	rows, ok := f.tables[table]
	if !ok {
		pgError(w, http.StatusNotFound, "42P01")
		return
	}
	q := r.URL.Query()

	switch r.Method {
	case http.MethodHead:
		w.Header().Set("Content-Range", fmt.Sprintf("*/%d", len(rows)))
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		if order := q.Get("order"); order != "" {
			f.orders = append(f.orders, table+":"+order)
			col := strings.TrimSuffix(order, ".asc")
			if len(rows) > 0 {
				if _, ok := rows[0][col]; !ok {
					pgError(w, http.StatusBadRequest, "42703")
					return
				}
			}
		}
		matched := filterRows(rows, q)
		if strings.Contains(r.Header.Get("Accept"), "vnd.pgrst.object") {
			if len(matched) != 1 {
				pgError(w, http.StatusNotAcceptable, "PGRST116")
				return
			}
			writeJSON(w, http.StatusOK, matched[0])
			return
		}
		from, to := 0, len(matched)-1
		if rng := r.Header.Get("Range"); rng != "" {
			parts := strings.SplitN(rng, "-", 2)
			from, _ = strconv.Atoi(parts[0])
			to, _ = strconv.Atoi(parts[1])
		}
		total := len(matched)
		if from >= total && total > 0 {
			w.Header().Set("Content-Range", fmt.Sprintf("*/%d", total))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		if to >= total {
			to = total - 1
		}
		page := []map[string]any{}
		if total > 0 {
			page = matched[from : to+1]
		}
		w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%d", from, to, total))
		writeJSON(w, http.StatusOK, page)

	case http.MethodPost:
		var row map[string]any
		_ = json.NewDecoder(r.Body).Decode(&row)
		if pk := f.keys[table]; pk != "" {
			if _, ok := row[pk]; !ok {
				row[pk] = f.nextID
				f.nextID++
			}
		}
		f.tables[table] = append(rows, row)
		writeJSON(w, http.StatusCreated, []map[string]any{row})

	case http.MethodPatch:
		var patch map[string]any
		_ = json.NewDecoder(r.Body).Decode(&patch)
		matched := filterRows(rows, q)
		for _, row := range matched {
			for k, v := range patch {
				row[k] = v
			}
		}
		writeJSON(w, http.StatusOK, matched)

	case http.MethodDelete:
		matched := filterRows(rows, q)
		kept := rows[:0]
		for _, row := range rows {
			if !containsRow(matched, row) {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		w.WriteHeader(http.StatusNoContent)
	}
}

func filterRows(rows []map[string]any, q map[string][]string) []map[string]any {
	out := []map[string]any{}
	for _, row := range rows {
		keep := true
		for col, vs := range q {
			if col == "select" || col == "order" || col == "limit" {
				continue
			}
			want := strings.TrimPrefix(vs[0], "eq.")
			if fmt.Sprint(row[col]) != want {
				keep = false
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

func containsRow(rows []map[string]any, row map[string]any) bool {
	for _, r := range rows {
		if fmt.Sprint(r) == fmt.Sprint(row) {
			return true
		}
	}
	return false
}

type fixture struct {
	svc       *Service
	rest      *fakeRest
	url       string
	auditPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hist, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	auditPath := filepath.Join(dir, "audit.jsonl")
	al, err := audit.New(auditPath, 0)
	require.NoError(t, err)
	t.Cleanup(func() { al.Close() })

	rest := newFakeRest()
	srv := httptest.NewServer(rest)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Audit.Enabled = true

	svc, err := New(Options{Config: cfg, Store: st, History: hist, Audit: al})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	return &fixture{svc: svc, rest: rest, url: srv.URL, auditPath: auditPath}
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, f.svc.Connect(context.Background(), f.url, testKey, ""))
}

func TestOperationsRequireConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Tables(ctx)
	assert.True(t, errs.IsInvalidInput(err))
	_, err = f.svc.Rows(ctx, "orders", 1, 10)
	assert.True(t, errs.IsInvalidInput(err))
	assert.True(t, errs.IsInvalidInput(f.svc.Delete(ctx, "orders", "1")))
}

func TestTablesFallBackToOpenAPIWithCounts(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	tables, err := f.svc.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "orders", tables[0].Name)
	assert.Equal(t, int64(2), tables[0].RecordCount)
}

func TestRowsOrderedByPrimaryKey(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	p, err := f.svc.Rows(context.Background(), "orders", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Total)
	assert.Len(t, p.Rows, 2)
	assert.Contains(t, f.rest.orders, "orders:code.asc")
}

func TestRowsWithFieldsSkipsSchemaLookup(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	ctx := context.Background()

	fields, err := f.svc.Fields(ctx, "orders")
	require.NoError(t, err)
	docs := f.rest.docCount()

	p, err := f.svc.RowsWithFields(ctx, "orders", fields, 1, 10)
	require.NoError(t, err)
	assert.Len(t, p.Rows, 2)
	row, err := f.svc.RecordWithFields(ctx, "orders", "2", fields)
	require.NoError(t, err)
	assert.Equal(t, "pear", row["item"])
	all, err := f.svc.AllRowsWithFields(ctx, "orders", fields, 1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Equal(t, docs, f.rest.docCount())
	assert.Equal(t, "orders:code.asc", f.rest.orders[len(f.rest.orders)-1])

	_, err = f.svc.Rows(ctx, "orders", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, docs+1, f.rest.docCount())
}

func TestRowsRetryWithoutOrderWhenSchemaUnknown(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	p, err := f.svc.Rows(context.Background(), "notes", 1, 10)
	require.NoError(t, err)
	require.Len(t, p.Rows, 1)
	assert.Equal(t, "hello", p.Rows[0]["body"])
	assert.Equal(t, []string{"notes:id.asc"}, f.rest.orders)
}

func TestRowsRequiresTable(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	_, err := f.svc.Rows(context.Background(), "", 1, 10)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestAllRowsPagesThrough(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	for i := 0; i < 3; i++ {
		f.rest.tables["orders"] = append(f.rest.tables["orders"], map[string]any{"code": 10 + i, "item": "x"})
	}

	rows, err := f.svc.AllRows(context.Background(), "orders", 2)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestCreateUpdateDeleteRecordsActivity(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	ctx := context.Background()

	row, err := f.svc.Create(ctx, "orders", backend.Row{"item": "plum"})
	require.NoError(t, err)
	id := fmt.Sprint(row["code"])
	assert.Equal(t, "3", id)

	updated, err := f.svc.Update(ctx, "orders", id, backend.Row{"item": "peach"})
	require.NoError(t, err)
	assert.Equal(t, "peach", updated["item"])

	got, err := f.svc.Record(ctx, "orders", id)
	require.NoError(t, err)
	assert.Equal(t, "peach", got["item"])

	before, err := f.svc.Rows(ctx, "orders", 1, 10)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, "orders", id))
	after, err := f.svc.Rows(ctx, "orders", 1, 10)
	require.NoError(t, err)
	assert.Len(t, after.Rows, len(before.Rows)-1)
	assert.Equal(t, before.Total-1, after.Total)
	for _, r := range after.Rows {
		assert.NotEqual(t, id, fmt.Sprint(r["code"]))
	}
	_, err = f.svc.Record(ctx, "orders", id)
	assert.True(t, errs.IsNotFound(err), "got %v", err)

	entries, err := f.svc.RecordHistory("orders", id, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, history.ActionDelete, entries[0].Action)
	assert.Equal(t, history.ActionCreate, entries[2].Action)

	recent, err := f.svc.RecentActivity(10)
	require.NoError(t, err)
	assert.Len(t, recent, 4) // connect + three mutations

	lines := readLines(t, f.auditPath)
	require.Len(t, lines, 3)
	var e audit.Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &e))
	assert.Equal(t, audit.ActionCreate, e.Action)
	assert.Equal(t, []string{"item"}, e.Fields)
	assert.True(t, e.Success)
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	_, err := f.svc.Update(context.Background(), "orders", "99", backend.Row{"item": "x"})
	assert.True(t, errs.IsNotFound(err), "got %v", err)

	lines := readLines(t, f.auditPath)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"success":false`)

	entries, err := f.svc.RecordHistory("orders", "99", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	st, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalTables)
	assert.Equal(t, int64(2), st.TotalRecords)
	assert.Equal(t, int64(2048), st.DatabaseBytes)
	assert.Equal(t, int64(2048), st.StorageUsed)
	assert.True(t, st.StorageKnown)
	assert.False(t, st.LastUpdated.IsZero())
}

func TestStatsHonorsHiddenTables(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	require.NoError(t, f.svc.Session().SetHiddenTable("orders", true))

	st, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalTables)
	assert.Equal(t, int64(0), st.TotalRecords)
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	require.NoError(t, f.svc.Disconnect())

	_, err := f.svc.Tables(context.Background())
	assert.True(t, errs.IsInvalidInput(err))

	recent, err := f.svc.RecentActivity(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, history.ActionDisconnect, recent[0].Action)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	var out []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}
