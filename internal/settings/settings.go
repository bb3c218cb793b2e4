// Package settings mirrors preferences into a key/value table on the
// backend so they follow the user between machines.
package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/logger"
)

// TableName is the backend table holding mirrored settings.
const TableName = "supadmin_settings"

// Row keys.
const (
	KeyConnection = "connection_config"
	KeyApp        = "app_config"
)

// RPCCreateTable is the optional stored procedure that creates TableName.
const RPCCreateTable = "create_settings_table"

// Backend is the subset of *backend.Client the mirror needs.
type Backend interface {
	Count(ctx context.Context, table string) (int64, error)
	RPC(ctx context.Context, fn string, args, out any) error
	Select(ctx context.Context, q backend.Query) ([]backend.Row, error)
	Get(ctx context.Context, table, pk string, id any) (backend.Row, error)
	Upsert(ctx context.Context, table string, row backend.Row, onConflict string) error
	Delete(ctx context.Context, table, pk string, id any) error
}

// TableCreator creates the settings table over a direct connection.
// *catalog.Catalog satisfies it.
type TableCreator interface {
	EnsureSettingsTable(ctx context.Context, table string) error
}

// Mirror reads and writes TableName.
type Mirror struct {
	b       Backend
	creator TableCreator
	log     *logger.Logger
	now     func() time.Time
}

// New returns a Mirror. creator may be nil.
func New(b Backend, creator TableCreator, log *logger.Logger) *Mirror {
	if log == nil {
		log = logger.Nop()
	}
	return &Mirror{b: b, creator: creator, log: log, now: time.Now}
}

// EnsureTable makes sure TableName exists. It is idempotent: an existing
// table is left alone, otherwise the create RPC is tried, then the direct
// catalog connection.
func (m *Mirror) EnsureTable(ctx context.Context) error {
	_, err := m.b.Count(ctx, TableName)
	if err == nil {
		return nil
	}
	if !errs.IsNotFound(err) {
		return errs.Wrap(errs.KindOf(err), "check settings table", err)
	}

	rpcErr := m.b.RPC(ctx, RPCCreateTable, nil, nil)
	if rpcErr == nil {
		return nil
	}
	m.log.With().Err(rpcErr).Logger().Debug("create_settings_table rpc unavailable")

	if m.creator == nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "settings table missing and cannot be created", rpcErr)
	}
	if err := m.creator.EnsureSettingsTable(ctx, TableName); err != nil {
		return errs.Wrap(errs.KindOf(err), "create settings table", err)
	}
	return nil
}

// Upsert stores value under key, updating an existing row or inserting a
// new one.
func (m *Mirror) Upsert(ctx context.Context, key string, value any) error {
	if key == "" {
		return errs.New(errs.ErrKindInvalidInput, "settings key is empty")
	}
	row := backend.Row{
		"key":        key,
		"value":      value,
		"updated_at": m.now().UTC().Format(time.RFC3339Nano),
	}
	return m.b.Upsert(ctx, TableName, row, "key")
}

// Get returns the raw JSON stored under key. ok is false when no row
// exists.
func (m *Mirror) Get(ctx context.Context, key string) (value json.RawMessage, ok bool, err error) {
	row, err := m.b.Get(ctx, TableName, "key", key)
	if errs.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	raw, err := json.Marshal(row["value"])
	if err != nil {
		return nil, false, errs.Wrap(errs.ErrKindQueryFailed, "encode settings value", err)
	}
	return raw, true, nil
}

// Load decodes the value under key into out. ok is false when absent.
func (m *Mirror) Load(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := m.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errs.Wrap(errs.ErrKindQueryFailed, "decode settings value", err)
	}
	return true, nil
}

// All returns every stored setting keyed by name.
func (m *Mirror) All(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := m.b.Select(ctx, backend.Query{
		Table:   TableName,
		Columns: []string{"key", "value"},
		Order:   "key.asc",
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(rows))
	for _, r := range rows {
		key, _ := r["key"].(string)
		if key == "" {
			continue
		}
		raw, err := json.Marshal(r["value"])
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "encode settings value", err)
		}
		out[key] = raw
	}
	return out, nil
}

// Delete removes key.
func (m *Mirror) Delete(ctx context.Context, key string) error {
	return m.b.Delete(ctx, TableName, "key", key)
}
