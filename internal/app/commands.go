package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/supadmin/internal/admin"
	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/export"
	"github.com/sadopc/supadmin/internal/history"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/session"
)

// Service is what the UI needs from the admin layer. *admin.Service
// satisfies it; tests use a fake.
type Service interface {
	Connected() bool
	Connect(ctx context.Context, url, key, serviceKey string) error
	Disconnect() error
	Host() string
	HasServiceKey() bool

	Tables(ctx context.Context) ([]schema.TableInfo, error)
	Fields(ctx context.Context, table string) ([]schema.TableField, error)
	RowsWithFields(ctx context.Context, table string, fields []schema.TableField, page, pageSize int) (*backend.Page, error)
	AllRowsWithFields(ctx context.Context, table string, fields []schema.TableField, batch int) ([]backend.Row, error)
	RecordWithFields(ctx context.Context, table, id string, fields []schema.TableField) (backend.Row, error)
	Create(ctx context.Context, table string, fields backend.Row) (backend.Row, error)
	Update(ctx context.Context, table, id string, patch backend.Row) (backend.Row, error)
	Delete(ctx context.Context, table, id string) error

	Stats(ctx context.Context) (*admin.Stats, error)
	RecentActivity(limit int) ([]history.Entry, error)
	RecordHistory(table, id string, limit int) ([]history.Entry, error)

	DisplayName(table string) string
	Preferences() session.Preferences
	SetLanguage(lang session.Language) error
	SetTableDisplayName(table, name string) error
	SetHiddenTable(table string, hidden bool) error
	SetStorageType(ctx context.Context, t session.StorageType) error
}

var _ Service = (*admin.Service)(nil)

const (
	activityLimit = 20
	exportBatch   = 500
	exportTimeout = 5 * time.Minute
)

func (m *Model) connect(req appmsg.ConnectRequestMsg) tea.Cmd {
	svc := m.svc
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := svc.Connect(ctx, req.URL, req.Key, req.ServiceKey); err != nil {
			return appmsg.ConnectErrMsg{Err: err}
		}
		return appmsg.ConnectedMsg{Host: svc.Host()}
	}
}

func (m *Model) disconnect() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.Disconnect(); err != nil {
			return appmsg.StatusMsg{Text: errs.MessageOf(err), IsError: true}
		}
		return appmsg.DisconnectedMsg{}
	}
}

// loadTables lists every table. Gen lets the app drop a listing that
// belongs to a previous connection or refresh.
func (m *Model) loadTables() tea.Cmd {
	m.tablesGen++
	gen := m.tablesGen
	svc := m.svc
	timeout := m.timeout
	m.sidebar.SetLoading(true)
	m.tablelist.SetLoading(true)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tables, err := svc.Tables(ctx)
		if err != nil {
			return appmsg.TablesErrMsg{Err: err, Gen: gen}
		}
		return appmsg.TablesLoadedMsg{Tables: tables, Gen: gen}
	}
}

func (m *Model) loadStats() tea.Cmd {
	svc := m.svc
	timeout := m.timeout
	m.dashboard.SetLoading(true)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		st, err := svc.Stats(ctx)
		if err != nil {
			return appmsg.StatsErrMsg{Err: err}
		}
		activity, err := svc.RecentActivity(activityLimit)
		if err != nil {
			return appmsg.StatsErrMsg{Err: err}
		}
		return appmsg.StatsLoadedMsg{Stats: st, Activity: activity}
	}
}

func (m *Model) loadPage(req appmsg.LoadPageMsg) tea.Cmd {
	svc := m.svc
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fields, err := svc.Fields(ctx, req.Table)
		if err != nil {
			return appmsg.PageErrMsg{Table: req.Table, Err: err, RunID: req.RunID}
		}
		page, err := svc.RowsWithFields(ctx, req.Table, fields, req.Page, req.PageSize)
		if err != nil {
			return appmsg.PageErrMsg{Table: req.Table, Err: err, RunID: req.RunID}
		}
		return appmsg.PageLoadedMsg{Table: req.Table, Fields: fields, Page: page, RunID: req.RunID}
	}
}

func (m *Model) loadRecord(table, id string) tea.Cmd {
	svc := m.svc
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fields, err := svc.Fields(ctx, table)
		if err != nil {
			return appmsg.RecordErrMsg{Table: table, ID: id, Err: err}
		}
		row, err := svc.RecordWithFields(ctx, table, id, fields)
		if err != nil {
			return appmsg.RecordErrMsg{Table: table, ID: id, Err: err}
		}
		hist, err := svc.RecordHistory(table, id, activityLimit)
		if err != nil {
			return appmsg.RecordErrMsg{Table: table, ID: id, Err: err}
		}
		return appmsg.RecordLoadedMsg{Table: table, ID: id, Row: row, Fields: fields, History: hist}
	}
}

func (m *Model) save(req appmsg.SubmitFormMsg) tea.Cmd {
	svc := m.svc
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var (
			row backend.Row
			err error
		)
		if req.Mode == appmsg.FormEdit {
			row, err = svc.Update(ctx, req.Table, req.ID, req.Values)
		} else {
			row, err = svc.Create(ctx, req.Table, req.Values)
		}
		if err != nil {
			return appmsg.SaveErrMsg{Err: err}
		}
		return appmsg.SavedMsg{Mode: req.Mode, Table: req.Table, Row: row}
	}
}

func (m *Model) delete(req appmsg.DeleteRequestMsg) tea.Cmd {
	svc := m.svc
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := svc.Delete(ctx, req.Table, req.ID); err != nil {
			return appmsg.DeleteErrMsg{Err: err}
		}
		return appmsg.DeletedMsg{Table: req.Table, ID: req.ID}
	}
}

// exportTable writes every row of a table to a timestamped file in the
// export directory.
func (m *Model) exportTable(req appmsg.ExportRequestMsg) tea.Cmd {
	svc := m.svc
	dir := m.exportDir
	now := m.now()
	return func() tea.Msg {
		format, err := export.ParseFormat(req.Format)
		if err != nil {
			return appmsg.ExportErrMsg{Err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		fields, err := svc.Fields(ctx, req.Table)
		if err != nil {
			return appmsg.ExportErrMsg{Err: err}
		}
		rows, err := svc.AllRowsWithFields(ctx, req.Table, fields, exportBatch)
		if err != nil {
			return appmsg.ExportErrMsg{Err: err}
		}
		name := fmt.Sprintf("%s_%s.%s", req.Table, now.Format("20060102_150405"), format)
		path := filepath.Join(dir, name)
		if err := export.ToFile(path, format, export.Columns(fields, rows), rows); err != nil {
			return appmsg.ExportErrMsg{Err: err}
		}
		return appmsg.ExportCompleteMsg{Path: path, RowCount: int64(len(rows))}
	}
}

// setPreference applies one preference change and reports it.
func (m *Model) setPreference(apply func(ctx context.Context) error) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := apply(ctx); err != nil {
			return appmsg.StatusMsg{Text: errs.MessageOf(err), IsError: true}
		}
		return appmsg.PreferencesChangedMsg{}
	}
}
