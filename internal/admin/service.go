// Package admin is the application service shared by the TUI, the HTTP
// API and the scripting subcommands. It owns the session and builds a
// backend client for whatever connection the session currently holds.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sadopc/supadmin/internal/audit"
	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/catalog"
	"github.com/sadopc/supadmin/internal/config"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/history"
	"github.com/sadopc/supadmin/internal/logger"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/session"
	"github.com/sadopc/supadmin/internal/settings"
	"github.com/sadopc/supadmin/internal/storage"
)

var errNotConnected = errs.New(errs.ErrKindInvalidInput, "not connected to a backend")

// Options configure New. Everything but Store is optional.
type Options struct {
	Config     *config.Config
	Store      session.LocalStore
	History    *history.History
	Audit      *audit.Logger
	Catalog    *catalog.Catalog
	Storage    *storage.Client
	Logger     *logger.Logger
	HTTPClient *http.Client
}

// Service implements every user-facing operation.
type Service struct {
	cfg     *config.Config
	sess    *session.Session
	hist    *history.History
	audit   *audit.Logger
	catalog *catalog.Catalog
	storage *storage.Client
	log     *logger.Logger
	hc      *http.Client

	mu     sync.Mutex
	conn   session.ConnectionConfig
	client *backend.Client
	intro  *schema.Introspector
}

// New builds the service and its session.
func New(opts Options) (*Service, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		cfg:     cfg,
		hist:    opts.History,
		audit:   opts.Audit,
		catalog: opts.Catalog,
		storage: opts.Storage,
		log:     log,
		hc:      opts.HTTPClient,
	}
	sess, err := session.New(session.Options{
		Store:     opts.Store,
		Connector: s,
		Logger:    log,
		OnTransition: func(from, to session.State) {
			log.With().Str("from", from.String()).Str("to", to.String()).Logger().Info("connection state changed")
		},
	})
	if err != nil {
		return nil, err
	}
	s.sess = sess
	return s, nil
}

// Session returns the connection/preference state.
func (s *Service) Session() *session.Session { return s.sess }

// Config returns the application configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Close flushes pending settings syncs.
func (s *Service) Close() {
	s.sess.Close()
}

// --- session.Connector ---

// Probe checks that cfg reaches a live backend.
func (s *Service) Probe(ctx context.Context, cfg session.ConnectionConfig) error {
	c, err := s.newClient(cfg)
	if err != nil {
		return err
	}
	return c.Probe(ctx)
}

// Mirror returns the remote settings table for cfg.
func (s *Service) Mirror(cfg session.ConnectionConfig) (session.Mirror, error) {
	c, err := s.newClient(cfg)
	if err != nil {
		return nil, err
	}
	var creator settings.TableCreator
	if s.catalog != nil {
		creator = s.catalog
	}
	return settings.New(c, creator, s.log), nil
}

func (s *Service) newClient(cfg session.ConnectionConfig) (*backend.Client, error) {
	return backend.New(backend.Config{
		URL:        cfg.URL,
		Key:        cfg.Key,
		ServiceKey: cfg.ServiceKey,
		Timeout:    time.Duration(s.cfg.Backend.TimeoutSeconds) * time.Second,
		HTTPClient: s.hc,
		Logger:     s.log,
	})
}

// current returns the client for the session's connection, rebuilding it
// when the connection changed.
func (s *Service) current() (*backend.Client, *schema.Introspector, error) {
	if !s.sess.IsConfigured() {
		return nil, nil, errNotConnected
	}
	cfg := s.sess.Config()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil && s.conn == cfg {
		return s.client, s.intro, nil
	}
	c, err := s.newClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	var cat schema.Catalog
	if s.catalog != nil {
		cat = s.catalog
	}
	s.conn = cfg
	s.client = c
	s.intro = schema.NewIntrospector(c, cat, s.log)
	return c, s.intro, nil
}

// --- connection ---

// Connect verifies and stores a connection.
func (s *Service) Connect(ctx context.Context, url, key, serviceKey string) error {
	if err := s.sess.Connect(ctx, url, key, serviceKey); err != nil {
		return err
	}
	s.addHistory(history.Entry{Action: history.ActionConnect, Detail: config.DisplayHost(url)})
	return nil
}

// Disconnect forgets the connection. Preferences are kept.
func (s *Service) Disconnect() error {
	host := config.DisplayHost(s.sess.Config().URL)
	if err := s.sess.Disconnect(); err != nil {
		return err
	}
	s.mu.Lock()
	s.client, s.intro, s.conn = nil, nil, session.ConnectionConfig{}
	s.mu.Unlock()
	s.addHistory(history.Entry{Action: history.ActionDisconnect, Detail: host})
	return nil
}

// --- introspection ---

// Tables lists every user table with its record count.
func (s *Service) Tables(ctx context.Context) ([]schema.TableInfo, error) {
	_, intro, err := s.current()
	if err != nil {
		return nil, err
	}
	return intro.Tables(ctx), nil
}

// VisibleTables lists the tables that are not hidden.
func (s *Service) VisibleTables(ctx context.Context) ([]schema.TableInfo, error) {
	tables, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	return s.sess.VisibleTables(tables), nil
}

// Fields describes table. An empty result means the table's shape could
// not be discovered.
func (s *Service) Fields(ctx context.Context, table string) ([]schema.TableField, error) {
	if table == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "table is required")
	}
	_, intro, err := s.current()
	if err != nil {
		return nil, err
	}
	return intro.Fields(ctx, table), nil
}

// --- rows ---

// Rows returns one page of table ordered by primary key ascending.
func (s *Service) Rows(ctx context.Context, table string, page, pageSize int) (*backend.Page, error) {
	if table == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "table is required")
	}
	c, intro, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, c, table, intro.Fields(ctx, table), page, pageSize)
}

// RowsWithFields is Rows for a caller that already holds the table's
// fields, so the schema is not resolved a second time.
func (s *Service) RowsWithFields(ctx context.Context, table string, fields []schema.TableField, page, pageSize int) (*backend.Page, error) {
	if table == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "table is required")
	}
	c, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, c, table, fields, page, pageSize)
}

func (s *Service) list(ctx context.Context, c *backend.Client, table string, fields []schema.TableField, page, pageSize int) (*backend.Page, error) {
	order := schema.OrderColumn(fields)
	p, err := c.List(ctx, table, page, pageSize, order)
	if err != nil && len(fields) == 0 && order != "" && (errs.IsInvalidInput(err) || errs.IsQueryFailed(err)) {
		// Schema unknown and the guessed "id" column does not exist.
		s.log.With().Str("table", table).Err(err).Logger().Debug("retrying without order")
		return c.List(ctx, table, page, pageSize, "")
	}
	return p, err
}

// AllRows pages through table and returns every row.
func (s *Service) AllRows(ctx context.Context, table string, batch int) ([]backend.Row, error) {
	fields, err := s.Fields(ctx, table)
	if err != nil {
		return nil, err
	}
	return s.AllRowsWithFields(ctx, table, fields, batch)
}

// AllRowsWithFields is AllRows with the table's fields already resolved.
func (s *Service) AllRowsWithFields(ctx context.Context, table string, fields []schema.TableField, batch int) ([]backend.Row, error) {
	if batch <= 0 {
		batch = 1000
	}
	var out []backend.Row
	for page := 1; ; page++ {
		p, err := s.RowsWithFields(ctx, table, fields, page, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Rows...)
		if len(p.Rows) < batch || int64(len(out)) >= p.Total {
			break
		}
	}
	if out == nil {
		out = []backend.Row{}
	}
	return out, nil
}

// Record fetches the row of table identified by id.
func (s *Service) Record(ctx context.Context, table, id string) (backend.Row, error) {
	c, intro, err := s.current()
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, table, schema.PrimaryKey(intro.Fields(ctx, table)), id)
}

// RecordWithFields is Record with the table's fields already resolved.
func (s *Service) RecordWithFields(ctx context.Context, table, id string, fields []schema.TableField) (backend.Row, error) {
	c, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, table, schema.PrimaryKey(fields), id)
}

// Create inserts a row and returns it as stored.
func (s *Service) Create(ctx context.Context, table string, fields backend.Row) (backend.Row, error) {
	c, intro, err := s.current()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	row, err := c.Insert(ctx, table, fields)
	var id string
	if err == nil {
		id = recordID(row, schema.PrimaryKey(intro.Fields(ctx, table)))
	}
	s.recordMutation(audit.ActionCreate, history.ActionCreate, table, id, fields, start, err)
	return row, err
}

// Update patches the row of table identified by id.
func (s *Service) Update(ctx context.Context, table, id string, patch backend.Row) (backend.Row, error) {
	c, intro, err := s.current()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	row, err := c.Update(ctx, table, schema.PrimaryKey(intro.Fields(ctx, table)), id, patch)
	s.recordMutation(audit.ActionUpdate, history.ActionUpdate, table, id, patch, start, err)
	return row, err
}

// Delete removes the row of table identified by id.
func (s *Service) Delete(ctx context.Context, table, id string) error {
	c, intro, err := s.current()
	if err != nil {
		return err
	}
	start := time.Now()
	err = c.Delete(ctx, table, schema.PrimaryKey(intro.Fields(ctx, table)), id)
	s.recordMutation(audit.ActionDelete, history.ActionDelete, table, id, nil, start, err)
	return err
}

func recordID(row backend.Row, pk string) string {
	v, ok := row[pk]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (s *Service) recordMutation(aa audit.Action, ha history.Action, table, id string, fields backend.Row, start time.Time, err error) {
	e := audit.Entry{
		Action:     aa,
		Table:      table,
		RecordID:   id,
		Fields:     audit.FieldNames(fields),
		Backend:    audit.SanitizeURL(s.sess.Config().URL),
		DurationMS: time.Since(start).Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		e.Error = errs.MessageOf(err)
		s.log.With().Str("table", table).Str("action", string(aa)).Err(err).Logger().Warn("mutation failed")
	}
	if s.cfg.Audit.Enabled {
		s.audit.Log(e)
	}
	if err == nil {
		detail := ""
		if len(e.Fields) > 0 {
			detail = joinFields(e.Fields)
		}
		s.addHistory(history.Entry{
			Action:   ha,
			Table:    table,
			RecordID: id,
			Detail:   detail,
			Backend:  config.DisplayHost(s.sess.Config().URL),
		})
	}
}

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f
	}
	return out
}

func (s *Service) addHistory(e history.Entry) {
	if s.hist == nil {
		return
	}
	if err := s.hist.Add(e); err != nil {
		s.log.WarnErr("history write failed", err, nil)
	}
}

// --- activity ---

// RecentActivity returns the newest history entries.
func (s *Service) RecentActivity(limit int) ([]history.Entry, error) {
	if s.hist == nil {
		return []history.Entry{}, nil
	}
	return s.hist.Recent(limit)
}

// RecordHistory returns the history of one row.
func (s *Service) RecordHistory(table, id string, limit int) ([]history.Entry, error) {
	if s.hist == nil {
		return []history.Entry{}, nil
	}
	return s.hist.ForRecord(table, id, limit)
}

// Connected reports whether a connection is configured.
func (s *Service) Connected() bool { return s.sess.IsConfigured() }

// DisplayName returns the user-facing name of table.
func (s *Service) DisplayName(table string) string { return s.sess.DisplayName(table) }

// --- preferences ---

// Preferences returns a snapshot of the user preferences.
func (s *Service) Preferences() session.Preferences { return s.sess.Preferences() }

// Host is the display host of the current connection.
func (s *Service) Host() string { return config.DisplayHost(s.sess.Config().URL) }

// HasServiceKey reports whether the connection carries a service key.
func (s *Service) HasServiceKey() bool { return s.sess.Config().ServiceKey != "" }

func (s *Service) SetLanguage(lang session.Language) error { return s.sess.SetLanguage(lang) }

func (s *Service) SetTableDisplayName(table, name string) error {
	return s.sess.SetTableDisplayName(table, name)
}

func (s *Service) SetHiddenTable(table string, hidden bool) error {
	return s.sess.SetHiddenTable(table, hidden)
}

func (s *Service) SetStorageType(ctx context.Context, t session.StorageType) error {
	return s.sess.SetStorageType(ctx, t)
}
