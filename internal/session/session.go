// Package session holds the connection and preference state of one
// supadmin user. A *Session is created at startup from the local store and
// passed to every view and handler that needs it.
package session

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/sadopc/supadmin/internal/config"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/logger"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/settings"
)

// StoreKey is the local store key holding the persisted session.
const StoreKey = "admin-db-config"

// State is the connection lifecycle state.
type State int

const (
	StateUnconfigured State = iota
	StateConnecting
	StateConfigured
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConnecting:
		return "connecting"
	case StateConfigured:
		return "configured"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// StorageType selects where preferences live.
type StorageType string

const (
	StorageLocal  StorageType = "local"
	StorageRemote StorageType = "remote"
)

// Language is a UI language.
type Language string

const (
	LangEN Language = "en"
	LangFR Language = "fr"
)

// ConnectionConfig identifies the backend.
type ConnectionConfig struct {
	URL          string `json:"url"`
	Key          string `json:"key"`
	ServiceKey   string `json:"serviceKey,omitempty"`
	IsConfigured bool   `json:"isConfigured"`
}

// Preferences are user settings kept alongside the connection.
type Preferences struct {
	Language          Language
	TableDisplayNames map[string]string
	HiddenTables      map[string]bool
	StorageType       StorageType
}

func defaultPreferences() Preferences {
	return Preferences{
		Language:          LangEN,
		TableDisplayNames: map[string]string{},
		HiddenTables:      map[string]bool{},
		StorageType:       StorageLocal,
	}
}

func (p Preferences) clone() Preferences {
	out := p
	out.TableDisplayNames = make(map[string]string, len(p.TableDisplayNames))
	for k, v := range p.TableDisplayNames {
		out.TableDisplayNames[k] = v
	}
	out.HiddenTables = make(map[string]bool, len(p.HiddenTables))
	for k, v := range p.HiddenTables {
		out.HiddenTables[k] = v
	}
	return out
}

// persisted is the JSON layout under StoreKey.
type persisted struct {
	Language          Language          `json:"language"`
	TableDisplayNames map[string]string `json:"tableDisplayNames"`
	HiddenTables      []string          `json:"hiddenTables"`
	StorageType       StorageType       `json:"storageType"`
	SupabaseConfig    ConnectionConfig  `json:"supabaseConfig"`
}

// appPayload is the JSON mirrored under settings.KeyApp.
type appPayload struct {
	Language          Language          `json:"language"`
	TableDisplayNames map[string]string `json:"tableDisplayNames"`
	HiddenTables      []string          `json:"hiddenTables"`
	StorageType       StorageType       `json:"storageType"`
}

// connectionPayload is the JSON mirrored under settings.KeyConnection. The
// service key never leaves the machine.
type connectionPayload struct {
	URL          string `json:"url"`
	Key          string `json:"key"`
	IsConfigured bool   `json:"isConfigured"`
}

// LocalStore persists the session between runs. *store.Store satisfies it.
type LocalStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Mirror is the remote settings table. *settings.Mirror satisfies it.
type Mirror interface {
	EnsureTable(ctx context.Context) error
	Upsert(ctx context.Context, key string, value any) error
}

// Connector reaches the backend for a given configuration.
type Connector interface {
	Probe(ctx context.Context, cfg ConnectionConfig) error
	Mirror(cfg ConnectionConfig) (Mirror, error)
}

// Options configure New.
type Options struct {
	Store        LocalStore
	Connector    Connector
	Logger       *logger.Logger
	OnTransition func(from, to State)
}

// Session is the connection/config state machine.
type Session struct {
	store        LocalStore
	connector    Connector
	log          *logger.Logger
	onTransition func(from, to State)
	queue        *syncQueue

	mu     sync.RWMutex
	state  State
	cfg    ConnectionConfig
	prefs  Preferences
	mirror Mirror
}

// New builds a Session and rehydrates it from the local store.
func New(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "session: store is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &Session{
		store:        opts.Store,
		connector:    opts.Connector,
		log:          log,
		onTransition: opts.OnTransition,
		state:        StateUnconfigured,
		prefs:        defaultPreferences(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.queue = newSyncQueue(log)
	return s, nil
}

func (s *Session) load() error {
	raw, ok, err := s.store.Get(StoreKey)
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "load session", err)
	}
	if !ok {
		return nil
	}
	var p persisted
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.WarnErr("stored session is unreadable, starting fresh", err, nil)
		return nil
	}

	if p.Language == LangEN || p.Language == LangFR {
		s.prefs.Language = p.Language
	}
	if p.StorageType == StorageRemote {
		s.prefs.StorageType = StorageRemote
	}
	for k, v := range p.TableDisplayNames {
		if v != "" {
			s.prefs.TableDisplayNames[k] = v
		}
	}
	for _, t := range p.HiddenTables {
		s.prefs.HiddenTables[t] = true
	}
	if p.SupabaseConfig.IsConfigured && ValidateConnection(p.SupabaseConfig.URL, p.SupabaseConfig.Key) == nil {
		s.cfg = p.SupabaseConfig
		s.state = StateConfigured
	}
	return nil
}

// Close drains pending remote syncs.
func (s *Session) Close() {
	s.queue.close()
}

// Flush waits for pending remote syncs.
func (s *Session) Flush(ctx context.Context) error {
	return s.queue.flush(ctx)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConfigured reports whether the application may be used.
func (s *Session) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateConfigured && s.cfg.IsConfigured
}

// Config returns a copy of the connection configuration.
func (s *Session) Config() ConnectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Preferences returns a copy of the preferences.
func (s *Session) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.clone()
}

// Language returns the UI language.
func (s *Session) Language() Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Language
}

// DisplayName returns the display override for table, or table itself.
func (s *Session) DisplayName(table string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name := s.prefs.TableDisplayNames[table]; name != "" {
		return name
	}
	return table
}

// IsHidden reports whether table is hidden from listings.
func (s *Session) IsHidden(table string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.HiddenTables[table]
}

// VisibleTables drops hidden tables, keeping order.
func (s *Session) VisibleTables(tables []schema.TableInfo) []schema.TableInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.TableInfo, 0, len(tables))
	for _, t := range tables {
		if !s.prefs.HiddenTables[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

func (s *Session) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	s.notify(from, to)
}

func (s *Session) notify(from, to State) {
	if from == to {
		return
	}
	s.log.With().Str("from", from.String()).Str("to", to.String()).Logger().Debug("session transition")
	if s.onTransition != nil {
		s.onTransition(from, to)
	}
}

// Connect validates and verifies a connection, then persists it. Loopback
// hosts are accepted on format alone. For other hosts a probe answered
// with "not found" counts as reachable; any other probe error fails the
// connection and nothing is persisted.
func (s *Session) Connect(ctx context.Context, rawURL, key, serviceKey string) error {
	rawURL = strings.TrimRight(strings.TrimSpace(rawURL), "/")
	key = strings.TrimSpace(key)
	serviceKey = strings.TrimSpace(serviceKey)

	if err := ValidateConnection(rawURL, key); err != nil {
		return err
	}
	selfHosted := IsSelfHosted(rawURL)

	s.mu.Lock()
	if s.state == StateConnecting {
		s.mu.Unlock()
		return errs.New(errs.ErrKindInvalidInput, "a connection attempt is already in progress")
	}
	if selfHosted && s.prefs.StorageType == StorageRemote && serviceKey == "" {
		s.mu.Unlock()
		return errs.New(errs.ErrKindInvalidKey, "a service key is required for a self-hosted backend with remote storage")
	}
	prevState := s.state
	s.state = StateConnecting
	s.mu.Unlock()
	s.notify(prevState, StateConnecting)

	cfg := ConnectionConfig{URL: rawURL, Key: key, ServiceKey: serviceKey}

	if !selfHosted {
		if s.connector == nil {
			s.setState(prevState)
			return errs.New(errs.ErrKindConnectionFailed, "connection failed: no connector")
		}
		if err := s.connector.Probe(ctx, cfg); err != nil && !errs.IsNotFound(err) {
			s.setState(prevState)
			return errs.Wrap(errs.ErrKindConnectionFailed, "connection failed", err)
		}
	}

	cfg.IsConfigured = true
	s.mu.Lock()
	prevCfg := s.cfg
	s.cfg = cfg
	s.mirror = nil
	if err := s.persistLocked(); err != nil {
		s.cfg = prevCfg
		s.state = prevState
		s.mu.Unlock()
		s.notify(StateConnecting, prevState)
		return err
	}
	s.state = StateConfigured
	remote := s.prefs.StorageType == StorageRemote
	s.mu.Unlock()
	s.notify(StateConnecting, StateConfigured)

	s.log.With().Str("host", config.DisplayHost(rawURL)).Logger().Info("connected")
	if remote {
		s.syncAll()
	}
	return nil
}

// Disconnect clears the connection and returns to Unconfigured.
// Preferences are kept.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	from := s.state
	s.state = StateDisconnected
	s.cfg = ConnectionConfig{}
	s.mirror = nil
	err := s.persistLocked()
	s.mu.Unlock()
	s.notify(from, StateDisconnected)

	s.setState(StateUnconfigured)
	return err
}

// SetStorageType switches preference storage. Switching to remote first
// ensures the settings table exists and aborts, keeping the previous type,
// when it cannot; it then runs a full sync. Switching back to local pushes
// the app settings once more and stops syncing after that.
func (s *Session) SetStorageType(ctx context.Context, t StorageType) error {
	if t != StorageLocal && t != StorageRemote {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown storage type %q", t)
	}
	s.mu.RLock()
	current := s.prefs.StorageType
	cfg := s.cfg
	configured := s.state == StateConfigured
	s.mu.RUnlock()
	if t == current {
		return nil
	}

	if t == StorageRemote {
		if !configured {
			return errs.New(errs.ErrKindInvalidInput, "connect before enabling remote storage")
		}
		if IsSelfHosted(cfg.URL) && cfg.ServiceKey == "" {
			return errs.New(errs.ErrKindInvalidKey, "a service key is required for a self-hosted backend with remote storage")
		}
		m, err := s.currentMirror()
		if err != nil {
			return err
		}
		if err := m.EnsureTable(ctx); err != nil {
			s.log.WarnErr("settings table unavailable, keeping local storage", err, nil)
			return err
		}
	}

	if err := s.update(func(p *Preferences) { p.StorageType = t }); err != nil {
		return err
	}
	switch t {
	case StorageRemote:
		s.syncAll()
		if err := s.Flush(ctx); err != nil {
			s.log.WarnErr("initial settings sync did not finish", err, nil)
		}
	case StorageLocal:
		if !configured {
			break
		}
		// Final write; the mirror is not touched after this.
		s.syncApp()
		if err := s.Flush(ctx); err != nil {
			s.log.WarnErr("final settings sync did not finish", err, nil)
		}
	}
	return nil
}

// SetLanguage changes the UI language.
func (s *Session) SetLanguage(lang Language) error {
	if lang != LangEN && lang != LangFR {
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported language %q", lang)
	}
	return s.mutate(func(p *Preferences) { p.Language = lang })
}

// SetTableDisplayName sets the display override for table. An empty name
// removes the override.
func (s *Session) SetTableDisplayName(table, name string) error {
	if table == "" {
		return errs.New(errs.ErrKindInvalidInput, "table name is empty")
	}
	name = strings.TrimSpace(name)
	return s.mutate(func(p *Preferences) {
		if name == "" || name == table {
			delete(p.TableDisplayNames, table)
			return
		}
		p.TableDisplayNames[table] = name
	})
}

// SetHiddenTable hides or shows table in listings.
func (s *Session) SetHiddenTable(table string, hidden bool) error {
	if table == "" {
		return errs.New(errs.ErrKindInvalidInput, "table name is empty")
	}
	return s.mutate(func(p *Preferences) {
		if hidden {
			p.HiddenTables[table] = true
		} else {
			delete(p.HiddenTables, table)
		}
	})
}

// mutate is a local read-modify-write followed by a remote sync when
// remote storage is on. Sync failures are only logged.
func (s *Session) mutate(fn func(p *Preferences)) error {
	if err := s.update(fn); err != nil {
		return err
	}
	s.mu.RLock()
	remote := s.prefs.StorageType == StorageRemote && s.state == StateConfigured
	s.mu.RUnlock()
	if remote {
		s.syncApp()
	}
	return nil
}

func (s *Session) update(fn func(p *Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.prefs.clone()
	fn(&s.prefs)
	if err := s.persistLocked(); err != nil {
		s.prefs = prev
		return err
	}
	return nil
}

func (s *Session) persistLocked() error {
	p := persisted{
		Language:          s.prefs.Language,
		TableDisplayNames: s.prefs.TableDisplayNames,
		HiddenTables:      sortedKeys(s.prefs.HiddenTables),
		StorageType:       s.prefs.StorageType,
		SupabaseConfig:    s.cfg,
	}
	data, err := json.Marshal(p)
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "encode session", err)
	}
	if err := s.store.Set(StoreKey, string(data)); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "save session", err)
	}
	return nil
}

func (s *Session) currentMirror() (Mirror, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mirror != nil {
		return s.mirror, nil
	}
	if s.connector == nil {
		return nil, errs.New(errs.ErrKindConnectionFailed, "no backend connector")
	}
	m, err := s.connector.Mirror(s.cfg)
	if err != nil {
		return nil, err
	}
	s.mirror = m
	return m, nil
}

func (s *Session) syncAll() {
	s.syncConnection()
	s.syncApp()
}

func (s *Session) syncApp() {
	s.mu.RLock()
	payload := appPayload{
		Language:          s.prefs.Language,
		TableDisplayNames: s.prefs.clone().TableDisplayNames,
		HiddenTables:      sortedKeys(s.prefs.HiddenTables),
		StorageType:       s.prefs.StorageType,
	}
	s.mu.RUnlock()
	s.enqueue(settings.KeyApp, payload)
}

func (s *Session) syncConnection() {
	s.mu.RLock()
	payload := connectionPayload{URL: s.cfg.URL, Key: s.cfg.Key, IsConfigured: s.cfg.IsConfigured}
	s.mu.RUnlock()
	s.enqueue(settings.KeyConnection, payload)
}

func (s *Session) enqueue(key string, payload any) {
	m, err := s.currentMirror()
	if err != nil {
		s.log.WarnErr("settings sync skipped", err, map[string]any{"key": key})
		return
	}
	s.queue.enqueue(key, func(ctx context.Context) error {
		return m.Upsert(ctx, key, payload)
	})
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
