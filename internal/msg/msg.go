// Package msg holds the Bubble Tea messages shared by the app and its
// components.
package msg

import (
	"github.com/sadopc/supadmin/internal/admin"
	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/history"
	"github.com/sadopc/supadmin/internal/schema"
)

// Pane focus targets.
type Pane int

const (
	PaneSidebar Pane = iota
	PaneMain
)

// Screen is a top-level page.
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenTables
	ScreenTableView
	ScreenRecord
	ScreenSettings
)

func (s Screen) String() string {
	switch s {
	case ScreenTables:
		return "tables"
	case ScreenTableView:
		return "table"
	case ScreenRecord:
		return "record"
	case ScreenSettings:
		return "settings"
	default:
		return "dashboard"
	}
}

// FormMode says whether a form creates or edits a row.
type FormMode int

const (
	FormCreate FormMode = iota
	FormEdit
)

// NavigateMsg switches screens. Table and RecordID are used by the table
// and record screens.
type NavigateMsg struct {
	Screen   Screen
	Table    string
	RecordID string
}

// BackMsg returns to the previous screen.
type BackMsg struct{}

// ConnectRequestMsg asks the app to connect.
type ConnectRequestMsg struct {
	URL        string
	Key        string
	ServiceKey string
}

// ConnectedMsg is sent when a connection was verified and stored.
type ConnectedMsg struct {
	Host string
}

// ConnectErrMsg is sent when a connection attempt fails.
type ConnectErrMsg struct {
	Err error
}

// DisconnectRequestMsg asks the app to forget the connection.
type DisconnectRequestMsg struct{}

// DisconnectedMsg is sent after the connection was cleared.
type DisconnectedMsg struct{}

// TablesLoadedMsg carries the table listing. Gen guards against stale
// results after a reconnect.
type TablesLoadedMsg struct {
	Tables []schema.TableInfo
	Gen    uint64
}

// TablesErrMsg is sent when the listing failed.
type TablesErrMsg struct {
	Err error
	Gen uint64
}

// StatsLoadedMsg carries the dashboard data.
type StatsLoadedMsg struct {
	Stats    *admin.Stats
	Activity []history.Entry
}

// StatsErrMsg is sent when the dashboard could not be computed.
type StatsErrMsg struct {
	Err error
}

// LoadPageMsg asks for one page of a table. RunID is echoed back in the
// result.
type LoadPageMsg struct {
	Table    string
	Page     int
	PageSize int
	RunID    uint64
}

// PageLoadedMsg carries one page of rows and the table's fields.
type PageLoadedMsg struct {
	Table  string
	Fields []schema.TableField
	Page   *backend.Page
	RunID  uint64
}

// PageErrMsg is sent when a page could not be loaded.
type PageErrMsg struct {
	Table string
	Err   error
	RunID uint64
}

// RecordLoadedMsg carries one row with its fields and activity.
type RecordLoadedMsg struct {
	Table   string
	ID      string
	Row     backend.Row
	Fields  []schema.TableField
	History []history.Entry
}

// RecordErrMsg is sent when a row could not be loaded.
type RecordErrMsg struct {
	Table string
	ID    string
	Err   error
}

// OpenFormMsg opens the create/edit form.
type OpenFormMsg struct {
	Mode   FormMode
	Table  string
	ID     string
	Fields []schema.TableField
	Row    backend.Row
}

// SubmitFormMsg carries the form values to save.
type SubmitFormMsg struct {
	Mode   FormMode
	Table  string
	ID     string
	Values backend.Row
}

// SavedMsg is sent after a successful create or update.
type SavedMsg struct {
	Mode  FormMode
	Table string
	Row   backend.Row
}

// SaveErrMsg is sent when a create or update failed.
type SaveErrMsg struct {
	Err error
}

// ConfirmDeleteMsg asks the user to confirm a delete.
type ConfirmDeleteMsg struct {
	Table string
	ID    string
}

// DeleteRequestMsg deletes a row after confirmation.
type DeleteRequestMsg struct {
	Table string
	ID    string
}

// DeletedMsg is sent after a row was deleted.
type DeletedMsg struct {
	Table string
	ID    string
}

// DeleteErrMsg is sent when a delete failed.
type DeleteErrMsg struct {
	Err error
}

// ExportRequestMsg exports every row of a table.
type ExportRequestMsg struct {
	Table  string
	Format string
}

// ExportCompleteMsg is sent when export finishes.
type ExportCompleteMsg struct {
	Path     string
	RowCount int64
}

// ExportErrMsg is sent when export fails.
type ExportErrMsg struct {
	Err error
}

// SetLanguageMsg changes the UI language.
type SetLanguageMsg struct {
	Language string
}

// SetStorageTypeMsg switches preference storage.
type SetStorageTypeMsg struct {
	StorageType string
}

// SetDisplayNameMsg renames a table in the UI.
type SetDisplayNameMsg struct {
	Table string
	Name  string
}

// SetHiddenMsg hides or shows a table.
type SetHiddenMsg struct {
	Table  string
	Hidden bool
}

// PreferencesChangedMsg is sent after any preference was saved.
type PreferencesChangedMsg struct{}

// StatusMsg updates the status bar text.
type StatusMsg struct {
	Text    string
	IsError bool
}

// RefreshMsg reloads the current screen.
type RefreshMsg struct{}
