package app

// Message types live in github.com/sadopc/supadmin/internal/msg so the UI
// components can share them. This file re-exports the ones the app
// package handles.

import appmsg "github.com/sadopc/supadmin/internal/msg"

type (
	Pane   = appmsg.Pane
	Screen = appmsg.Screen

	NavigateMsg           = appmsg.NavigateMsg
	BackMsg               = appmsg.BackMsg
	ConnectRequestMsg     = appmsg.ConnectRequestMsg
	ConnectedMsg          = appmsg.ConnectedMsg
	ConnectErrMsg         = appmsg.ConnectErrMsg
	DisconnectRequestMsg  = appmsg.DisconnectRequestMsg
	DisconnectedMsg       = appmsg.DisconnectedMsg
	TablesLoadedMsg       = appmsg.TablesLoadedMsg
	TablesErrMsg          = appmsg.TablesErrMsg
	StatsLoadedMsg        = appmsg.StatsLoadedMsg
	StatsErrMsg           = appmsg.StatsErrMsg
	LoadPageMsg           = appmsg.LoadPageMsg
	PageLoadedMsg         = appmsg.PageLoadedMsg
	PageErrMsg            = appmsg.PageErrMsg
	RecordLoadedMsg       = appmsg.RecordLoadedMsg
	RecordErrMsg          = appmsg.RecordErrMsg
	OpenFormMsg           = appmsg.OpenFormMsg
	SubmitFormMsg         = appmsg.SubmitFormMsg
	SavedMsg              = appmsg.SavedMsg
	SaveErrMsg            = appmsg.SaveErrMsg
	ConfirmDeleteMsg      = appmsg.ConfirmDeleteMsg
	DeleteRequestMsg      = appmsg.DeleteRequestMsg
	DeletedMsg            = appmsg.DeletedMsg
	DeleteErrMsg          = appmsg.DeleteErrMsg
	ExportRequestMsg      = appmsg.ExportRequestMsg
	ExportCompleteMsg     = appmsg.ExportCompleteMsg
	ExportErrMsg          = appmsg.ExportErrMsg
	SetLanguageMsg        = appmsg.SetLanguageMsg
	SetStorageTypeMsg     = appmsg.SetStorageTypeMsg
	SetDisplayNameMsg     = appmsg.SetDisplayNameMsg
	SetHiddenMsg          = appmsg.SetHiddenMsg
	PreferencesChangedMsg = appmsg.PreferencesChangedMsg
	StatusMsg             = appmsg.StatusMsg
	RefreshMsg            = appmsg.RefreshMsg
)

const (
	PaneSidebar = appmsg.PaneSidebar
	PaneMain    = appmsg.PaneMain

	ScreenDashboard = appmsg.ScreenDashboard
	ScreenTables    = appmsg.ScreenTables
	ScreenTableView = appmsg.ScreenTableView
	ScreenRecord    = appmsg.ScreenRecord
	ScreenSettings  = appmsg.ScreenSettings
)
