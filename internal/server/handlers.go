package server

import (
	"net/http"
	"strings"

	"github.com/dracory/api"
	"github.com/go-chi/chi/v5"

	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/errs"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.Respond(w, r, api.SuccessWithData("ok", map[string]any{
		"connected": s.svc.Connected(),
	}))
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnection(w, r) {
		return
	}
	tables, err := s.svc.VisibleTables(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(tables))
	for _, t := range tables {
		out = append(out, map[string]any{
			"name":        t.Name,
			"displayName": s.svc.DisplayName(t.Name),
			"description": t.Description,
			"recordCount": t.RecordCount,
		})
	}
	api.Respond(w, r, api.SuccessWithData("tables", map[string]any{"tables": out}))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnection(w, r) {
		return
	}
	table := chi.URLParam(r, "table")
	fields, err := s.svc.Fields(r.Context(), table)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.Respond(w, r, api.SuccessWithData("schema", map[string]any{
		"table":  table,
		"fields": fields,
	}))
}

func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimSpace(r.URL.Query().Get("table"))
	if table == "" {
		s.fail(w, r, errs.New(errs.ErrKindInvalidInput, "table is required"))
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pageSize, err := intParam(r, "pageSize", backend.DefaultPageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.requireConnection(w, r) {
		return
	}

	p, err := s.svc.Rows(r.Context(), table, page, pageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.Respond(w, r, api.SuccessWithData("rows", map[string]any{
		"data":       p.Rows,
		"total":      p.Total,
		"page":       p.Page,
		"pageSize":   p.PageSize,
		"totalPages": backend.TotalPages(p.Total, p.PageSize),
	}))
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnection(w, r) {
		return
	}
	row, err := s.svc.Record(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.Respond(w, r, api.SuccessWithData("row", map[string]any{"row": row}))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnection(w, r) {
		return
	}
	fields, err := decodeRow(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	row, err := s.svc.Create(r.Context(), chi.URLParam(r, "table"), fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.RespondWithStatusCode(w, r, api.SuccessWithData("row created", map[string]any{"row": row}), http.StatusCreated)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnection(w, r) {
		return
	}
	patch, err := decodeRow(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	row, err := s.svc.Update(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.Respond(w, r, api.SuccessWithData("row updated", map[string]any{"row": row}))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnection(w, r) {
		return
	}
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	api.Respond(w, r, api.Success("row deleted"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnection(w, r) {
		return
	}
	st, err := s.svc.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.Respond(w, r, api.SuccessWithData("stats", map[string]any{"stats": st}))
}
