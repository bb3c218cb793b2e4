// Package server exposes the admin service as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dracory/api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sadopc/supadmin/internal/admin"
	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/logger"
	"github.com/sadopc/supadmin/internal/schema"
)

// Service is the part of *admin.Service the API serves.
type Service interface {
	Connected() bool
	DisplayName(table string) string
	VisibleTables(ctx context.Context) ([]schema.TableInfo, error)
	Fields(ctx context.Context, table string) ([]schema.TableField, error)
	Rows(ctx context.Context, table string, page, pageSize int) (*backend.Page, error)
	Record(ctx context.Context, table, id string) (backend.Row, error)
	Create(ctx context.Context, table string, fields backend.Row) (backend.Row, error)
	Update(ctx context.Context, table, id string, patch backend.Row) (backend.Row, error)
	Delete(ctx context.Context, table, id string) error
	Stats(ctx context.Context) (*admin.Stats, error)
}

const maxBodyBytes = 1 << 20

// Server routes API requests to a Service.
type Server struct {
	svc    Service
	log    *logger.Logger
	router chi.Router
}

// New builds the router.
func New(svc Service, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/table-data", s.handleTableData)
		r.Get("/tables", s.handleTables)
		r.Route("/tables/{table}", func(r chi.Router) {
			r.Get("/schema", s.handleSchema)
			r.Post("/rows", s.handleCreate)
			r.Get("/rows/{id}", s.handleRecord)
			r.Patch("/rows/{id}", s.handleUpdate)
			r.Delete("/rows/{id}", s.handleDelete)
		})
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.With().Str("addr", addr).Logger().Info("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("ms", int(time.Since(start).Milliseconds())).
			Str("request_id", middleware.GetReqID(r.Context())).
			Logger().Debug("api request")
	})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput, errs.ErrKindInvalidURL, errs.ErrKindInvalidKey:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConflict:
		return http.StatusConflict
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.With().Str("path", r.URL.Path).Err(err).Logger().Error("api request failed")
	}
	api.RespondWithStatusCode(w, r, api.Error(errs.MessageOf(err)), status)
}

func (s *Server) requireConnection(w http.ResponseWriter, r *http.Request) bool {
	if s.svc.Connected() {
		return true
	}
	api.RespondWithStatusCode(w, r, api.Error("not connected to a backend"), http.StatusServiceUnavailable)
	return false
}

// intParam parses a positive integer query parameter, returning def when
// it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errs.Newf(errs.ErrKindInvalidInput, "%s must be a positive integer", name)
	}
	return n, nil
}

func decodeRow(w http.ResponseWriter, r *http.Request) (backend.Row, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	var row backend.Row
	if err := dec.Decode(&row); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "request body must be a JSON object", err)
	}
	if row == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "request body must be a JSON object")
	}
	return row, nil
}
