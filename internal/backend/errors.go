package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sadopc/supadmin/internal/errs"
)

// PostgREST and PostgreSQL codes the client distinguishes.
const (
	CodeNoRows            = "PGRST116" // single-object request matched zero rows
	CodeRelationNotCached = "PGRST205" // table not found in the schema cache
	CodeFunctionNotFound  = "PGRST202"
	pgUndefinedTable      = "42P01"
	pgUndefinedFunction   = "42883"
	pgInsufficientPriv    = "42501"
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgInvalidText         = "22P02"
)

// APIError is the JSON error body PostgREST returns.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "http %d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, " (%s)", e.Details)
	}
	return b.String()
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var raw struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
		Hint    json.RawMessage `json:"hint"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}
	apiErr.Code = raw.Code
	apiErr.Message = raw.Message
	apiErr.Details = rawString(raw.Details)
	apiErr.Hint = rawString(raw.Hint)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// rawString renders a JSON value that is usually a string but may be null
// or an object.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// mapStatusError translates an HTTP error response into an *errs.Error.
func mapStatusError(op string, status int, body []byte) error {
	apiErr := parseAPIError(status, body)

	switch apiErr.Code {
	case CodeNoRows, CodeRelationNotCached, CodeFunctionNotFound, pgUndefinedTable, pgUndefinedFunction:
		return errs.Wrap(errs.ErrKindNotFound, op, apiErr)
	case pgInsufficientPriv:
		return errs.Wrap(errs.ErrKindPermissionDenied, op, apiErr)
	case pgUniqueViolation, pgForeignKeyViolation:
		return errs.Wrap(errs.ErrKindConflict, op, apiErr)
	case pgNotNullViolation, pgInvalidText:
		return errs.Wrap(errs.ErrKindInvalidInput, op, apiErr)
	}

	switch {
	case status == http.StatusNotFound:
		return errs.Wrap(errs.ErrKindNotFound, op, apiErr)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.Wrap(errs.ErrKindPermissionDenied, op, apiErr)
	case status == http.StatusConflict:
		return errs.Wrap(errs.ErrKindConflict, op, apiErr)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return errs.Wrap(errs.ErrKindInvalidInput, op, apiErr)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return errs.Wrap(errs.ErrKindTimeout, op, apiErr)
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		return errs.Wrap(errs.ErrKindConnectionFailed, op, apiErr)
	default:
		return errs.Wrap(errs.ErrKindQueryFailed, op, apiErr)
	}
}

// mapTransportError classifies failures that happened before a response
// was read.
func mapTransportError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return errs.Wrap(errs.ErrKindTimeout, op, err)
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return errs.Wrap(errs.ErrKindTimeout, op, err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, op, err)
}

// AsAPIError returns the PostgREST error in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
