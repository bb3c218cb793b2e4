package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sadopc/supadmin/internal/errs"
)

// Postgres SQLSTATE codes the catalog distinguishes.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrConnectionFailure = "08006"
	pgErrCannotConnect     = "08001"
	pgErrInvalidPassword   = "28P01"
	pgErrInsufficientPriv  = "42501"
	pgErrSyntaxError       = "42601"
	pgErrUndefinedTable    = "42P01"
	pgErrUndefinedColumn   = "42703"
	pgErrUniqueViolation   = "23505"
	pgErrQueryCanceled     = "57014"
)

// mapError converts a pgx error into an *errs.Error.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, op+": no rows", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg := fmt.Sprintf("%s: %s", op, pgErr.Message)
		switch pgErr.Code {
		case pgErrConnectionFailure, pgErrCannotConnect:
			return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
		case pgErrInvalidPassword, pgErrInsufficientPriv:
			return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
		case pgErrUndefinedTable:
			return errs.Wrap(errs.ErrKindNotFound, msg, err)
		case pgErrUniqueViolation:
			return errs.Wrap(errs.ErrKindConflict, msg, err)
		case pgErrQueryCanceled:
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		case pgErrSyntaxError, pgErrUndefinedColumn:
			return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
		}
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errs.Wrap(errs.ErrKindConnectionFailed, op, err)
	}

	return errs.Wrap(errs.ErrKindUnknown, op, err)
}
