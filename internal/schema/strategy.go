package schema

import (
	"context"
	"errors"

	"github.com/sadopc/supadmin/internal/logger"
)

// errEmpty marks a strategy that ran without error but found nothing.
var errEmpty = errors.New("no result")

// FieldStrategy is one way of describing a table's columns.
type FieldStrategy struct {
	Name  string
	Fetch func(ctx context.Context, table string) ([]TableField, error)
}

// TableStrategy is one way of listing tables. Counts is true when the
// strategy already fills RecordCount.
type TableStrategy struct {
	Name   string
	Counts bool
	Fetch  func(ctx context.Context) ([]TableInfo, error)
}

// ResolveFields tries strategies in order and returns the first non-empty
// successful result. Failures are logged and the chain advances. When
// every strategy fails the result is an empty, non-nil slice.
func ResolveFields(ctx context.Context, table string, strategies []FieldStrategy, log *logger.Logger) []TableField {
	for _, s := range strategies {
		if ctx.Err() != nil {
			break
		}
		fields, err := s.Fetch(ctx, table)
		if err == nil && len(fields) == 0 {
			err = errEmpty
		}
		if err != nil {
			log.With().Str("table", table).Str("strategy", s.Name).Err(err).Logger().
				Debug("field strategy skipped")
			continue
		}
		return fields
	}
	log.With().Str("table", table).Logger().Warn("no field strategy succeeded")
	return []TableField{}
}

// ResolveTables tries strategies in order and returns the first non-empty
// successful result together with the winning strategy. When every
// strategy fails it returns an empty slice and a zero strategy.
func ResolveTables(ctx context.Context, strategies []TableStrategy, log *logger.Logger) ([]TableInfo, TableStrategy) {
	for _, s := range strategies {
		if ctx.Err() != nil {
			break
		}
		tables, err := s.Fetch(ctx)
		if err == nil {
			tables = FilterSystem(tables)
			if len(tables) == 0 {
				err = errEmpty
			}
		}
		if err != nil {
			log.With().Str("strategy", s.Name).Err(err).Logger().Debug("table strategy skipped")
			continue
		}
		return tables, s
	}
	log.Warn("no table strategy succeeded")
	return []TableInfo{}, TableStrategy{}
}
