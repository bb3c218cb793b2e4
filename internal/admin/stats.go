package admin

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sadopc/supadmin/internal/schema"
)

// RPCDatabaseSize is the optional stored procedure returning the size of
// the current database in bytes.
const RPCDatabaseSize = "get_database_size"

// Stats is the dashboard summary.
type Stats struct {
	TotalTables   int                `json:"totalTables"`
	TotalRecords  int64              `json:"totalRecords"`
	DatabaseBytes int64              `json:"databaseBytes"`
	ObjectBytes   int64              `json:"objectBytes"`
	StorageUsed   int64              `json:"storageUsed"`
	StorageKnown  bool               `json:"storageKnown"`
	LastUpdated   time.Time          `json:"lastUpdated"`
	Tables        []schema.TableInfo `json:"tables"`
}

// Stats computes the dashboard summary over the visible tables. Size and
// activity lookups are best effort; only the table listing can fail.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	tables, err := s.VisibleTables(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Tables: tables, TotalTables: len(tables)}
	for _, t := range tables {
		st.TotalRecords += t.RecordCount
	}

	var (
		dbBytes, objBytes int64
		dbOK, objOK       bool
		last              time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dbBytes, dbOK = s.databaseSize(gctx)
		return nil
	})
	if s.storage != nil {
		g.Go(func() error {
			sum, err := s.storage.Usage(gctx)
			if err != nil {
				s.log.WarnErr("storage usage unavailable", err, nil)
				return nil
			}
			objBytes, objOK = sum.Bytes, true
			return nil
		})
	}
	if s.hist != nil {
		g.Go(func() error {
			t, err := s.hist.LastActivity()
			if err != nil {
				s.log.WarnErr("last activity unavailable", err, nil)
				return nil
			}
			last = t
			return nil
		})
	}
	_ = g.Wait()

	st.DatabaseBytes = dbBytes
	st.ObjectBytes = objBytes
	st.StorageUsed = dbBytes + objBytes
	st.StorageKnown = dbOK || objOK
	st.LastUpdated = last
	return st, nil
}

func (s *Service) databaseSize(ctx context.Context) (int64, bool) {
	c, _, err := s.current()
	if err == nil {
		var n int64
		if err := c.RPC(ctx, RPCDatabaseSize, nil, &n); err == nil {
			return n, true
		}
	}
	if s.catalog != nil {
		n, err := s.catalog.DatabaseSize(ctx)
		if err == nil {
			return n, true
		}
		s.log.WarnErr("database size unavailable", err, nil)
	}
	return 0, false
}
