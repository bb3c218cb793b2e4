package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/supadmin/internal/admin"
	"github.com/sadopc/supadmin/internal/audit"
	"github.com/sadopc/supadmin/internal/catalog"
	"github.com/sadopc/supadmin/internal/config"
	"github.com/sadopc/supadmin/internal/history"
	"github.com/sadopc/supadmin/internal/logger"
	"github.com/sadopc/supadmin/internal/storage"
	"github.com/sadopc/supadmin/internal/store"
)

const storagePingTimeout = 5 * time.Second

// openService opens the local stores and optional integrations and builds
// the admin service. Only the local store is required; the others degrade
// to warnings. The returned cleanup closes everything that was opened.
func openService(ctx context.Context, cfg *config.Config, log *logger.Logger) (*admin.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	st, err := store.OpenDefault()
	if err != nil {
		return nil, nil, fmt.Errorf("open local store: %w", err)
	}
	closers = append(closers, func() { _ = st.Close() })

	hist, err := history.New()
	if err != nil {
		log.WarnErr("history unavailable", err, nil)
		hist = nil
	} else {
		closers = append(closers, func() { _ = hist.Close() })
	}

	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		if dir, err := config.ConfigDir(); err == nil {
			auditLog, err = audit.New(filepath.Join(dir, "audit.jsonl"), cfg.Audit.MaxSizeMB)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not open audit log: %v\n", err)
				auditLog = nil
			} else {
				closers = append(closers, func() { _ = auditLog.Close() })
			}
		}
	}

	var cat *catalog.Catalog
	if cfg.Catalog.DSN != "" {
		cat, err = catalog.Open(ctx, cfg.Catalog.DSN)
		if err != nil {
			log.WarnErr("catalog unavailable", err, map[string]any{"dsn": audit.SanitizeDSN(cfg.Catalog.DSN)})
			cat = nil
		} else {
			log.With().Str("database", cat.DatabaseName()).Logger().Debug("catalog connected")
			closers = append(closers, func() { _ = cat.Close() })
		}
	}

	var objects *storage.Client
	if cfg.Storage.Enabled() {
		objects, err = storage.New(cfg.Storage)
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, storagePingTimeout)
			err = objects.Ping(pctx)
			cancel()
		}
		if err != nil {
			log.WarnErr("object storage unavailable", err, map[string]any{"endpoint": cfg.Storage.Endpoint})
			objects = nil
		}
	}

	svc, err := admin.New(admin.Options{
		Config:  cfg,
		Store:   st,
		History: hist,
		Audit:   auditLog,
		Catalog: cat,
		Storage: objects,
		Logger:  log,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, svc.Close)
	return svc, cleanup, nil
}
