package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/sadopc/supadmin/internal/admin"
	"github.com/sadopc/supadmin/internal/audit"
	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/config"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/export"
	"github.com/sadopc/supadmin/internal/logger"
	"github.com/sadopc/supadmin/internal/server"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

const cliExportBatch = 500

// withService runs fn against a service built for a scripting
// subcommand. Logs go to stderr.
func withService(cmd *cobra.Command, f *flags, fn func(ctx context.Context, cfg *config.Config, svc *admin.Service) error) error {
	cfg := loadConfig(f)
	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console", Output: os.Stderr})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, cleanup, err := openService(ctx, cfg, log)
	if err != nil {
		return fail(err)
	}
	defer cleanup()
	if err := fn(ctx, cfg, svc); err != nil {
		return fail(err)
	}
	return nil
}

func fail(err error) error {
	red.Fprint(os.Stderr, "Error: ")
	fmt.Fprintln(os.Stderr, errs.MessageOf(err))
	return err
}

func requireConnected(svc *admin.Service) error {
	if !svc.Connected() {
		return errs.New(errs.ErrKindInvalidInput, "not connected; run `supadmin connect <url> <key>` first")
	}
	return nil
}

func timeoutCtx(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, backendTimeout(cfg))
}

func newServeCmd(f *flags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(f)
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console", Output: os.Stderr})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, cleanup, err := openService(ctx, cfg, log)
			if err != nil {
				return fail(err)
			}
			defer cleanup()

			if !svc.Connected() {
				yellow.Fprintln(os.Stderr, "No backend configured; data endpoints return 503 until one is connected.")
			}
			return server.New(svc, log).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func newTablesCmd(f *flags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables with record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, f, func(ctx context.Context, cfg *config.Config, svc *admin.Service) error {
				if err := requireConnected(svc); err != nil {
					return err
				}
				ctx, cancel := timeoutCtx(ctx, cfg)
				defer cancel()
				tables, err := svc.Tables(ctx)
				if err != nil {
					return err
				}
				hidden := svc.Preferences().HiddenTables

				rows := make([][]string, 0, len(tables))
				for _, t := range tables {
					if hidden[t.Name] && !all {
						continue
					}
					name := t.Name
					if hidden[t.Name] {
						name += " (hidden)"
					}
					rows = append(rows, []string{name, svc.DisplayName(t.Name), humanize.Comma(t.RecordCount)})
				}
				if len(rows) == 0 {
					fmt.Println("No tables found")
					return nil
				}
				fmt.Println(renderTable([]string{"Table", "Display name", "Records"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include hidden tables")
	return cmd
}

func newSchemaCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Describe the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, f, func(ctx context.Context, cfg *config.Config, svc *admin.Service) error {
				if err := requireConnected(svc); err != nil {
					return err
				}
				ctx, cancel := timeoutCtx(ctx, cfg)
				defer cancel()
				fields, err := svc.Fields(ctx, args[0])
				if err != nil {
					return err
				}
				if len(fields) == 0 {
					fmt.Printf("No columns found for %s\n", args[0])
					return nil
				}
				rows := make([][]string, 0, len(fields))
				for _, fd := range fields {
					var marks []string
					if fd.IsPrimaryKey {
						marks = append(marks, "PK")
					}
					if fd.Required {
						marks = append(marks, "required")
					}
					rows = append(rows, []string{fd.Name, fd.Type, fd.Format, strings.Join(marks, ", "), fd.Default})
				}
				cyan.Println(svc.DisplayName(args[0]))
				fmt.Println(renderTable([]string{"Column", "Type", "Format", "Flags", "Default"}, rows))
				return nil
			})
		},
	}
}

func newRowsCmd(f *flags) *cobra.Command {
	var page, pageSize, width int
	cmd := &cobra.Command{
		Use:   "rows <table>",
		Short: "Print one page of rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, f, func(ctx context.Context, cfg *config.Config, svc *admin.Service) error {
				if err := requireConnected(svc); err != nil {
					return err
				}
				if pageSize <= 0 {
					pageSize = cfg.Results.PageSize
				}
				ctx, cancel := timeoutCtx(ctx, cfg)
				defer cancel()
				fields, err := svc.Fields(ctx, args[0])
				if err != nil {
					return err
				}
				p, err := svc.RowsWithFields(ctx, args[0], fields, page, pageSize)
				if err != nil {
					return err
				}
				fmt.Println(renderRows(export.Columns(fields, p.Rows), p.Rows, width))
				faint.Printf("Page %d of %d · %s records\n",
					p.Page, backend.TotalPages(p.Total, p.PageSize), humanize.Comma(p.Total))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number (1-based)")
	cmd.Flags().IntVarP(&pageSize, "page-size", "n", 0, "Rows per page (default results.page_size)")
	cmd.Flags().IntVar(&width, "max-width", 40, "Maximum column width")
	return cmd
}

func newExportCmd(f *flags) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Export every row of a table to CSV or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, f, func(ctx context.Context, cfg *config.Config, svc *admin.Service) error {
				if err := requireConnected(svc); err != nil {
					return err
				}
				var fmtv export.Format
				switch {
				case format != "":
					v, err := export.ParseFormat(format)
					if err != nil {
						return err
					}
					fmtv = v
				case out != "":
					fmtv = export.FormatFromPath(out)
				default:
					fmtv = export.FormatCSV
				}
				if out == "" {
					out = fmt.Sprintf("%s_%s.%s", args[0], time.Now().Format("20060102_150405"), fmtv)
				}

				start := time.Now()
				fields, err := svc.Fields(ctx, args[0])
				if err != nil {
					return err
				}
				rows, err := svc.AllRowsWithFields(ctx, args[0], fields, cliExportBatch)
				if err != nil {
					return err
				}
				if err := export.ToFile(out, fmtv, export.Columns(fields, rows), rows); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				green.Print("✓ ")
				fmt.Printf("Exported %s records to %s (%s)\n",
					humanize.Comma(int64(len(rows))), out, time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default <table>_<timestamp>.<format>)")
	return cmd
}

func newStatusCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connection and dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, f, func(ctx context.Context, cfg *config.Config, svc *admin.Service) error {
				if !svc.Connected() {
					yellow.Println("Not connected")
					return nil
				}
				green.Print("● ")
				fmt.Printf("Connected to %s\n", svc.Host())
				conn := svc.Session().Config()
				faint.Printf("  key %s\n", audit.MaskKey(conn.Key))
				if conn.ServiceKey != "" {
					faint.Printf("  service key %s\n", audit.MaskKey(conn.ServiceKey))
				}
				prefs := svc.Preferences()
				faint.Printf("  language %s · storage %s\n", prefs.Language, prefs.StorageType)

				ctx, cancel := timeoutCtx(ctx, cfg)
				defer cancel()
				st, err := svc.Stats(ctx)
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Tables", humanize.Comma(int64(st.TotalTables))},
					{"Records", humanize.Comma(st.TotalRecords)},
				}
				if st.StorageKnown {
					rows = append(rows, []string{"Storage used", humanize.Bytes(uint64(st.StorageUsed))})
				}
				rows = append(rows, []string{"Updated", humanize.Time(st.LastUpdated)})
				fmt.Println(renderTable([]string{"", ""}, rows))

				activity, err := svc.RecentActivity(5)
				if err != nil || len(activity) == 0 {
					return nil
				}
				sort.SliceStable(activity, func(i, j int) bool { return activity[i].CreatedAt.After(activity[j].CreatedAt) })
				fmt.Println()
				cyan.Println("Recent activity")
				for _, e := range activity {
					target := e.Table
					if e.RecordID != "" {
						target += " #" + e.RecordID
					}
					if target == "" {
						target = e.Detail
					}
					fmt.Printf("  %-8s %-30s %s\n", e.Action, target, faint.Sprint(humanize.Time(e.CreatedAt)))
				}
				return nil
			})
		},
	}
}

func newConnectCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <url> <key>",
		Short: "Verify and save a backend connection",
		Long: `Verify and save a backend connection. Pass --service-key to also
store a service role key.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, f, func(ctx context.Context, cfg *config.Config, svc *admin.Service) error {
				ctx, cancel := timeoutCtx(ctx, cfg)
				defer cancel()
				if err := svc.Connect(ctx, args[0], args[1], f.serviceKey); err != nil {
					return err
				}
				green.Print("✓ ")
				fmt.Printf("Connected to %s\n", svc.Host())
				return nil
			})
		},
	}
}

func newDisconnectCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the saved backend connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, f, func(ctx context.Context, cfg *config.Config, svc *admin.Service) error {
				if !svc.Connected() {
					yellow.Println("Not connected")
					return nil
				}
				host := svc.Host()
				if err := svc.Disconnect(); err != nil {
					return err
				}
				green.Print("✓ ")
				fmt.Printf("Disconnected from %s\n", host)
				return nil
			})
		},
	}
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func renderRows(columns []string, rows []backend.Row, maxWidth int) string {
	if len(columns) == 0 {
		return "No rows"
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			v := strings.ReplaceAll(export.Value(r[c]), "\n", " ")
			if maxWidth > 0 {
				v = runewidth.Truncate(v, maxWidth, "…")
			}
			line[i] = v
		}
		out = append(out, line)
	}
	return renderTable(columns, out)
}
