package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/supadmin/internal/app"
	"github.com/sadopc/supadmin/internal/config"
	"github.com/sadopc/supadmin/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// flags shared by the root command and every subcommand.
type flags struct {
	config     string
	theme      string
	url        string
	key        string
	serviceKey string
	dsn        string
	logFile    string
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "supadmin",
		Short: "A terminal admin client for Supabase and PostgREST",
		Long: `supadmin browses and edits the tables of a Supabase (or any PostgREST)
backend from the terminal.

Examples:
  supadmin                                        # Launch the TUI
  supadmin --url https://abc.supabase.co --key …  # Connect on startup
  supadmin tables                                 # List tables
  supadmin rows orders --page 2                   # Print one page of rows
  supadmin serve                                  # Run the JSON API`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), &f)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "Config file path")
	pf.StringVar(&f.theme, "theme", "", "Color theme (default, light)")
	pf.StringVar(&f.url, "url", "", "Backend URL")
	pf.StringVar(&f.key, "key", "", "Anonymous API key")
	pf.StringVar(&f.serviceKey, "service-key", "", "Service role key")
	pf.StringVar(&f.dsn, "dsn", "", "Direct Postgres DSN for catalog introspection")
	pf.StringVar(&f.logFile, "log-file", "", "Log file used by the TUI")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("supadmin %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}

	rootCmd.AddCommand(
		versionCmd,
		newServeCmd(&f),
		newTablesCmd(&f),
		newSchemaCmd(&f),
		newRowsCmd(&f),
		newExportCmd(&f),
		newStatusCmd(&f),
		newConnectCmd(&f),
		newDisconnectCmd(&f),
		newHistoryCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, then .env files, then the
// environment, then command-line flags. Later sources win.
func loadConfig(f *flags) *config.Config {
	var cfg *config.Config
	var err error
	if f.config != "" {
		cfg, err = config.Load(f.config)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg.ApplyEnv(os.LookupEnv)

	if f.theme != "" {
		cfg.Theme = f.theme
	}
	if f.url != "" {
		cfg.Backend.URL = f.url
	}
	if f.key != "" {
		cfg.Backend.Key = f.key
	}
	if f.serviceKey != "" {
		cfg.Backend.ServiceKey = f.serviceKey
	}
	if f.dsn != "" {
		cfg.Catalog.DSN = f.dsn
	}
	if f.logFile != "" {
		cfg.Log.File = f.logFile
	}
	return cfg
}

func runTUI(ctx context.Context, f *flags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := loadConfig(f)

	log := logger.Nop()
	logPath := cfg.Log.File
	if logPath == "" {
		if dir, err := config.ConfigDir(); err == nil {
			logPath = filepath.Join(dir, "supadmin.log")
		}
	}
	if logPath != "" {
		l, closer, err := logger.OpenFile(logPath, cfg.Log.Level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open log file: %v\n", err)
		} else {
			log = l
			defer closer.Close()
		}
	}

	svc, cleanup, err := openService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// Flags or environment naming a backend connect before the TUI starts;
	// a failure falls back to the prefilled onboarding screen.
	if (f.url != "" || f.key != "") && cfg.Backend.URL != "" && cfg.Backend.Key != "" {
		cctx, cancel := context.WithTimeout(ctx, backendTimeout(cfg))
		err := svc.Connect(cctx, cfg.Backend.URL, cfg.Backend.Key, cfg.Backend.ServiceKey)
		cancel()
		if err != nil {
			log.WarnErr("startup connect failed", err, map[string]any{"url": cfg.Backend.URL})
		}
	}

	model := app.New(svc, app.Options{Config: cfg, Logger: log})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running application: %w", err)
	}
	return nil
}

func backendTimeout(cfg *config.Config) time.Duration {
	if cfg.Backend.TimeoutSeconds > 0 {
		return time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}
