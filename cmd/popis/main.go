package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/config"
	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/draft"
	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/store"
)

// app carries what every command needs after flag parsing.
type app struct {
	cfg      *config.Config
	closeLog func()
}

func main() {
	a := &app{closeLog: func() {}}

	var dbPath, logPath, logLevel string

	rootCmd := &cobra.Command{
		Use:           "popis",
		Short:         "Offline field-survey draft store",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `popis records asset survey entries on a device without network access.

Configuration is read from .env and POPIS_* environment variables; flags
override both.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("log") {
				cfg.LogPath = logPath
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = strings.ToLower(logLevel)
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			a.cfg = cfg

			closeLog, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			a.closeLog = closeLog
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", config.DefaultDBPath, "SQLite database path")
	rootCmd.PersistentFlags().StringVarP(&logPath, "log", "l", "", "log file path (default: stdout/stderr only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "minimum log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(mastersCmd(a))
	rootCmd.AddCommand(historyCmd(a))
	rootCmd.AddCommand(checkCmd(a))

	err := rootCmd.Execute()
	a.closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openDB opens the configured database and brings its schema up to date.
func (a *app) openDB() (*sql.DB, error) {
	database, err := db.Open(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// newEngine builds a draft engine over database using the configured photo
// settings.
func (a *app) newEngine(database *sql.DB) *draft.Engine {
	compressor := &imaging.Compressor{
		MaxDimension:   a.cfg.PhotoMaxDimension,
		ThumbDimension: a.cfg.ThumbDimension,
		Quality:        a.cfg.JPEGQuality,
	}
	return draft.New(store.New(database), compressor, draft.WithLogger(slog.Default()))
}
