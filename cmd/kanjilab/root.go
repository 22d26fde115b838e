package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/japaniel/kanjilab/pkg/config"
	"github.com/japaniel/kanjilab/pkg/db"
	"github.com/japaniel/kanjilab/pkg/logging"
	"github.com/japaniel/kanjilab/pkg/readerer"
)

// app carries the settings shared by every subcommand.
type app struct {
	configFile string
	dbPath     string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log zerolog.Logger
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd700"))
	labelStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f"))
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "kanjilab",
		Short: "Build and query the JMdict lexical database",
		Long: `kanjilab loads JMdict, JmdictFurigana and a frequency list into a
SQLite database of kanji headwords, readings, furigana segments and
frequency ranks, and answers lookups against it.`,
		Version:           readerer.Version(),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file (default: environment only)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: auto, console, json")

	root.AddCommand(
		a.newBuildCmd(),
		a.newLookupCmd(),
		a.newAnnotateCmd(),
		a.newFetchCmd(),
	)
	return root
}

// setup loads .env files and the config, then puts the logger in the
// command context.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	// .env.local overrides .env; missing files are fine.
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	a.cfg = cfg

	a.log = logging.New(cfg.Log)
	cmd.SetContext(logging.WithLogger(cmd.Context(), &a.log))
	return nil
}

// openExisting opens the configured database for reading. It refuses to
// create a new file.
func (a *app) openExisting() (*db.Store, error) {
	if a.cfg.DBPath != ":memory:" {
		if _, err := os.Stat(a.cfg.DBPath); err != nil {
			return nil, fmt.Errorf("database %s: %w (run 'kanjilab build' first)", a.cfg.DBPath, err)
		}
	}
	return db.Open(a.cfg.DBPath)
}
