package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/config"
	"github.com/javiermolinar/clinicflow/internal/logging"
	"github.com/javiermolinar/clinicflow/internal/metrics"
	"github.com/javiermolinar/clinicflow/internal/tui"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	repo       appointment.Repository
	config     *config.Config
	configPath string
	root       *cobra.Command
	debug      bool // Enable debug logging

	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []io.Closer
	now      func() time.Time
}

// NewApp creates a new CLI application. A nil repo is opened lazily from
// the configured storage driver.
func NewApp(repo appointment.Repository, cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	registry := prometheus.NewRegistry()
	a := &App{
		repo:     repo,
		config:   cfg,
		logger:   logging.Nop(),
		registry: registry,
		metrics:  metrics.New(registry),
		now:      time.Now,
	}

	a.root = &cobra.Command{
		Use:   "clinicflow",
		Short: "Scheduling and calendar for counseling clinics",
		Long: `clinicflow books, moves and cancels client appointments.

Without a subcommand it opens the terminal calendar: drag an appointment
to move it, drag its last line to resize it, press n for a new intake.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureRepo(cmd.Context()); err != nil {
				return err
			}
			return tui.Run(a.repo, a.config,
				tui.WithLogger(a.logger),
				tui.WithMetrics(a.metrics),
			)
		},
	}

	// Add global flags
	a.root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default "+config.DefaultConfigPath()+")")
	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.agendaCmd())
	a.root.AddCommand(a.bookCmd())
	a.root.AddCommand(a.rescheduleCmd())
	a.root.AddCommand(a.cancelCmd())
	a.root.AddCommand(a.completeCmd())
	a.root.AddCommand(a.availabilityCmd())
	a.root.AddCommand(a.clientCmd())
	a.root.AddCommand(a.counselorCmd())
	a.root.AddCommand(a.locationCmd())
	a.root.AddCommand(a.serveCmd())

	return a
}

// setup reloads the config when --config is given and builds the logger.
func (a *App) setup() error {
	if a.configPath != "" {
		cfg, err := config.LoadFrom(a.configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		a.config = cfg
	}

	level := a.config.Log.Level
	if a.debug {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, File: a.config.Log.File})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.logger = logger
	return nil
}

// ensureRepo opens the configured repository unless one was injected.
func (a *App) ensureRepo(ctx context.Context) error {
	if a.repo != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	repo, closers, err := openRepository(ctx, a.config, a.logger)
	if err != nil {
		return err
	}
	a.repo = repo
	a.closers = append(a.closers, closers...)
	return nil
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clinicflow %s (commit: %s)\n", Version, Commit)
		},
	}
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// Close releases the repository and any cache connection.
func (a *App) Close() error {
	var first error
	if a.repo != nil {
		first = a.repo.Close()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	_ = a.logger.Sync()
	return first
}

// SetArgs overrides the command line, mostly for tests.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

// SetOutput redirects command output, mostly for tests.
func (a *App) SetOutput(w io.Writer) {
	a.root.SetOut(w)
	a.root.SetErr(w)
}
