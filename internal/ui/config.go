package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/clinicflow/internal/config"
	"github.com/javiermolinar/clinicflow/internal/tui/theme"
)

func (a *App) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `Interactive configuration management.

If no config file exists, creates one with default values.
Otherwise, displays current config and allows editing.

Example:
  clinicflow config`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInteractive(a.path(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			printConfig(cmd.OutOrStdout(), a.config)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), a.path())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.path()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().SaveTo(path); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	})
	return cmd
}

func (a *App) path() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.DefaultConfigPath()
}

func runConfigInteractive(configPath string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Config file: %s\n\n", configPath)

	// Load existing config or create defaults
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Check if file exists
	_, fileErr := os.Stat(configPath)
	isNew := os.IsNotExist(fileErr)

	if isNew {
		fmt.Fprintln(out, "No config file found. Creating with default values...")
		if err := cfg.SaveTo(configPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n\n", configPath)
	}

	// Display current config
	printConfig(out, cfg)

	reader := bufio.NewReader(in)

	// Ask if user wants to edit
	if !promptYesNo(reader, out, "\nWould you like to edit the configuration?") {
		return nil
	}

	cfg.Schedule.DayStart = promptValue(reader, out, "Day start", cfg.Schedule.DayStart)
	cfg.Schedule.DayEnd = promptValue(reader, out, "Day end", cfg.Schedule.DayEnd)
	cfg.Schedule.FirstWeekday = promptValue(reader, out, "First weekday of the month grid", cfg.Schedule.FirstWeekday)
	cfg.Storage.Driver = promptValue(reader, out, "Storage driver (sqlite, postgres, remote, memory)", cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		cfg.Storage.DSN = promptValue(reader, out, "Postgres DSN", cfg.Storage.DSN)
	case config.DriverRemote:
		cfg.Storage.APIURL = promptValue(reader, out, "API URL", cfg.Storage.APIURL)
	default:
		cfg.Storage.DBPath = promptValue(reader, out, "Database path", cfg.Storage.DBPath)
	}
	cfg.Clinic.OrgID = promptValue(reader, out, "Organization id", cfg.Clinic.OrgID)
	cfg.Cache.RedisAddr = promptValue(reader, out, "Redis address (empty to disable the cache)", cfg.Cache.RedisAddr)
	cfg.UI.Theme = promptTheme(reader, out, cfg.UI.Theme)
	cfg.UI.DefaultView = promptValue(reader, out, "Default view (day, week, month)", cfg.UI.DefaultView)

	// Validate before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.SaveTo(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(out, "\nConfiguration saved!")
	return nil
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out, "──────────────────────")
	fmt.Fprintln(out, "[schedule]")
	fmt.Fprintf(out, "  day_start         = %s\n", cfg.Schedule.DayStart)
	fmt.Fprintf(out, "  day_end           = %s\n", cfg.Schedule.DayEnd)
	fmt.Fprintf(out, "  intake_first_hour = %d\n", cfg.Schedule.IntakeFirstHour)
	fmt.Fprintf(out, "  intake_last_hour  = %d\n", cfg.Schedule.IntakeLastHour)
	fmt.Fprintf(out, "  first_weekday     = %s\n", cfg.Schedule.FirstWeekday)
	fmt.Fprintf(out, "  default_duration  = %d\n", cfg.Schedule.DefaultDuration)
	fmt.Fprintln(out, "\n[storage]")
	fmt.Fprintf(out, "  driver            = %s\n", cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		fmt.Fprintf(out, "  dsn               = %s\n", redact(cfg.Storage.DSN))
	case config.DriverRemote:
		fmt.Fprintf(out, "  api_url           = %s\n", cfg.Storage.APIURL)
	default:
		fmt.Fprintf(out, "  db_path           = %s\n", cfg.Storage.DBPath)
	}
	fmt.Fprintln(out, "\n[clinic]")
	fmt.Fprintf(out, "  org_id            = %s\n", cfg.Clinic.OrgID)
	fmt.Fprintln(out, "\n[cache]")
	fmt.Fprintf(out, "  redis_addr        = %s\n", cfg.Cache.RedisAddr)
	fmt.Fprintf(out, "  availability_ttl  = %s\n", cfg.Cache.AvailabilityTTL)
	fmt.Fprintln(out, "\n[server]")
	fmt.Fprintf(out, "  addr              = %s\n", cfg.Server.Addr)
	fmt.Fprintln(out, "\n[log]")
	fmt.Fprintf(out, "  level             = %s\n", cfg.Log.Level)
	fmt.Fprintf(out, "  file              = %s\n", cfg.Log.File)
	fmt.Fprintln(out, "\n[ui]")
	fmt.Fprintf(out, "  theme             = %s\n", cfg.UI.Theme)
	fmt.Fprintf(out, "  default_view      = %s\n", cfg.UI.DefaultView)
}

// redact hides the password of a postgres DSN.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if user, _, ok := strings.Cut(creds, ":"); ok {
		return dsn[:scheme+3] + user + ":***" + dsn[at:]
	}
	return dsn
}

func promptYesNo(reader *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func promptValue(reader *bufio.Reader, out io.Writer, label, current string) string {
	if current == "" {
		fmt.Fprintf(out, "  %s: ", label)
	} else {
		fmt.Fprintf(out, "  %s [%s]: ", label, current)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}

func promptTheme(reader *bufio.Reader, out io.Writer, current string) string {
	options := strings.Join(theme.Available(), ", ")
	label := fmt.Sprintf("UI theme (%s)", options)
	for {
		value := strings.ToLower(promptValue(reader, out, label, current))
		if theme.IsAvailable(value) {
			return value
		}
		fmt.Fprintf(out, "  Invalid theme %q. Available: %s\n", value, options)
	}
}
