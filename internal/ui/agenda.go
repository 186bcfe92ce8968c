package ui

import (
	"bytes"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/dateutil"
)

func (a *App) agendaCmd() *cobra.Command {
	var (
		date    string
		view    string
		verbose bool
		noColor bool
		copyOut bool
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print the appointments of a day, week or month",
		Long: `Print the appointments visible in a calendar view, grouped by day,
with a short summary of booked time.

The week runs Sunday to Saturday. The month covers the whole 6-week grid.`,
		Example: `  clinicflow agenda
  clinicflow agenda --view=day --date=tomorrow
  clinicflow agenda --view=month --date=2025-03-01 --copy`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if noColor || copyOut {
				DisableColor()
			}
			if err := a.ensureRepo(cmd.Context()); err != nil {
				return err
			}

			anchor, err := dateutil.ParseRelativeDate(date, a.now(), true)
			if err != nil {
				return err
			}
			v := a.config.DefaultView()
			if view != "" {
				if v, err = calendar.ParseView(view); err != nil {
					return err
				}
			}

			start, end := calendar.Visible(v, anchor, a.config.FirstWeekday())
			appts, err := a.repo.ListAppointments(cmd.Context(), start, end)
			if err != nil {
				return fmt.Errorf("listing appointments: %w", err)
			}
			a.logger.Debug("agenda",
				zap.String("view", string(v)),
				zap.Time("start", start),
				zap.Int("count", len(appts)),
			)

			var buf bytes.Buffer
			PrintAgenda(&buf, calendar.Title(v, anchor), appts, AgendaOpts{Verbose: verbose})
			fmt.Fprintln(&buf)
			text := buf.String()
			fmt.Fprint(cmd.OutOrStdout(), text)

			if copyOut {
				if err := clipboard.WriteAll(text); err != nil {
					return fmt.Errorf("copying to clipboard: %w", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), color.GreenString("Copied to clipboard."))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Any day in the period (YYYY-MM-DD, today, tomorrow, friday)")
	cmd.Flags().StringVar(&view, "view", "", "Period: day, week or month (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show ids and notes")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")
	cmd.Flags().BoolVar(&copyOut, "copy", false, "Also copy the agenda as plain text to the clipboard")
	return cmd
}
