package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/booking"
	"github.com/javiermolinar/clinicflow/internal/dateutil"
)

func (a *App) availabilityCmd() *cobra.Command {
	var (
		date      string
		counselor string
		noColor   bool
	)

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Show which clinic hours of a day are free",
		Long: `List the intake hours of a day and whether each one is free.

An hour counts as taken when another session starts less than an hour
away from it. The answer is advisory: nothing is held until you book.`,
		Example: `  clinicflow availability --date=tomorrow
  clinicflow availability --date=2025-03-12 --counselor="Dr. Lee"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if noColor {
				DisableColor()
			}
			ctx := cmd.Context()
			if err := a.ensureRepo(ctx); err != nil {
				return err
			}

			day, err := dateutil.ParseRelativeDate(date, a.now(), true)
			if err != nil {
				return err
			}
			counselorID, err := a.resolveCounselor(ctx, counselor)
			if err != nil {
				return err
			}

			resp := availability.Run(ctx, a.repo, availability.Request{
				Query: availability.Query{Date: day, CounselorID: counselorID},
			})
			if resp.Err != nil {
				return resp.Err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "\n  %s\n", formatHeader(day.Format("Monday, January 2, 2006")))
			fmt.Fprintln(w, strings.Repeat("─", 40))
			printHours(w, resp.Busy)

			fmt.Fprintln(w, strings.Repeat("─", 40))
			fmt.Fprintf(w, "  %s\n\n", LoadBar(len(resp.Busy), len(booking.Hours()), 20))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to check (YYYY-MM-DD, today, tomorrow, friday)")
	cmd.Flags().StringVar(&counselor, "counselor", "", "Only count this counselor's sessions (id or name)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")
	return cmd
}

func printHours(w io.Writer, busy []appointment.BusySlot) {
	for _, h := range booking.Hours() {
		label := fmt.Sprintf("%02d:00", h)
		if slot, taken := availability.Conflict(busy, float64(h)); taken {
			fmt.Fprintf(w, "  %s  %s  %s\n", label, formatWarn("taken"), formatMuted(slot.OccupantName+" at "+slot.Time))
			continue
		}
		fmt.Fprintf(w, "  %s  %s\n", label, formatOK("free"))
	}
}
