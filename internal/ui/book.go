package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/booking"
	"github.com/javiermolinar/clinicflow/internal/dateutil"
	"github.com/javiermolinar/clinicflow/internal/store"
)

func (a *App) bookCmd() *cobra.Command {
	var (
		identity  booking.Identity
		clinical  booking.Clinical
		date      string
		at        string
		kind      string
		duration  int
		counselor string
		location  string
		recurring string
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Register a new client and book their first session",
		Long: `Register a new client and book their intake session.

The booking goes through the same checks as the calendar's intake dialog:
name, phone and concern are required, the time must be a whole clinic hour,
and a slot held by another session within the hour is refused.`,
		Example: `  clinicflow book --name="Ana Ruiz" --phone=555-0101 --concern=anxiety \
    --date=2025-03-12 --time=10:00 --kind=online --counselor="Dr. Lee"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.ensureRepo(ctx); err != nil {
				return err
			}

			day, err := dateutil.ParseRelativeDate(date, a.now(), false)
			if err != nil {
				return err
			}
			hour, err := parseHour(at)
			if err != nil {
				return err
			}

			w := booking.NewIntake(availability.NewTracker(a.metrics), a.now(), a.config.Schedule.DefaultDuration)
			w.Identity = identity
			w.Clinical = clinical
			for range 2 {
				if err := w.Next(); err != nil {
					return err
				}
			}
			if err := a.applySchedule(ctx, w, kind, duration, counselor, location, recurring); err != nil {
				return err
			}
			w.SelectDate(day)
			req, err := w.SelectHour(hour)
			if err != nil {
				return err
			}

			created, err := a.confirm(ctx, cmd, w, req, store.New(a.metrics, a.logger))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booked %s: %s on %s at %s (%s, %s)\n",
				created.ID,
				created.ClientName,
				created.Start.Format("Mon Jan 2 2006"),
				created.TimeString(),
				created.Kind,
				FormatDuration(created.Duration),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&identity.Name, "name", "", "Client name (required)")
	cmd.Flags().StringVar(&identity.Phone, "phone", "", "Client phone (required)")
	cmd.Flags().StringVar(&identity.Email, "email", "", "Client email")
	cmd.Flags().StringVar(&clinical.Concern, "concern", "", "Presenting concern (required)")
	cmd.Flags().StringVar(&clinical.Referral, "referral", "", "Referral source")
	cmd.Flags().StringVar(&clinical.Notes, "notes", "", "Session notes")
	cmd.Flags().StringVar(&date, "date", "", "Session date (YYYY-MM-DD, today, tomorrow, friday)")
	cmd.Flags().StringVar(&at, "time", "", "Start time on the hour (HH:00, required)")
	cmd.Flags().StringVar(&kind, "kind", string(appointment.KindInPerson), "in-person, online or phone")
	cmd.Flags().IntVar(&duration, "duration", 0, "Length in minutes (default from config)")
	cmd.Flags().StringVar(&counselor, "counselor", "", "Counselor id or name")
	cmd.Flags().StringVar(&location, "location", "", "Room or address")
	cmd.Flags().StringVar(&recurring, "recurring", "", "none, weekly, biweekly or monthly")

	_ = cmd.MarkFlagRequired("time")

	return cmd
}

func (a *App) rescheduleCmd() *cobra.Command {
	var (
		date      string
		at        string
		duration  int
		counselor string
		location  string
	)

	cmd := &cobra.Command{
		Use:   "reschedule [appointment-id]",
		Short: "Move an appointment to another day or hour",
		Long: `Move an appointment. The session's own slot does not count as a
conflict, so shortening or lengthening in place is allowed.`,
		Example: `  clinicflow reschedule 3f2a9c1e-7d4b-4a51-9e0f-5c8d2b6a1f70 --date=friday --time=15:00
  clinicflow reschedule 3f2a9c1e-7d4b-4a51-9e0f-5c8d2b6a1f70 --duration=80`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureRepo(ctx); err != nil {
				return err
			}

			target, err := findAppointment(ctx, a.repo, args[0], a.now())
			if err != nil {
				return fmt.Errorf("finding appointment: %w", err)
			}
			if !target.IsActive() {
				return fmt.Errorf("appointment %s is canceled", target.ID)
			}
			st := a.seededStore(target)

			w := booking.NewReschedule(availability.NewTracker(a.metrics), target)
			if cmd.Flags().Changed("counselor") || cmd.Flags().Changed("location") || duration > 0 {
				loc := target.Location
				if cmd.Flags().Changed("location") {
					loc = location
				}
				co := target.CounselorID
				if cmd.Flags().Changed("counselor") {
					co = counselor
				}
				if err := a.applySchedule(ctx, w, string(target.Kind), duration, co, loc, string(target.Recurring)); err != nil {
					return err
				}
			}
			if date != "" {
				day, err := dateutil.ParseRelativeDate(date, a.now(), false)
				if err != nil {
					return err
				}
				w.SelectDate(day)
			}
			hour := w.Schedule().Hour
			if at != "" {
				if hour, err = parseHour(at); err != nil {
					return err
				}
			}
			if hour < 0 {
				return fmt.Errorf("the session starts off the hour, pass --time")
			}
			req, err := w.SelectHour(hour)
			if err != nil {
				return err
			}

			moved, err := a.confirm(ctx, cmd, w, req, st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s at %s (%s)\n",
				moved.ClientName,
				moved.Start.Format("Mon Jan 2 2006"),
				moved.TimeString(),
				FormatDuration(moved.Duration),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "New date (YYYY-MM-DD, today, tomorrow, friday)")
	cmd.Flags().StringVar(&at, "time", "", "New start time on the hour (HH:00)")
	cmd.Flags().IntVar(&duration, "duration", 0, "New length in minutes")
	cmd.Flags().StringVar(&counselor, "counselor", "", "Counselor id or name, empty for none")
	cmd.Flags().StringVar(&location, "location", "", "Room or address")
	return cmd
}

// applySchedule copies the schedule flags into w.
func (a *App) applySchedule(ctx context.Context, w *booking.Wizard, kind string, duration int, counselor, location, recurring string) error {
	k, err := appointment.ParseKind(kind)
	if err != nil {
		return err
	}
	if err := w.SetKind(k); err != nil {
		return err
	}
	r, err := appointment.ParseRecurrence(recurring)
	if err != nil {
		return err
	}
	if err := w.SetRecurring(r); err != nil {
		return err
	}
	if duration > 0 {
		if err := w.SetDuration(duration); err != nil {
			return err
		}
	}
	w.SetLocation(location)

	id, err := a.resolveCounselor(ctx, counselor)
	if err != nil {
		return err
	}
	w.SelectCounselor(id)
	return nil
}

// confirm runs the availability check for req and, when it allows it,
// submits the booking through st.
func (a *App) confirm(ctx context.Context, cmd *cobra.Command, w *booking.Wizard, req availability.Request, st *store.Store) (*appointment.Appointment, error) {
	w.Resolve(availability.Run(ctx, a.repo, req))
	switch w.Availability() {
	case availability.StatusTaken:
		return nil, fmt.Errorf("%s", w.AvailabilityText())
	case availability.StatusUnknown:
		fmt.Fprintln(cmd.ErrOrStderr(), formatWarn(w.AvailabilityText()))
	}

	sub, err := w.Confirm()
	if err != nil {
		return nil, err
	}
	a.logger.Info("submitting booking",
		zap.Int("flow", int(sub.Flow)),
		zap.Time("start", w.Start()),
		zap.Int("duration", w.Schedule().Duration),
	)
	result, err := booking.Submit(ctx, a.repo, st, sub)
	w.Finish(err)
	if err != nil {
		a.logger.Warn("booking failed", zap.Error(err))
		return nil, w.Err()
	}
	return result, nil
}

// seededStore returns a store holding only target, so a mutation on it can
// be applied optimistically and rolled back.
func (a *App) seededStore(target *appointment.Appointment) *store.Store {
	st := store.New(a.metrics, a.logger)
	day := dateutil.TruncateToDay(target.Start)
	req := st.BeginList(day, day)
	st.ApplyList(store.ListResult{
		Token: req.Token,
		Start: req.Start,
		End:   req.End,
		Items: []*appointment.Appointment{target},
	})
	return st
}

// parseHour accepts "HH", "H" or "HH:00".
func parseHour(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1, fmt.Errorf("time is required")
	}
	if strings.Contains(s, ":") {
		if len(s) == 4 {
			s = "0" + s
		}
		m, err := appointment.ClockToMinutes(s)
		if err != nil {
			return -1, err
		}
		if m%60 != 0 {
			return -1, fmt.Errorf("sessions start on the hour, got %s", s)
		}
		return m / 60, nil
	}
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return -1, fmt.Errorf("invalid hour %q", s)
	}
	return h, nil
}
