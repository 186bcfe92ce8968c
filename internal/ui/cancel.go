package ui

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/store"
)

func (a *App) cancelCmd() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "cancel [appointment-id]",
		Short: "Cancel a scheduled appointment",
		Long: `Cancel an appointment by its ID. Canceled appointments stay on the
calendar, greyed out, and cannot be reopened. Use --delete to remove the
record instead.

Example:
  clinicflow cancel 3f2a9c1e-7d4b-4a51-9e0f-5c8d2b6a1f70`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remove {
				return a.changeAppointment(cmd, args[0], "Deleted", func(st *store.Store, id string) (store.Mutation, error) {
					return st.BeginDelete(id)
				})
			}
			return a.setStatus(cmd, args[0], appointment.StatusCanceled, "Canceled")
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the appointment instead of canceling it")
	return cmd
}

func (a *App) completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete [appointment-id]",
		Short: "Mark an appointment as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.setStatus(cmd, args[0], appointment.StatusCompleted, "Completed")
		},
	}
}

func (a *App) setStatus(cmd *cobra.Command, id string, status appointment.Status, verb string) error {
	return a.changeAppointment(cmd, id, verb, func(st *store.Store, id string) (store.Mutation, error) {
		return st.BeginUpdateStatus(id, status)
	})
}

// changeAppointment looks id up and runs the mutation built by begin
// through a store seeded with it.
func (a *App) changeAppointment(cmd *cobra.Command, id, verb string, begin func(*store.Store, string) (store.Mutation, error)) error {
	ctx := cmd.Context()
	if err := a.ensureRepo(ctx); err != nil {
		return err
	}

	target, err := findAppointment(ctx, a.repo, id, a.now())
	if err != nil {
		return fmt.Errorf("finding appointment: %w", err)
	}
	st := a.seededStore(target)
	m, err := begin(st, target.ID)
	if err != nil {
		return err
	}
	a.logger.Info("changing appointment", zap.String("op", m.Op.String()), zap.String("id", target.ID))
	if _, err := st.Sync(ctx, a.repo, m); err != nil {
		return fmt.Errorf("%s appointment: %w", m.Op, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s on %s at %s\n",
		verb,
		target.ClientName,
		target.Start.Format("Mon Jan 2 2006"),
		target.TimeString(),
	)
	return nil
}
