package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

func (a *App) clientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage clients",
	}

	var c appointment.Client
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Register a client without booking a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(cmd.Context()); err != nil {
				return err
			}
			c.Name = strings.TrimSpace(args[0])
			if err := a.repo.CreateClient(cmd.Context(), &c); err != nil {
				return fmt.Errorf("creating client: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created client %s: %s\n", c.ID, c.Name)
			return nil
		},
	}
	add.Flags().StringVar(&c.Phone, "phone", "", "Phone number")
	add.Flags().StringVar(&c.Email, "email", "", "Email address")
	add.Flags().StringVar(&c.Concern, "concern", "", "Presenting concern")
	add.Flags().StringVar(&c.Referral, "referral", "", "Referral source")

	list := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureRepo(cmd.Context()); err != nil {
				return err
			}
			clients, err := a.repo.ListClients(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing clients: %w", err)
			}
			w := cmd.OutOrStdout()
			if len(clients) == 0 {
				fmt.Fprintln(w, "No clients yet.")
				return nil
			}
			for _, c := range clients {
				fmt.Fprintf(w, "  %s  %-24s %s\n", formatMuted(c.ID), c.Name, formatMuted(strings.Join(nonEmpty(c.Phone, c.Email), " · ")))
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func (a *App) counselorCmd() *cobra.Command {
	return a.namedCmd("counselor", "counselors",
		func(ctx context.Context, name string) (string, error) {
			c := &appointment.Counselor{Name: name}
			err := a.repo.CreateCounselor(ctx, c)
			return c.ID, err
		},
		func(ctx context.Context, w io.Writer) (int, error) {
			cs, err := a.repo.ListCounselors(ctx)
			for _, c := range cs {
				fmt.Fprintf(w, "  %s  %s\n", formatMuted(c.ID), c.Name)
			}
			return len(cs), err
		},
	)
}

func (a *App) locationCmd() *cobra.Command {
	return a.namedCmd("location", "locations",
		func(ctx context.Context, name string) (string, error) {
			l := &appointment.Location{Name: name}
			err := a.repo.CreateLocation(ctx, l)
			return l.ID, err
		},
		func(ctx context.Context, w io.Writer) (int, error) {
			ls, err := a.repo.ListLocations(ctx)
			for _, l := range ls {
				fmt.Fprintf(w, "  %s  %s\n", formatMuted(l.ID), l.Name)
			}
			return len(ls), err
		},
	)
}

// namedCmd builds the add/list pair shared by counselors and locations.
func (a *App) namedCmd(noun, plural string,
	create func(ctx context.Context, name string) (string, error),
	list func(ctx context.Context, w io.Writer) (int, error),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   noun,
		Short: "Manage " + plural,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [name]",
		Short: "Register a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(cmd.Context()); err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			id, err := create(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("creating %s: %w", noun, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s: %s\n", noun, id, name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List " + plural,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureRepo(cmd.Context()); err != nil {
				return err
			}
			n, err := list(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("listing %s: %w", plural, err)
			}
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s yet.\n", plural)
			}
			return nil
		},
	})
	return cmd
}

// resolveCounselor maps an id or a case-insensitive name to a counselor id.
// Empty means any counselor.
func (a *App) resolveCounselor(ctx context.Context, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	counselors, err := a.repo.ListCounselors(ctx)
	if err != nil {
		return "", fmt.Errorf("listing counselors: %w", err)
	}
	for _, c := range counselors {
		if c.ID == s || strings.EqualFold(c.Name, s) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", appointment.ErrCounselorMissing, s)
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
