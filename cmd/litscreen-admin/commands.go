package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"litscreen/internal/adapters/projects"
	"litscreen/internal/core/consensus"
	"litscreen/internal/modkit/repokit"
	"litscreen/internal/platform/store"
	"litscreen/internal/services/api/screening/domain"
	srepo "litscreen/internal/services/api/screening/repo"
	ssvc "litscreen/internal/services/api/screening/service"
)

// App holds what the commands need; Open is only called by commands that touch Postgres
type App struct {
	Out    io.Writer
	Secret string
	Open   func(ctx context.Context) (*store.Store, error)
}

// NewRootCmd creates the top-level command and registers all subcommands
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "litscreen-admin",
		Short:         "Administer the screening consensus engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(app.Out)

	root.AddCommand(
		newMigrateCmd(app),
		newPolicyCmd(app),
		newAttachCmd(app),
		newCountsCmd(app),
		newConflictsCmd(app),
		newTokenCmd(app),
	)
	return root
}

// withStore opens the store for one command and closes it afterwards
func (a *App) withStore(ctx context.Context, fn func(st *store.Store) error) error {
	if a.Open == nil {
		return errors.New("no database configured")
	}
	st, err := a.Open(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close(context.Background()) }()
	if st.PG == nil {
		return errors.New("postgres is not enabled")
	}
	return fn(st)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the screening schema (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withStore(cmd.Context(), func(st *store.Store) error {
				if _, err := st.PG.Exec(cmd.Context(), srepo.Schema); err != nil {
					return fmt.Errorf("apply schema: %w", err)
				}
				fmt.Fprintln(app.Out, "schema applied")
				return nil
			})
		},
	}
}

func newPolicyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Validate or apply a projects policy file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check <file>",
			Short: "Parse and validate a policy file without touching the database",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				s, err := projects.Load(args[0])
				if err != nil {
					return err
				}
				for _, line := range s.Summary() {
					fmt.Fprintln(app.Out, line)
				}
				fmt.Fprintf(app.Out, "ok: %d projects\n", len(s.Projects()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "apply <file>",
			Short: "Upsert projects and members, then attach the listed works",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := projects.Load(args[0])
				if err != nil {
					return err
				}
				ctx := cmd.Context()
				return app.withStore(ctx, func(st *store.Store) error {
					if err := projects.Apply(ctx, st.PG, s.Projects()); err != nil {
						return err
					}
					n := 0
					for _, p := range s.Projects() {
						if err := attach(ctx, st.PG, p.ID, p.Works); err != nil {
							return err
						}
						n += len(p.Works)
					}
					fmt.Fprintf(app.Out, "applied %d projects, %d works\n", len(s.Projects()), n)
					return nil
				})
			},
		},
	)
	return cmd
}

func newAttachCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <project> <work>...",
		Short: "Register works with a project in TITLE_ABSTRACT/PENDING",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return app.withStore(ctx, func(st *store.Store) error {
				if err := attach(ctx, st.PG, args[0], args[1:]); err != nil {
					return err
				}
				for _, w := range args[1:] {
					fmt.Fprintln(app.Out, ssvc.WorkKey(args[0], w))
				}
				return nil
			})
		},
	}
}

func attach(ctx context.Context, db repokit.TxRunner, projectID string, works []string) error {
	return repokit.InTx(ctx, db, srepo.NewPG(), func(r srepo.Repo) error {
		for _, w := range works {
			pw := domain.ProjectWork{ID: ssvc.WorkKey(projectID, w), ProjectID: projectID, WorkID: w}
			if err := r.AttachWork(ctx, pw); err != nil {
				return fmt.Errorf("attach %s: %w", pw.ID, err)
			}
		}
		return nil
	})
}

func newCountsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "counts <project>",
		Short: "Print screening progress for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return app.withStore(ctx, func(st *store.Store) error {
				var counts domain.PhaseCounts
				err := repokit.InTx(ctx, st.PG, srepo.NewPG(), func(r srepo.Repo) (err error) {
					counts, err = r.PhaseCounts(ctx, args[0])
					return err
				})
				if err != nil {
					return err
				}
				return app.printJSON(counts)
			})
		},
	}
}

func newConflictsCmd(app *App) *cobra.Command {
	var (
		status string
		phase  string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "conflicts <project>",
		Short: "List a project's conflicts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := domain.ConflictQuery{ProjectID: args[0], Limit: limit}
			if status != "" {
				q.Status = consensus.ConflictStatus(strings.ToUpper(status))
				if !q.Status.Valid() {
					return fmt.Errorf("unknown status %q", status)
				}
			}
			if phase != "" {
				q.Phase = consensus.Phase(strings.ToUpper(phase))
				if !q.Phase.Valid() {
					return fmt.Errorf("unknown phase %q", phase)
				}
			}
			ctx := cmd.Context()
			return app.withStore(ctx, func(st *store.Store) error {
				var (
					items []domain.Conflict
					total int
				)
				err := repokit.InTx(ctx, st.PG, srepo.NewPG(), func(r srepo.Repo) (err error) {
					items, total, err = r.ListConflicts(ctx, q)
					return err
				})
				if err != nil {
					return err
				}
				for _, c := range items {
					fmt.Fprintf(app.Out, "%s\t%s\t%s\t%s\t%d decisions\n",
						c.ID, c.ProjectWorkID, c.Phase, c.Status, len(c.Decisions))
				}
				fmt.Fprintf(app.Out, "%d of %d\n", len(items), total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "PENDING or RESOLVED")
	cmd.Flags().StringVar(&phase, "phase", "", "TITLE_ABSTRACT or FULL_TEXT")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	return cmd
}

func newTokenCmd(app *App) *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "token <user>",
		Short: "Mint a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if secret == "" {
				secret = app.Secret
			}
			if secret == "" {
				return errors.New("no secret: set SCREENING_AUTH_SECRET or --secret")
			}
			fmt.Fprintln(app.Out, projects.NewSigner(secret).Sign(args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret (defaults to SCREENING_AUTH_SECRET)")
	return cmd
}
