package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"caseline/internal/app"
	"caseline/internal/board"
	"caseline/internal/db"
	"caseline/internal/domain"
	"caseline/internal/engine"
	"caseline/internal/repo"
	"caseline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Caseline CLI",
	Long: `Caseline manages funeral case dossiers and their task boards.
- Dossier: one case file, either a local burial or a repatriation flow.
- Status: created -> in_progress -> under_review -> completed -> closed,
  with under_review able to bounce back to in_progress.
- Tasks: checklist items seeded from the catalog per flow and phase;
  some complete themselves when the matching fact arrives (a document
  approved, a flight booked).
- Legal hold: freezes all status changes until lifted.
- Audit log: every transition, hold and override, with who and why.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CASELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().Bool("privileged", false, "act as a privileged operator")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("privileged", rootCmd.PersistentFlags().Lookup("privileged"))
}

func registerCommands() {
	rootCmd.AddCommand(dossierCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(serveCmd())
}

func dossierCmd() *cobra.Command {
	d := &cobra.Command{Use: "dossier", Short: "Manage dossiers"}
	d.AddCommand(dossierCreateCmd())
	d.AddCommand(dossierListCmd())
	d.AddCommand(dossierShowCmd())
	d.AddCommand(dossierFlowCmd())
	d.AddCommand(dossierTransitionCmd())
	d.AddCommand(dossierHoldCmd())
	d.AddCommand(dossierReleaseHoldCmd())
	d.AddCommand(dossierHistoryCmd())
	d.AddCommand(dossierSeedCmd())
	d.AddCommand(dossierEvaluateCmd())
	return d
}

func dossierCreateCmd() *cobra.Command {
	var ref, flow string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a dossier",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ref == "" {
				return fmt.Errorf("--ref required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				d, err := a.Engine.CreateDossier(ctx, engine.DossierCreateOptions{
					Ref:     ref,
					Flow:    domain.FlowType(flow),
					ActorID: viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "external case reference")
	cmd.Flags().StringVar(&flow, "flow", "", "flow type (local, repatriation); omit when unknown")
	_ = cmd.MarkFlagRequired("ref")
	return cmd
}

func dossierListCmd() *cobra.Command {
	var flow, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dossiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListDossiers(ctx, repo.DossierFilters{
					Flow:   domain.FlowType(flow),
					Status: domain.Status(status),
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Ref", "Flow", "Status", "Hold"})
				for _, d := range items {
					hold := ""
					if d.LegalHold {
						hold = "yes"
						if d.LegalHoldReason != nil {
							hold = *d.LegalHoldReason
						}
					}
					tw.AppendRow(table.Row{d.ID, d.Ref, d.Flow, d.Status, hold})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&flow, "flow", "", "flow filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func dossierShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <dossier-id>",
		Short: "Show a dossier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				d, err := a.Engine.Repo.GetDossier(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	return cmd
}

func dossierFlowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow <dossier-id> <local|repatriation>",
		Short: "Set the flow type of an unset dossier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				d, err := a.Engine.SetFlow(ctx, args[0], domain.FlowType(args[1]), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	return cmd
}

func dossierTransitionCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "transition <dossier-id> <target-status>",
		Short: "Request a status transition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				ev, err := a.Engine.Transition(ctx, engine.TransitionRequest{
					DossierID:  args[0],
					Target:     domain.Status(args[1]),
					ActorID:    viper.GetString("actor-id"),
					Privileged: viper.GetBool("privileged"),
					Reason:     reason,
				})
				if err != nil {
					var ge engine.GateError
					if errors.As(err, &ge) {
						return fmt.Errorf("%s: %s", ge.Code, ge.Error())
					}
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason (required for privileged overrides)")
	return cmd
}

func dossierHoldCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "hold <dossier-id>",
		Short: "Place a legal hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return fmt.Errorf("--reason required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.PlaceHold(ctx, args[0], reason, viper.GetString("actor-id")); err != nil {
					return err
				}
				d, err := a.Engine.Repo.GetDossier(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "hold reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func dossierReleaseHoldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release-hold <dossier-id>",
		Short: "Lift a legal hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.ClearHold(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				d, err := a.Engine.Repo.GetDossier(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	return cmd
}

func dossierHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <dossier-id>",
		Short: "Show the status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				events, err := a.Engine.Repo.ListStatusHistory(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "From", "To", "Actor", "Reason"})
				for _, ev := range events {
					reason := ""
					if ev.Reason != nil {
						reason = *ev.Reason
					}
					tw.AppendRow(table.Row{ev.TS, ev.FromStatus, ev.ToStatus, ev.ActorID, reason})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func dossierSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <dossier-id>",
		Short: "Seed template tasks for the current phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				created, err := a.Engine.Seed(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%d task(s) created\n", created)
				return nil
			})
		},
	}
	return cmd
}

func dossierEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <dossier-id>",
		Short: "Run the auto-completion evaluator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				completed, errs := a.Engine.Evaluate(ctx, args[0])
				for _, t := range completed {
					fmt.Printf("completed: %s\n", t)
				}
				for _, evalErr := range errs {
					fmt.Printf("error: %v\n", evalErr)
				}
				if len(completed) == 0 && len(errs) == 0 {
					fmt.Println("nothing to complete")
				}
				return nil
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage tasks"}
	t.AddCommand(taskListCmd())
	t.AddCommand(taskShowCmd())
	t.AddCommand(taskMoveCmd())
	t.AddCommand(taskDoneCmd())
	t.AddCommand(taskBlockCmd())
	t.AddCommand(taskUnblockCmd())
	t.AddCommand(taskAssignCmd())
	return t
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	var column string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Column = domain.Column(column)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				tasks, err := a.Engine.Repo.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				renderTaskTable(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.DossierID, "dossier", "", "dossier id")
	cmd.Flags().BoolVar(&f.LooseOnly, "loose", false, "only tasks not attached to a dossier")
	cmd.Flags().StringVar(&column, "column", "", "column filter (todo, doing, done)")
	cmd.Flags().StringVar(&f.Type, "type", "", "type filter")
	cmd.Flags().BoolVar(&f.IncludeArchived, "archived", false, "include archived tasks")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				t, err := a.Engine.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <task-id> <todo|doing|done>",
		Short: "Move a task to a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				t, err := a.Engine.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				e := a.Engine
				b := board.New(board.SQLStore{DB: e.DB, Repo: e.Repo, Audit: e.Audit}, []domain.Task{t})
				if err := b.Move(ctx, t.ID, domain.Column(args[1]), viper.GetString("actor-id")); err != nil {
					return err
				}
				t, err = e.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskDoneCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				t, err := a.Engine.CompleteTask(ctx, args[0], viper.GetString("actor-id"), note)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "completion note")
	return cmd
}

func taskBlockCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "block <task-id>",
		Short: "Mark a task blocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				var reasonPtr *string
				if reason != "" {
					reasonPtr = &reason
				}
				return a.Engine.Repo.SetTaskBlocked(ctx, args[0], true, reasonPtr)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the task is blocked")
	return cmd
}

func taskUnblockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unblock <task-id>",
		Short: "Clear the blocked flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.Repo.SetTaskBlocked(ctx, args[0], false, nil)
			})
		},
	}
	return cmd
}

func taskAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <task-id> <actor-id>",
		Short: "Assign a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				assignee := args[1]
				return a.Engine.Repo.AssignTask(ctx, args[0], &assignee)
			})
		},
	}
	return cmd
}

func boardCmd() *cobra.Command {
	var search, priority, assignee string
	cmd := &cobra.Command{
		Use:   "board <dossier-id>",
		Short: "Show the dossier's task board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				tasks, err := a.Engine.Repo.ListTasks(ctx, repo.TaskFilters{DossierID: args[0]})
				if err != nil {
					return err
				}
				tasks = board.Filter(tasks, board.FilterOptions{
					Search:     search,
					Priority:   domain.Priority(priority),
					AssigneeID: assignee,
				})
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				renderTaskTable(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match title or description")
	cmd.Flags().StringVar(&priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee filter")
	return cmd
}

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyDeleteCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var actor string
	var name string
	var privileged bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (the key is printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				return fmt.Errorf("--actor required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				raw := uuid.New().String() + uuid.New().String()
				key := domain.APIKey{
					ID:         uuid.New().String(),
					ActorID:    actor,
					Name:       name,
					KeyHash:    repo.HashAPIKey(raw),
					Privileged: privileged,
					CreatedAt:  time.Now().UTC().Format(time.RFC3339),
				}
				if err := a.Engine.Repo.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				fmt.Printf("id: %s\nkey: %s\n", key.ID, raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor id the key acts as")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	cmd.Flags().BoolVar(&privileged, "privileged", false, "allow privileged overrides")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Audit log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var dossierID, action string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				entries, err := a.Engine.Repo.ListAudit(ctx, repo.AuditFilters{
					DossierID: dossierID,
					Action:    action,
					Limit:     n,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Action", "Dossier", "Entity", "Actor"})
				for _, e := range entries {
					tw.AppendRow(table.Row{e.TS, e.Action, e.DossierID, e.EntityKind + "/" + e.EntityID, e.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	cmd.Flags().StringVar(&dossierID, "dossier", "", "dossier filter")
	cmd.Flags().StringVar(&action, "action", "", "action filter")
	return cmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep pass (seed retry, evaluator, archiving)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				ids, err := a.Engine.Repo.ListActiveDossierIDs(ctx)
				if err != nil {
					return err
				}
				for _, id := range ids {
					if created, err := a.Engine.Seed(ctx, id); err != nil {
						fmt.Printf("seed %s: %v\n", id, err)
					} else if created > 0 {
						fmt.Printf("seed %s: %d task(s)\n", id, created)
					}
					completed, errs := a.Engine.Evaluate(ctx, id)
					for _, t := range completed {
						fmt.Printf("evaluate %s: completed %s\n", id, t)
					}
					for _, evalErr := range errs {
						fmt.Printf("evaluate %s: %v\n", id, evalErr)
					}
				}
				return nil
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			a, err := app.Open(workspace)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.Config.Server.Addr
			}
			if basePath == "" {
				basePath = a.Config.Server.BasePath
			}
			authCfg := server.AuthConfig{
				JWTSecret:        os.Getenv("CASELINE_JWT_SECRET"),
				AllowActorHeader: a.Config.Server.AllowActorHeader,
			}
			if authCfg.JWTSecret == "" {
				authCfg.JWTSecret = a.Config.Server.JWTSecret
			}
			if authCfg.JWTSecret == "" && !authCfg.AllowActorHeader {
				return fmt.Errorf("CASELINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			sweeper, err := server.StartSweeper(a.Engine)
			if err != nil {
				return err
			}
			defer sweeper.Stop()
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Caseline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	return cmd
}

func withApp(ctx context.Context, fn func(context.Context, *app.Context) error) error {
	a, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func renderTaskTable(tasks []domain.Task) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Type", "Title", "Column", "Priority", "Assignee", "Blocked"})
	for _, t := range tasks {
		assignee := ""
		if t.AssigneeID != nil {
			assignee = *t.AssigneeID
		}
		blocked := ""
		if t.Blocked {
			blocked = "yes"
			if t.BlockedReason != nil {
				blocked = *t.BlockedReason
			}
		}
		tw.AppendRow(table.Row{t.ID, t.Type, t.Title, t.Column, t.Priority, assignee, blocked})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
