package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dealflow/internal/collab"
	"dealflow/internal/config"
	"dealflow/internal/db"
	"dealflow/internal/domain"
	"dealflow/internal/invoice"
	"dealflow/internal/migrate"
	"dealflow/internal/monitor"
	"dealflow/internal/pipeline"
	"dealflow/internal/repo"
	"dealflow/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "df",
	Short: "Dealflow CLI",
	Long: `Dealflow runs incoming freelance leads through a staged order pipeline.
A lead is vetted by the profitability gate, clarified when the description is
too thin, specified and quoted, then held at awaiting_payment until the
payment monitor (or a manual confirm) sees the money. Only paid projects are
executed, QA-checked, and delivered.

Stages: intake -> vetting -> clarifying -> specifying -> quoting ->
awaiting_payment -> paid -> executing -> qa_review -> ready_to_deliver ->
delivered -> closed (blocked and rejected are the exits).`,
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
	viper.SetEnvPrefix("DF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("data-dir", "d", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (default <data-dir>/dealflow.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(intakeCmd())
	rootCmd.AddCommand(vetCmd())
	rootCmd.AddCommand(clarifyCmd())
	rootCmd.AddCommand(answerCmd())
	rootCmd.AddCommand(counterCmd())
	rootCmd.AddCommand(specifyCmd())
	rootCmd.AddCommand(approveCmd())
	rootCmd.AddCommand(confirmCmd())
	rootCmd.AddCommand(executeCmd())
	rootCmd.AddCommand(deliverCmd())
	rootCmd.AddCommand(closeCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a dealflow workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("data-dir")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Printf("Initialized workspace: %s, database %s\n", cfgPath, db.Path(workspace))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func intakeCmd() *cobra.Command {
	var title, description, client, platform string
	var budget float64
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Register a new lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) error {
				proj, err := p.Intake(ctx, pipeline.NewLead{
					Title:       title,
					Description: description,
					ClientName:  client,
					Budget:      budget,
					Platform:    platform,
				})
				if err != nil {
					return err
				}
				return printProject(proj)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "lead title")
	cmd.Flags().StringVar(&description, "description", "", "lead description")
	cmd.Flags().StringVar(&client, "client", "", "client name")
	cmd.Flags().Float64Var(&budget, "budget", 0, "client budget")
	cmd.Flags().StringVar(&platform, "platform", "direct", "source platform (upwork, fiverr, direct)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func vetCmd() *cobra.Command {
	var complexity string
	cmd := &cobra.Command{
		Use:   "vet <project>",
		Short: "Run the profitability gate on a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.Vet(ctx, id, domain.Complexity(complexity))
			})
		},
	}
	cmd.Flags().StringVar(&complexity, "complexity", "medium", "labor complexity (low, medium, high)")
	return cmd
}

func clarifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clarify <project>",
		Short: "Analyze the description and send clarifying questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				proj, err := p.Clarify(ctx, id)
				if err != nil {
					return proj, err
				}
				if proj.Stage == domain.StageBlocked && !viper.GetBool("json") {
					open, listErr := p.Repo.ListClarifications(ctx, proj.ID)
					if listErr == nil {
						fmt.Println("Questions sent to the client:")
						for _, c := range open {
							if c.Answer == "" {
								fmt.Printf("  [%d] %s\n", c.ID, c.Question)
							}
						}
					}
				}
				return proj, nil
			})
		},
	}
}

func answerCmd() *cobra.Command {
	var answers []string
	cmd := &cobra.Command{
		Use:   "answer <project>",
		Short: "Record client answers to clarifying questions",
		Long:  "Each --answer takes the form <question-id>=<answer text>.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make(map[int64]string, len(answers))
			for _, a := range answers {
				idStr, text, ok := strings.Cut(a, "=")
				if !ok {
					return fmt.Errorf("invalid --answer %q, expected <id>=<text>", a)
				}
				id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid question id %q", idStr)
				}
				parsed[id] = strings.TrimSpace(text)
			}
			if len(parsed) == 0 {
				return fmt.Errorf("at least one --answer is required")
			}
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.AnswerQuestions(ctx, id, parsed)
			})
		},
	}
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "answer as <question-id>=<text> (repeatable)")
	return cmd
}

func counterCmd() *cobra.Command {
	var price float64
	cmd := &cobra.Command{
		Use:   "counter <project>",
		Short: "Accept a counter-offer and re-vet at the new budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.AcceptCounterOffer(ctx, id, price)
			})
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "agreed price (defaults to the suggested counter-offer)")
	return cmd
}

func specifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "specify <project>",
		Short: "Generate the project specification and price hint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.Specify(ctx, id)
			})
		},
	}
}

func approveCmd() *cobra.Command {
	var price float64
	cmd := &cobra.Command{
		Use:   "approve <project>",
		Short: "Approve the spec, lock the price, and issue the invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.ApproveSpec(ctx, id, price)
			})
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "fixed price (defaults to suggested price, then budget)")
	return cmd
}

func confirmCmd() *cobra.Command {
	var txRef, method string
	cmd := &cobra.Command{
		Use:   "confirm <project>",
		Short: "Manually confirm payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.ConfirmPayment(ctx, id, txRef, method)
			})
		},
	}
	cmd.Flags().StringVar(&txRef, "tx-ref", "", "payment transaction reference")
	cmd.Flags().StringVar(&method, "method", "manual", "payment method")
	return cmd
}

func executeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <project>",
		Short: "Run the code generator on a paid project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.Execute(ctx, id)
			})
		},
	}
}

func deliverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deliver <project>",
		Short: "Deliver the work to the client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.Deliver(ctx, id)
			})
		},
	}
}

func closeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <project>",
		Short: "Close a delivered project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.Close(ctx, id)
			})
		},
	}
}

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <project>",
		Short: "Advance a project through every stage the guards allow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id int64) (domain.Project, error) {
				return p.Process(ctx, id)
			})
		},
	}
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Inspect projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var stage, platform string
	var rejected bool
	var limit int
	var cursor int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				filters := repo.ProjectFilters{
					Stage:    domain.Stage(stage),
					Platform: platform,
					Limit:    limit,
					CursorID: cursor,
				}
				if cmd.Flags().Changed("rejected") {
					filters.Rejected = &rejected
				}
				items, err := r.ListProjects(ctx, filters)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Reference", "Title", "Stage", "Budget", "Price", "Paid"})
				for _, p := range items {
					paid := ""
					if p.PaymentConfirmed {
						paid = "yes"
					}
					tw.AppendRow(table.Row{p.ID, p.Reference, p.Title, p.Stage, p.ClientBudget, p.FixedPrice, paid})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "filter by stage")
	cmd.Flags().StringVar(&platform, "platform", "", "filter by platform")
	cmd.Flags().BoolVar(&rejected, "rejected", false, "filter by rejection state")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	cmd.Flags().Int64Var(&cursor, "cursor", 0, "list projects older than this id")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project>",
		Short: "Show one project with its clarifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				proj, err := resolveProject(ctx, r, args[0])
				if err != nil {
					return err
				}
				clars, err := r.ListClarifications(ctx, proj.ID)
				if err != nil {
					return err
				}
				out := map[string]any{"project": proj}
				if len(clars) > 0 {
					out["clarifications"] = clars
				}
				return printJSON(out)
			})
		},
	}
}

func logCmd() *cobra.Command {
	var n int
	var action, project string
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var events []domain.Event
				var err error
				if project != "" {
					proj, perr := resolveProject(ctx, r, project)
					if perr != nil {
						return perr
					}
					events, err = r.EventsForProject(ctx, proj.ID)
				} else {
					events, err = r.LatestEvents(ctx, n, action)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Project", "Stage", "Action", "Details", "At"})
				for _, e := range events {
					tw.AppendRow(table.Row{e.ID, e.ProjectID, e.Stage, e.Action, e.Details, e.TS})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&action, "action", "", "filter by action")
	cmd.Flags().StringVar(&project, "project", "", "show all events for one project")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the book of business",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				stats, err := r.Stats(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				fmt.Printf("Projects: %d (%d rejected)\n", stats.Total, stats.Rejected)
				fmt.Printf("Confirmed value: %.2f\n", stats.ConfirmedValue)
				fmt.Printf("Pipeline value:  %.2f\n", stats.PipelineValue)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Stage", "Count"})
				for _, s := range stats.ByStage {
					tw.AppendRow(table.Row{s.Stage, s.Count})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func monitorCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the payment monitor",
		Long: `Polls the payment oracle for every project at awaiting_payment. A found
payment confirms the project and processes it forward. Runs until
interrupted unless --once is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) error {
				m := monitor.New(p)
				if once {
					m.Tick(ctx)
					return nil
				}
				if err := m.Start(); err != nil {
					return err
				}
				fmt.Printf("Payment monitor running (every %s), Ctrl-C to stop\n", m.Interval)
				<-ctx.Done()
				m.Stop()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single tick and exit")
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyDeleteCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (the secret is shown once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				plaintext, key, err := server.MintAPIKey(ctx, r, name, role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{
						"id": key.ID, "name": key.Name, "role": key.Role, "key": plaintext,
					})
				}
				fmt.Printf("API key %s (%s, role %s)\n", key.ID, key.Name, key.Role)
				fmt.Printf("Secret (save it now, it is not stored): %s\n", plaintext)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key name")
	cmd.Flags().StringVar(&role, "role", "operator", "role (viewer, operator, admin)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.Name, k.Role, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func apikeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var withMonitor bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) error {
				authCfg := server.AuthConfig{
					JWTSecret: p.Config.Server.JWTSecret,
					DevLogin:  p.Config.Server.DevLogin,
				}
				if secret := os.Getenv("DF_JWT_SECRET"); secret != "" {
					authCfg.JWTSecret = secret
				}
				if authCfg.JWTSecret == "" {
					return fmt.Errorf("a JWT secret is required: set server.jwt_secret or DF_JWT_SECRET")
				}
				handler, err := server.New(server.Config{Pipeline: p, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				if addr == "" {
					addr = p.Config.Server.Addr
				}

				dispatcher := server.NewWebhookDispatcher(p.Repo)
				if err := dispatcher.Start(); err != nil {
					return err
				}
				defer dispatcher.Stop()
				if withMonitor {
					m := monitor.New(p)
					if err := m.Start(); err != nil {
						return err
					}
					defer m.Stop()
				}

				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Dealflow API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr in config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&withMonitor, "monitor", false, "also run the payment monitor")
	return cmd
}

// --- helpers ---

func loadConfig(workspace string) (*config.Config, error) {
	if override := viper.GetString("config"); override != "" {
		return config.FromFile(override)
	}
	return config.Load(workspace)
}

func withPipeline(ctx context.Context, fn func(context.Context, *pipeline.Pipeline) error) error {
	workspace := viper.GetString("data-dir")
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	dataDir := filepath.Join(workspace, ".dealflow")
	p := pipeline.New(conn, cfg, pipeline.Collaborators{
		Clarifier: collab.Clarifier{},
		SpecGen:   collab.SpecGenerator{},
		CodeGen:   collab.Scaffolder{},
		Oracle: collab.LedgerOracle{
			Path:         filepath.Join(dataDir, "payments.ledger"),
			TolerancePct: cfg.Payments.TolerancePct,
		},
		Notifier: collab.FileNotifier{Path: filepath.Join(dataDir, "notifications.log")},
		Invoicer: invoice.New(workspace, cfg),
	})
	return fn(ctx, p)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("data-dir")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

// withProject resolves the project argument and prints the updated project.
func withProject(ctx context.Context, arg string, fn func(context.Context, *pipeline.Pipeline, int64) (domain.Project, error)) error {
	return withPipeline(ctx, func(ctx context.Context, p *pipeline.Pipeline) error {
		proj, err := resolveProject(ctx, p.Repo, arg)
		if err != nil {
			return err
		}
		proj, err = fn(ctx, p, proj.ID)
		if err != nil {
			return err
		}
		return printProject(proj)
	})
}

func resolveProject(ctx context.Context, r repo.Repo, arg string) (domain.Project, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return r.GetProject(ctx, id)
	}
	return r.GetProjectByReference(ctx, arg)
}

func printProject(p domain.Project) error {
	if viper.GetBool("json") {
		return printJSON(p)
	}
	fmt.Printf("%s [%d] %s\n", p.Reference, p.ID, p.Title)
	fmt.Printf("  stage: %s", p.Stage)
	if p.Rejected {
		fmt.Printf(" (rejected: %s)", p.RejectionReason)
	}
	fmt.Println()
	fmt.Printf("  budget: %.2f via %s", p.ClientBudget, p.Platform)
	if p.FixedPrice > 0 {
		fmt.Printf(", fixed price: %.2f", p.FixedPrice)
	} else if p.SuggestedPrice > 0 {
		fmt.Printf(", suggested: %.2f", p.SuggestedPrice)
	}
	fmt.Println()
	if p.EstimatedMargin != 0 || p.EstimatedHours != 0 {
		fmt.Printf("  margin: %.1f%%, est. %.1f hours\n", p.EstimatedMargin, p.EstimatedHours)
	}
	if p.PaymentConfirmed {
		fmt.Printf("  paid: %s (%s)\n", p.PaidAt, p.PaymentMethod)
	}
	if p.QAScore > 0 {
		fmt.Printf("  qa score: %d\n", p.QAScore)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
