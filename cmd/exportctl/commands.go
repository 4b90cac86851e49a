package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/story-export/internal/services/queue"
	redisstore "github.com/jwebster45206/story-export/internal/storage"
	"github.com/jwebster45206/story-export/pkg/conditions"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/exporterr"
	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
	"github.com/jwebster45206/story-export/pkg/storage"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// printProblems writes every collected problem to w, returning how many were errors
func printProblems(w io.Writer, nodeID string, errs []exporterr.RenderError) int {
	n := 0
	for _, e := range errs {
		if e.Severity == exporterr.SeverityError {
			n++
		}
		fmt.Fprintf(w, "%s: %s: %s\n", e.Severity, nodeID, e.Message)
	}
	return n
}

func newRenderCmd(opts *options) *cobra.Command {
	var mode string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "render [fixture] [dialog_id] [node_id]",
		Short: "Render one node of a dialog",
		Long: `Render one node of a dialog.

Modes:
  action     code of an action or condition node (default)
  preview    human readable summary of an action node
  function   the function generated for the node, with its steps inlined`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(args[0])
			if err != nil {
				return err
			}
			g, err := s.dialog(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pass := s.exporter.NewPass(s.fixture.ProjectID)
			req := export.ActionRequest{Graph: g, NodeID: args[2]}

			var res export.Result
			switch mode {
			case "action":
				res, err = pass.RenderAction(ctx, req)
			case "preview":
				res, err = pass.Preview(ctx, req)
			case "function":
				res, err = pass.RenderFunction(ctx, req)
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if mode == "preview" {
				fmt.Fprintln(cmd.OutOrStdout(), res.Preview)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			}
			if printProblems(cmd.ErrOrStderr(), args[2], res.Errors) > 0 {
				return fmt.Errorf("rendering %s reported errors", args[2])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "action", "action, preview or function")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "export [fixture] [dialog_id]",
		Short: "Export a whole dialog",
		Long: `Export a whole dialog: one function for each entry node and for every node
the generation conditions give its own function, followed by the language file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(args[0])
			if err != nil {
				return err
			}
			g, err := s.dialog(args[1])
			if err != nil {
				return err
			}

			exp, err := s.exporter.NewPass(s.fixture.ProjectID).ExportDialog(cmd.Context(), g)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(exp)
			}

			out := cmd.OutOrStdout()
			for _, f := range exp.Functions {
				fmt.Fprintln(out, f.Text)
				fmt.Fprintln(out)
				printProblems(cmd.ErrOrStderr(), f.NodeID, f.Errors)
			}
			fmt.Fprintln(out, exp.LanguageFile.Text)
			printProblems(cmd.ErrOrStderr(), "language file", exp.LanguageFile.Errors)

			if n := exp.Count(exporterr.SeverityError); n > 0 {
				return fmt.Errorf("export of %s reported %d errors", g.ID, n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the export as JSON")
	return cmd
}

func newDecideCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "decide [fixture] [dialog_id] [node_id...]",
		Short: "Show the function generation decision of dialog nodes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(args[0])
			if err != nil {
				return err
			}
			g, err := s.dialog(args[1])
			if err != nil {
				return err
			}

			ids := args[2:]
			if len(ids) == 0 {
				for _, n := range g.Nodes {
					ids = append(ids, n.ID)
				}
			}
			pass := s.exporter.NewPass(s.fixture.ProjectID)
			for _, id := range ids {
				d, err := pass.Decide(cmd.Context(), g, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, describe(d))
			}
			return nil
		},
	}
}

func describe(d conditions.Decision) string {
	switch {
	case d.Generate:
		return fmt.Sprintf("own function (generate rule %d)", d.GenerateRule)
	case d.GenerateRule >= 0:
		return fmt.Sprintf("inline (prevent rule %d)", d.PreventRule)
	}
	return "inline"
}

func newConditionsCmd(opts *options) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "conditions [fixture]",
		Short: "Display the generation condition set of the fixture's project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(args[0])
			if err != nil {
				return err
			}
			gen, prev, err := s.exporter.NewPass(s.fixture.ProjectID).ConditionDisplay(cmd.Context(), conditions.ParseLanguage(lang))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generate: %s\nprevent:  %s\n", gen, prev)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "display language")
	return cmd
}

func newPlaceholdersCmd() *cobra.Command {
	var engine string
	return withEngine(&cobra.Command{
		Use:   "placeholders [template_type]",
		Short: "List the tokens a template type may use",
		Long: `List the tokens a template type may use. Without a type, list every
known template type with its category.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, t := range templates.All() {
					cat, _ := templates.CategoryOf(t)
					fmt.Fprintf(out, "%s\t%s\n", cat, t)
				}
				return nil
			}
			ph, err := export.PlaceholdersForType(templates.Type(args[0]), templates.Engine(engine))
			if err != nil {
				return err
			}
			for _, p := range ph {
				fmt.Fprintf(out, "%-28s %-40s %s\n", p.Name, p.Token, p.Description)
			}
			return nil
		},
	}, &engine)
}

func withEngine(cmd *cobra.Command, engine *string) *cobra.Command {
	names := []string{string(templates.EngineGeneral), string(templates.EngineLegacy)}
	cmd.Flags().StringVarP(engine, "engine", "e", string(templates.EngineGeneral), "template engine: "+strings.Join(names, " or "))
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var redisURL string
	cmd := &cobra.Command{
		Use:   "import [fixture]",
		Short: "Write a fixture's objects, templates and conditions to Redis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := storage.LoadFixtureFile(args[0])
			if err != nil {
				return err
			}
			r, err := redisstore.NewRedisStorage(redisURL, opts.dataDir, opts.logger())
			if err != nil {
				return err
			}
			defer r.Close()

			ctx := cmd.Context()
			if err := r.Ping(ctx); err != nil {
				return err
			}
			if err := r.Import(ctx, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported project %s\n", f.ProjectID)
			return nil
		},
	}
	cmd.Flags().StringVar(&redisURL, "redis", "localhost:6379", "Redis address or redis:// URL")
	return cmd
}

func newEnqueueCmd(opts *options) *cobra.Command {
	var redisURL string
	cmd := &cobra.Command{
		Use:   "enqueue [fixture] [dialog_id...]",
		Short: "Queue export jobs for the worker",
		Long: `Queue one export job per dialog of the fixture, or only the named dialogs.
A worker renders them against the project stored in Redis; run import first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := storage.LoadFixtureFile(args[0])
			if err != nil {
				return err
			}
			dialogs := f.Dialogs
			if len(args) > 1 {
				dialogs = nil
				for _, id := range args[1:] {
					g, ok := f.Dialog(id)
					if !ok {
						return fmt.Errorf("dialog %q not found in fixture", id)
					}
					dialogs = append(dialogs, g)
				}
			}

			ctx := cmd.Context()
			client, err := queue.NewClient(ctx, redisURL, opts.logger())
			if err != nil {
				return err
			}
			defer client.Close()
			q := queue.NewExportQueue(client, queue.DefaultJobTTL)

			for _, g := range dialogs {
				job, err := q.Enqueue(ctx, queuePkg.NewDialogRequest(f.ProjectID, g))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", g.ID, job.RequestID)
			}
			depth, err := q.Depth(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "queue depth: %d\n", depth)
			return nil
		},
	}
	cmd.Flags().StringVar(&redisURL, "redis", "localhost:6379", "Redis address or redis:// URL")
	return cmd
}
