package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yungbote/dossier-backend/internal/app"
	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/ingestion/watch"
	"github.com/yungbote/dossier-backend/internal/modules/knowledge"
	"github.com/yungbote/dossier-backend/internal/modules/report"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				return a.Run(cmd.Context())
			})
		},
	}
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Add documents to the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]knowledge.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				files = append(files, knowledge.File{Name: filepath.Base(path), Data: data})
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				results, err := a.Services.Knowledge.IngestFiles(cmd.Context(), files)
				if err != nil {
					return err
				}
				failed := 0
				for _, r := range results {
					if r.Error != "" {
						failed++
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", color.New(color.FgRed).Sprint("FAIL"), r.Filename, r.Error)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s   %s -> %s\n", color.New(color.FgGreen).Sprint("ok"), r.Filename, r.ID)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed", failed, len(results))
				}
				return nil
			})
		},
	}
}

func newExtractCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract questions from a questionnaire file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				qs := a.Services.Questionnaires
				draft, err := qs.ExtractFile(cmd.Context(), filepath.Base(args[0]), data)
				if err != nil {
					return err
				}
				for _, d := range draft.Diagnostics {
					fmt.Fprintln(cmd.ErrOrStderr(), color.New(color.FgYellow).Sprint("warning:"), d)
				}
				if !save {
					return writeJSON(cmd.OutOrStdout(), draft)
				}
				q := domain.Questionnaire{Title: draft.Title, Questions: draft.Questions}
				id, err := qs.Save(cmd.Context(), q)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"id": id, "questions": len(q.Questions)})
			})
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save the extracted questionnaire")
	return cmd
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUERY...",
		Short: "Answer a question from the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Services.QA.Answer(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, res.Answer)
				for _, s := range res.Sources {
					fmt.Fprintf(out, "\n[%s] %s\n", s.Title, s.Snippet)
				}
				return nil
			})
		},
	}
}

func newReportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report QUESTIONNAIRE_ID",
		Short: "Generate and save a report for a saved questionnaire",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				var progress report.ProgressFunc
				if term.IsTerminal(int(os.Stderr.Fd())) {
					progress = func(p report.Progress) {
						fmt.Fprintf(cmd.ErrOrStderr(), "\r%d/%d answered", p.Completed, p.Total)
					}
				}
				rep, err := a.Services.Reports.GenerateForQuestionnaire(cmd.Context(), args[0], progress)
				if progress != nil {
					fmt.Fprintln(cmd.ErrOrStderr())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved report %s\n", rep.ID)
				raw, err := report.Export(rep.Items)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), out, raw)
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the JSON export to FILE instead of stdout")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export REPORT_ID",
		Short: "Export a saved report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				raw, err := a.Services.Reports.ExportByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), out, raw)
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to FILE instead of stdout")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the vector store connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Services.Knowledge.Ping(cmd.Context()); err != nil {
					return fmt.Errorf("vector store: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "vector store: %s\n", color.New(color.FgGreen).Sprint("ok"))
				return nil
			})
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR",
		Short: "Ingest documents as they appear in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				kb := a.Services.Knowledge
				w, err := watch.New(watch.Deps{
					Log: a.Log,
					Dir: args[0],
					Ingest: func(ctx context.Context, name string, data []byte) (string, error) {
						return kb.Ingest(ctx, knowledge.File{Name: name, Data: data})
					},
				})
				if err != nil {
					return err
				}
				return w.Run(cmd.Context())
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeOutput(w io.Writer, path string, raw []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(w, string(raw))
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
