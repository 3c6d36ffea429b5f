package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pintuan-hub/publisher/internal/codescan"
	"github.com/pintuan-hub/publisher/internal/config"
	"github.com/pintuan-hub/publisher/internal/evaluation"
	"github.com/pintuan-hub/publisher/internal/extraction"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Recognition accuracy evaluation tools",
		Long: `Evaluation tools for measuring how well order links and titles are
recognised over a labelled set of screenshots.`,
	}

	cmd.AddCommand(newEvalRunCmd())
	cmd.AddCommand(newEvalReportCmd())

	return cmd
}

func newEvalRunCmd() *cobra.Command {
	var (
		manifestPath string
		outputDir    string
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run recognition over a manifest of screenshots",
		Example: `  publisher eval run --manifest screenshots/manifest.yaml --output evals/latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			manifest, err := evaluation.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			slog.Info("Manifest loaded", "items", len(manifest.Items))

			extractor, err := cfg.NewExtractor()
			if err != nil {
				return err
			}

			runner := &evaluation.Runner{
				Locator:     codescan.NewLocator(codescan.NewQRDecoder()),
				Extractor:   extractor,
				Concurrency: concurrency,
			}
			model := cfg.ExtractionModel
			if model == "" {
				model = extraction.DefaultModel(cfg.ExtractionProvider)
			}
			results := &evaluation.Results{
				Provider:  cfg.ExtractionProvider,
				Model:     model,
				Timestamp: time.Now().Format("2006-01-02_15-04-05"),
			}
			results.Results = runner.Run(cmd.Context(), manifest)
			results.Summary = evaluation.CalculateSummary(results.Results)

			slog.Info("Saving results", "output", outputDir)
			if err := evaluation.SaveResults(results, outputDir); err != nil {
				return fmt.Errorf("failed to save results: %w", err)
			}

			printSummary(cmd, results.Summary)
			fmt.Fprintf(cmd.OutOrStdout(), "\nResults saved to: %s\n", outputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to the manifest YAML (required)")
	cmd.Flags().StringVar(&outputDir, "output", "evals", "Directory for results.yaml and results.parquet")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Number of screenshots processed in parallel")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func newEvalReportCmd() *cobra.Command {
	var resultsDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise a previous evaluation run",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := evaluation.LoadParquet(evaluation.ResultsPath(resultsDir))
			if err != nil {
				return err
			}
			printSummary(cmd, evaluation.CalculateSummary(rows))

			out := cmd.OutOrStdout()
			for _, r := range rows {
				if r.LinkMatch && r.TitleMatch {
					continue
				}
				fmt.Fprintf(out, "  %s: link=%q (want %q) title=%q (want %q)\n", r.ID, r.Link, r.ExpectedLink, r.Title, r.ExpectedTitle)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results", "evals", "Directory written by eval run")

	return cmd
}

func printSummary(cmd *cobra.Command, summary *evaluation.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n========================================")
	fmt.Fprintln(out, "Evaluation Summary")
	fmt.Fprintln(out, "========================================")
	fmt.Fprintf(out, "Total Screenshots:  %d\n", summary.Total)
	fmt.Fprintf(out, "Links Found:        %d\n", summary.LinksFound)
	fmt.Fprintf(out, "Locate Errors:      %d\n", summary.LocateErrors)
	fmt.Fprintf(out, "Extraction Errors:  %d\n", summary.ExtractionErrors)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Link Accuracy:      %.2f%%\n", summary.LinkAccuracy*100)
	fmt.Fprintf(out, "Title Accuracy:     %.2f%%\n", summary.TitleAccuracy*100)
	fmt.Fprintln(out, "========================================")
}
