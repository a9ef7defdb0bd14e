package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonathan/askdb/internal/logging"
	"github.com/jonathan/askdb/internal/observability"
	"github.com/jonathan/askdb/internal/pipeline"
	"github.com/jonathan/askdb/internal/summary"
	"github.com/jonathan/askdb/internal/types"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one natural-language question",
	Long: `Retrieves the two closest schema descriptions and example queries, generates SQL,
repairs it from execution errors (at most three attempts), prints the rows and a summary,
and writes an HTML chart when one could be drawn.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askUser      string
	askChartOut  string
	askNoChart   bool
	askNoSummary bool
	askHint      string
	askJSON      bool
	askMaxRows   int
)

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "", "Name of the person asking (included in the summary prompt)")
	askCmd.Flags().StringVar(&askChartOut, "chart-out", "chart.html", "Where to write the rendered chart")
	askCmd.Flags().BoolVar(&askNoChart, "no-chart", false, "Skip chart generation")
	askCmd.Flags().BoolVar(&askNoSummary, "no-summary", false, "Skip the summary")
	askCmd.Flags().StringVar(&askHint, "hint", "", "Extra instruction for the summary (overrides SUMMARY_HINT)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the answer as JSON")
	askCmd.Flags().IntVar(&askMaxRows, "max-rows", 50, "Maximum rows to print (0 prints all)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Verbose)

	question := types.Question{Text: strings.Join(args, " "), UserName: askUser}
	if err := question.Validate(); err != nil {
		return fmt.Errorf("invalid question: %w", err)
	}

	opts := pipeline.Options{
		SummaryHint: askHint,
		SkipSummary: askNoSummary,
		SkipChart:   askNoChart,
	}
	if cfg.Verbose {
		opts.OnProgress = observability.NewPrinter(cmd.ErrOrStderr()).PrintEvent
	}

	a, err := newApp(ctx, cfg, logger, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, runErr := a.pipeline.Run(ctx, question)
	if answer == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(answer); err != nil {
			return fmt.Errorf("failed to encode answer: %w", err)
		}
	} else {
		printAnswer(out, answer, askMaxRows)
	}

	if answer.Chart.Rendered() && askChartOut != "" {
		if err := os.WriteFile(askChartOut, []byte(answer.Chart.HTML), 0o644); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
		if !askJSON {
			fmt.Fprintf(out, "\nChart written to %s\n", askChartOut)
		}
	}

	var apiErr *summary.APICallError
	if errors.As(runErr, &apiErr) {
		return fmt.Errorf("summary unavailable: %w", runErr)
	}
	return runErr
}

// printAnswer writes a human-readable rendition of answer
func printAnswer(w io.Writer, answer *types.Answer, maxRows int) {
	if !answer.Succeeded() {
		fmt.Fprintln(w, answer.Failure)
		return
	}

	fmt.Fprintf(w, "SQL (attempt %d):\n%s\n\n", answer.Attempts, answer.SQL)

	summary.WriteTable(w, answer.Result, maxRows)

	if answer.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", answer.Summary)
	}

	switch {
	case answer.Chart == nil:
	case answer.Chart.Rendered():
		fmt.Fprintf(w, "\nChart rendered after %d attempt(s).\n", answer.Chart.Attempts)
	default:
		fmt.Fprintf(w, "\nNo chart: %s\n", answer.Chart.Err)
	}
}
