package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/jonathan/askdb/internal/logging"
	"github.com/jonathan/askdb/internal/retrieval"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the schema and example corpora into the similarity index",
	Long: `Loads both CSV corpora and embeds every entry that is not yet indexed.
Entries already present are left untouched, so the command is safe to re-run.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	a, err := newRetrievalApp(ctx, cfg, logging.New(cfg.Verbose))
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.buildIndex(ctx)
	if err != nil {
		return err
	}
	printBuildStats(cmd.OutOrStdout(), stats)
	return nil
}

func printBuildStats(w io.Writer, stats []retrieval.BuildStats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Corpus", "Total", "Added", "Skipped", "Removed"})
	table.SetAutoFormatHeaders(false)
	for _, s := range stats {
		table.Append([]string{s.Corpus, strconv.Itoa(s.Total), strconv.Itoa(s.Added), strconv.Itoa(s.Skipped), strconv.Itoa(s.Removed)})
	}
	table.Render()
	fmt.Fprintln(w, "Index is up to date.")
}
