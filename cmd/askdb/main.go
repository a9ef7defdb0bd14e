// Package main provides the askdb command line: ask questions of a relational
// database in natural language.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonathan/askdb/internal/chart"
	"github.com/jonathan/askdb/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "askdb",
	Short: "Answer natural-language questions with generated SQL",
	Long: `askdb retrieves relevant schema descriptions and example queries, asks a language model
for SQL, repairs it from execution errors, then summarizes and charts the result.

Settings come from flags, then environment variables (a .env file is loaded if present),
then the --config JSON file, then built-in defaults.`,
	SilenceUsage: true,
}

var (
	configPath string
	flagConfig config.Config
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by env and flags)")
	pf.BoolVarP(&flagConfig.Verbose, "verbose", "v", false, "Print detailed debug information")
	pf.StringVar(&flagConfig.LLMProvider, "llm-provider", "", "Generation provider: gemini, anthropic or groq")
	pf.StringVar(&flagConfig.LLMModel, "llm-model", "", "Model used for every tier (overrides provider defaults)")
	pf.StringVar(&flagConfig.DBDriver, "db-driver", "", "Database driver: postgres, sqlite or clickhouse")
	pf.StringVar(&flagConfig.DatabaseURL, "db-url", "", "Database connection URL (defaults to DATABASE_URL)")
	pf.StringVar(&flagConfig.SQLDialect, "dialect", "", "SQL dialect for prompts: tsql, postgres, sqlite or clickhouse")
	pf.StringVar(&flagConfig.ExamplesCSV, "examples-csv", "", "CSV file of example queries")
	pf.StringVar(&flagConfig.SchemaCSV, "schema-csv", "", "CSV file of schema descriptions")
	pf.StringVar(&flagConfig.IndexBackend, "index-backend", "", "Similarity index backend: sqlite or qdrant")
	pf.StringVar(&flagConfig.IndexPath, "index-path", "", "SQLite similarity index file")
	pf.StringVar(&flagConfig.EmbeddingProvider, "embedding-provider", "", "Embedding provider: gemini or ollama")
}

func main() {
	if chart.IsSandboxChild() {
		if err := chart.ServeChild(context.Background(), os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
