package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	exconvex "github.com/besingamkb/ex-convex"
)

var (
	cfgFile    string
	rootDir    string
	storeURL   string
	outputFile string
	outputDir  string
	tables     string
	format     string
	docsFile   string
)

var rootCmd = &cobra.Command{
	Use:   "convex-lens",
	Short: "Schema intelligence for Convex workspaces",
	Long: `convex-lens derives a structured schema model from Convex schema
definitions and sampled documents, checks query call sites for missing or
misused indexes, and tracks schema drift between snapshots over time.`,
	SilenceUsage: true,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Parse the workspace schema and print tables, relations and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		def := exconvex.ParseSchema(workspaceRoot(), analysisOptions())
		if len(def.Tables) == 0 {
			slog.Warn("no tables found", "root", workspaceRoot())
		}

		outOpts, cleanup, err := outputOptions()
		if err != nil {
			return err
		}
		defer cleanup()
		return exconvex.FormatSchema(def, outOpts)
	},
}

var inferCmd = &cobra.Command{
	Use:   "infer TABLE",
	Short: "Infer a table schema from a JSON file of sampled documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := loadDocs(docsFile)
		if err != nil {
			return err
		}

		inf := exconvex.InferTable(args[0], docs, analysisOptions())
		slog.Info("inferred table schema",
			"table", args[0],
			"fields", len(inf.Schema.Fields),
			"sampledDocs", inf.Schema.SampledDocs)

		outOpts, cleanup, err := outputOptions()
		if err != nil {
			return err
		}
		defer cleanup()
		return exconvex.FormatSchema(inf.Definition(), outOpts)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check query call sites against the declared indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		issues := exconvex.CheckIndexes(workspaceRoot(), analysisOptions())
		slog.Info("index coverage analyzed", "issues", len(issues))

		outOpts, cleanup, err := outputOptions()
		if err != nil {
			return err
		}
		defer cleanup()
		// Advisory analysis: issues never fail the command.
		return exconvex.FormatIssues(issues, outOpts)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .convex-lens.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Convex functions directory (default: convex)")
	rootCmd.PersistentFlags().StringVar(&storeURL, "store-url", "", "snapshot store URL (sqlite://, postgres://, or mysql://)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "d", "", "output directory for multi-file output")
	rootCmd.PersistentFlags().StringVarP(&tables, "tables", "t", "", "specific tables (comma-separated, optional)")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "text", "output format: text or markdown")

	inferCmd.Flags().StringVar(&docsFile, "docs", "", "JSON file holding an array of sampled documents (required)")
	_ = inferCmd.MarkFlagRequired("docs")

	_ = viper.BindPFlag("workspace.root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("store.url", rootCmd.PersistentFlags().Lookup("store-url"))

	rootCmd.AddCommand(schemaCmd, inferCmd, checkCmd, snapshotCmd, diffCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".convex-lens")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("CONVEX_LENS")
	viper.AutomaticEnv()

	viper.SetDefault("workspace.root", "convex")
	viper.SetDefault("store.url", "sqlite://convex-lens.db")

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

func workspaceRoot() string {
	return viper.GetString("workspace.root")
}

func analysisOptions() *exconvex.Options {
	return &exconvex.Options{Tables: parseTableList(tables)}
}

// outputOptions builds OutputOptions from the shared flags. The cleanup
// function closes the output file when one was created.
func outputOptions() (*exconvex.OutputOptions, func(), error) {
	if outputDir != "" && outputFile != "" {
		return nil, nil, fmt.Errorf("cannot use both --output-dir and --output flags")
	}
	if format != "text" && format != "markdown" {
		return nil, nil, fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", format)
	}

	opts := &exconvex.OutputOptions{Format: format, OutputDir: outputDir}
	cleanup := func() {}

	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		opts.Writer = f
		cleanup = func() {
			if err := f.Close(); err != nil {
				slog.Warn("failed to close output file", "error", err)
			}
		}
	}
	return opts, cleanup, nil
}

// parseTableList splits a comma-separated table list, trimming spaces.
func parseTableList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// loadDocs reads a JSON array of sampled documents.
func loadDocs(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents file: %w", err)
	}
	var docs []map[string]any
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse documents file: %w", err)
	}
	return docs, nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
