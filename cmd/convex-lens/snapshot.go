package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	exconvex "github.com/besingamkb/ex-convex"
	"github.com/besingamkb/ex-convex/internal/schema"
	"github.com/besingamkb/ex-convex/internal/store"
)

var (
	deploymentID string
	docsDir      string
	listLimit    int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save and list schema snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Capture the current schema as an immutable snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		def := exconvex.ParseSchema(workspaceRoot(), analysisOptions())
		tables := def.Tables
		relations := def.Relations

		// Sampled documents refine or extend the declared schema.
		if docsDir != "" {
			inferred, inferredRels, err := inferFromDocsDir(docsDir)
			if err != nil {
				return err
			}
			tables = mergeTables(tables, inferred)
			relations = append(relations, inferredRels...)
		}

		st, err := store.Open(ctx, viper.GetString("store.url"))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close(ctx) }()

		snap := store.NewSnapshot(deploymentID, tables, relations)
		if err := st.Save(ctx, snap); err != nil {
			return err
		}

		slog.Info("snapshot saved",
			"id", snap.ID,
			"deployment", snap.DeploymentID,
			"tables", len(snap.Tables))
		fmt.Println(snap.ID)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots for a deployment, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		st, err := store.Open(ctx, viper.GetString("store.url"))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close(ctx) }()

		snaps, err := st.List(ctx, deploymentID, listLimit)
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			fmt.Printf("%s  %s  %d tables\n",
				snap.ID, snap.CreatedAt.Format("2006-01-02 15:04:05"), len(snap.Tables))
		}
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff FROM_ID TO_ID",
	Short: "Compute schema drift between two stored snapshots",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		st, err := store.Open(ctx, viper.GetString("store.url"))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close(ctx) }()

		from, err := st.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("from snapshot: %w", err)
		}
		to, err := st.Get(ctx, args[1])
		if err != nil {
			return fmt.Errorf("to snapshot: %w", err)
		}

		outOpts, cleanup, err := outputOptions()
		if err != nil {
			return err
		}
		defer cleanup()
		return exconvex.FormatDrift(exconvex.DiffSnapshots(from, to), outOpts)
	},
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&deploymentID, "deployment", "", "deployment identifier (required)")
	_ = snapshotCmd.MarkPersistentFlagRequired("deployment")

	snapshotSaveCmd.Flags().StringVar(&docsDir, "docs-dir", "", "directory of per-table JSON sample files (<table>.json)")
	snapshotListCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum snapshots to list")

	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotListCmd)
}

// inferFromDocsDir infers one table per <table>.json file in dir.
func inferFromDocsDir(dir string) ([]schema.TableSchema, []schema.RelationEdge, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read docs directory: %w", err)
	}

	var tables []schema.TableSchema
	var relations []schema.RelationEdge
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		table := strings.TrimSuffix(entry.Name(), ".json")
		docs, err := loadDocs(filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Warn("skipping sample file", "file", entry.Name(), "error", err)
			continue
		}
		inf := exconvex.InferTable(table, docs, analysisOptions())
		tables = append(tables, inf.Schema)
		relations = append(relations, inf.Relations...)
	}
	return tables, relations, nil
}

// mergeTables replaces declared tables with their inferred counterparts and
// appends inferred tables the schema never declared.
func mergeTables(declared, inferred []schema.TableSchema) []schema.TableSchema {
	out := make([]schema.TableSchema, len(declared))
	copy(out, declared)

	at := make(map[string]int, len(out))
	for i, t := range out {
		at[t.Table] = i
	}
	for _, t := range inferred {
		if i, ok := at[t.Table]; ok {
			out[i] = t
		} else {
			out = append(out, t)
		}
	}
	return out
}
