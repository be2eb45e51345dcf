// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-pipeline/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived runs (list, show, export)",
	Long: `Archive manages the local SQLite archive of past runs. Every run is
recorded, including aborted ones, which carry the failing stage and the
state reached at failure time.`,
}

// --- list subcommand ---

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE:  runArchiveList,
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	store, err := archive.NewStore(pipelineConfig().Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background())
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-50s  %-10s  %-20s  %-7s  %s\n",
		"ID", "Outcome", "Failed stage", "Sources", "Created")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 105))
	for _, r := range runs {
		id := r.ID
		if len(id) > 50 {
			id = id[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-50s  %-10s  %-20s  %-7d  %s\n",
			id, r.Outcome, r.FailedStage, r.SourceCount,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

// --- show subcommand ---

var archiveShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveShow,
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	store, err := archive.NewStore(pipelineConfig().Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	if paperOnly, _ := cmd.Flags().GetBool("paper"); paperOnly {
		fmt.Println(rec.FinalPaper)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// --- export subcommand ---

var archiveExportCmd = &cobra.Command{
	Use:   "export [run-id]",
	Short: "Export one archived run to YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveExport,
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	store, err := archive.NewStore(pipelineConfig().Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := store.ExportYAML(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println("Exported to " + path)
	return nil
}

func init() {
	archiveListCmd.Flags().Bool("json", false, "output the listing as JSON")
	archiveShowCmd.Flags().Bool("paper", false, "print only the final paper")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveExportCmd)

	rootCmd.AddCommand(archiveCmd)
}
