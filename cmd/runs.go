package main

import (
	"fmt"
	"log/slog"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwbudde/filterdemo/internal/demo"
	"github.com/cwbudde/filterdemo/internal/store"
)

var (
	runsDataDir   string
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage recorded runs",
	Long: `Manage runs recorded with --data-dir, including listing and cleaning old records.
Each record holds the timings, checksums and verification result of every strategy.`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runListRuns,
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old runs",
	Long: `Delete recorded runs based on a retention policy.
You can keep only the newest N runs or delete runs older than N days.`,
	Args: cobra.NoArgs,
	RunE: runCleanRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(cleanRunsCmd)

	runsCmd.PersistentFlags().StringVar(&runsDataDir, "data-dir", "./data", "Base directory of recorded runs")

	cleanRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

// recordRun stores the outcome of a demo run and its timing log.
func recordRun(dir string, cfg demo.Config, res *demo.Result) (string, error) {
	runStore, err := store.NewFSStore(dir)
	if err != nil {
		return "", fmt.Errorf("failed to create run store: %w", err)
	}

	strategies := make([]string, len(cfg.Strategies))
	for i, s := range cfg.Strategies {
		strategies[i] = string(s)
	}
	rec := store.NewRunRecord(store.RunConfig{
		ImagePath:  cfg.ImagePath,
		Filter:     res.Filter,
		Backend:    res.Backend,
		Strategies: strategies,
		OutPath:    cfg.OutPath,
	})
	rec.Width, rec.Height = res.Width, res.Height
	rec.Device = res.Device
	rec.Reference = res.Reference
	rec.CompositePath = res.CompositePath

	timings, err := store.NewTimingWriter(dir, rec.RunID, false)
	if err != nil {
		return "", err
	}
	for _, v := range res.Variants {
		rec.Variants = append(rec.Variants, store.VariantRecord{
			Strategy:  string(v.Strategy),
			Label:     v.Label,
			ElapsedMS: v.Report.Milliseconds(),
			Checksum:  v.Checksum,
			Match:     v.Match,
			MaxDelta:  v.Diff.MaxDelta,
			Differing: v.Diff.Differing,
		})
		if err := timings.Write(store.TimingEntry{
			Strategy:  string(v.Strategy),
			ElapsedMS: v.Report.Milliseconds(),
			Timestamp: rec.Timestamp,
		}); err != nil {
			timings.Close()
			return "", err
		}
	}
	if err := timings.Close(); err != nil {
		return "", err
	}

	if err := runStore.SaveRun(rec); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return rec.RunID, nil
}

func runListRuns(cmd *cobra.Command, args []string) error {
	runStore, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tRECORDED\tFILTER\tBACKEND\tVARIANTS\tMATCH\tSIZE\tIMAGE")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			shortID(info.RunID),
			humanize.Time(info.Timestamp),
			info.Filter,
			info.Backend,
			info.Variants,
			matchText(info.AllMatch),
			humanize.Bytes(uint64(info.SizeBytes)),
			info.ImagePath,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal runs: %d\n", len(infos))
	return nil
}

func runCleanRuns(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	runStore, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s, %s)\n", shortID(info.RunID), info.Filter,
			info.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := runStore.DeleteRun(info.RunID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.RunID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted run", "run_id", info.RunID)
		deleted++
	}

	fmt.Fprintf(out, "\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion applies the retention policy: runs older than
// olderThanDays, plus everything beyond the newest keepLast runs.
func selectRunsForDeletion(infos []store.RunInfo, keepLast, olderThanDays int, now time.Time) []store.RunInfo {
	var toDelete []store.RunInfo
	selected := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
				selected[info.RunID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.RunInfo, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		})
		for _, info := range sorted[keepLast:] {
			if !selected[info.RunID] {
				toDelete = append(toDelete, info)
				selected[info.RunID] = true
			}
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
