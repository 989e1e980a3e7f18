package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/filterdemo/internal/compare"
	"github.com/cwbudde/filterdemo/internal/demo"
	"github.com/cwbudde/filterdemo/internal/display"
	"github.com/cwbudde/filterdemo/internal/interop"
	"github.com/cwbudde/filterdemo/internal/store"
	"github.com/cwbudde/filterdemo/internal/timer"
)

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectRunsForDeletion(infos, 0, 7, now)
	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	ids := idSet(toDelete)
	if !ids["run1"] || !ids["run4"] {
		t.Errorf("Expected run1 and run4 to be selected, got %v", ids)
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectRunsForDeletion(infos, 2, 0, now)
	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	ids := idSet(toDelete)
	if !ids["run1"] || !ids["run4"] {
		t.Errorf("Expected the oldest runs (run1, run4), got %v", ids)
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
	}

	// run1 is both too old and beyond the newest two; it must appear once.
	toDelete := selectRunsForDeletion(infos, 2, 7, now)
	if len(toDelete) != 1 || toDelete[0].RunID != "run1" {
		t.Errorf("Expected only run1, got %+v", toDelete)
	}
}

func TestSelectRunsForDeletion_NothingToDo(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{{RunID: "run1", Timestamp: now}}
	if got := selectRunsForDeletion(infos, 5, 7, now); len(got) != 0 {
		t.Errorf("Expected nothing to delete, got %+v", got)
	}
}

func idSet(infos []store.RunInfo) map[string]bool {
	ids := make(map[string]bool)
	for _, info := range infos {
		ids[info.RunID] = true
	}
	return ids
}

func testResult() *demo.Result {
	return &demo.Result{
		ImagePath: "input.png",
		Width:     4,
		Height:    1,
		Filter:    "invert",
		Backend:   "soft",
		Device:    "SoftDevice",
		Reference: 0x1234,
		Variants: []demo.Variant{
			{Strategy: interop.StrategyHost, Label: "CPU", Region: display.UR,
				Report: timer.Report{Label: "CPU", Elapsed: time.Millisecond}, Checksum: 0x1234, Match: true},
			{Strategy: interop.StrategyDevice, Label: "Device texture-to-texture", Region: display.LR,
				Report: timer.Report{Label: "Device texture-to-texture", Elapsed: 2 * time.Millisecond}, Checksum: 0x9999, Match: false,
				Diff: compare.Stats{Pixels: 4, Differing: 1, MaxDelta: 3, SAD: 3}},
		},
		CompositePath: "comparison.png",
	}
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(testResult())
	for _, want := range []string{"CPU", "Device texture-to-texture", "UR", "LR", "1.000 ms", "00001234", "NO", "1/4 px differ", "comparison.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRecordAndListRuns(t *testing.T) {
	dir := t.TempDir()
	cfg := demo.Config{
		ImagePath:  "input.png",
		Strategies: []interop.Strategy{interop.StrategyHost, interop.StrategyDevice},
		OutPath:    "comparison.png",
	}

	runID, err := recordRun(dir, cfg, testResult())
	if err != nil {
		t.Fatalf("recordRun failed: %v", err)
	}

	s, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.LoadRun(runID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if len(rec.Variants) != 2 || rec.AllMatch() {
		t.Errorf("unexpected variants: %+v", rec.Variants)
	}
	if rec.Variants[1].MaxDelta != 3 || rec.Variants[1].Differing != 1 {
		t.Errorf("difference not recorded: %+v", rec.Variants[1])
	}
	if rec.Variants[1].ElapsedMS != 2 {
		t.Errorf("ElapsedMS = %f, want 2", rec.Variants[1].ElapsedMS)
	}
	if got := rec.Config.Strategies; len(got) != 2 || got[1] != "device" {
		t.Errorf("Strategies = %v", got)
	}

	timings, err := store.ReadTimings(dir, runID)
	if err != nil {
		t.Fatalf("ReadTimings failed: %v", err)
	}
	if len(timings) != 2 {
		t.Errorf("expected 2 timing entries, got %d", len(timings))
	}

	runsDataDir = dir
	var buf bytes.Buffer
	listRunsCmd.SetOut(&buf)
	if err := runListRuns(listRunsCmd, nil); err != nil {
		t.Fatalf("runListRuns failed: %v", err)
	}
	if !strings.Contains(buf.String(), shortID(runID)) || !strings.Contains(buf.String(), "Total runs: 1") {
		t.Errorf("list output missing run:\n%s", buf.String())
	}
}

func TestCleanRunsForce(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		if _, err := recordRun(dir, demo.Config{ImagePath: "input.png"}, testResult()); err != nil {
			t.Fatalf("recordRun failed: %v", err)
		}
	}

	runsDataDir, keepLast, olderThanDays, forceClean = dir, 1, 0, true
	defer func() { keepLast, forceClean = 0, false }()

	var buf bytes.Buffer
	cleanRunsCmd.SetOut(&buf)
	if err := runCleanRuns(cleanRunsCmd, nil); err != nil {
		t.Fatalf("runCleanRuns failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Deleted 2 run(s), 0 failed.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	s, _ := store.NewFSStore(dir)
	infos, err := s.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Errorf("expected 1 run left, got %d", len(infos))
	}
}

func TestCleanRunsAbort(t *testing.T) {
	dir := t.TempDir()
	if _, err := recordRun(dir, demo.Config{ImagePath: "input.png"}, testResult()); err != nil {
		t.Fatal(err)
	}
	if _, err := recordRun(dir, demo.Config{ImagePath: "input.png"}, testResult()); err != nil {
		t.Fatal(err)
	}

	runsDataDir, keepLast, olderThanDays, forceClean = dir, 1, 0, false
	defer func() { keepLast = 0 }()

	var buf bytes.Buffer
	cleanRunsCmd.SetOut(&buf)
	cleanRunsCmd.SetIn(strings.NewReader("n\n"))
	if err := runCleanRuns(cleanRunsCmd, nil); err != nil {
		t.Fatalf("runCleanRuns failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Aborted.") {
		t.Errorf("expected abort, got:\n%s", buf.String())
	}
}

func TestCleanRunsNeedsPolicy(t *testing.T) {
	keepLast, olderThanDays = 0, 0
	if err := runCleanRuns(cleanRunsCmd, nil); err == nil {
		t.Error("expected error without --keep-last or --older-than")
	}
}
