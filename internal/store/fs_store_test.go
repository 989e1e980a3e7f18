package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store, tempDir
}

// createTestRecord creates a run record with test data.
func createTestRecord() *RunRecord {
	rec := NewRunRecord(RunConfig{
		ImagePath:  "assets/test.png",
		Filter:     "invert",
		Backend:    "soft",
		Strategies: []string{"host", "staged", "device"},
		OutPath:    "comparison.png",
	})
	rec.Width = 64
	rec.Height = 48
	rec.Device = "SoftDevice"
	rec.Reference = 0xdeadbeef
	rec.Variants = []VariantRecord{
		{Strategy: "host", Label: "CPU", ElapsedMS: 1.25, Checksum: 0xdeadbeef, Match: true},
		{Strategy: "staged", Label: "Device host-to-host", ElapsedMS: 2.5, Checksum: 0xdeadbeef, Match: true},
	}
	return rec
}

func TestNewFSStoreCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != dir {
		t.Errorf("BaseDir = %q, want %q", store.BaseDir(), dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Base directory was not created: %v", err)
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	store, tempDir := setupTestStore(t)
	rec := createTestRecord()

	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	path := filepath.Join(tempDir, "runs", rec.RunID, "run.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("run.json not written: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind")
	}

	loaded, err := store.LoadRun(rec.RunID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.RunID != rec.RunID {
		t.Errorf("RunID = %q, want %q", loaded.RunID, rec.RunID)
	}
	if loaded.Config.Filter != "invert" || loaded.Width != 64 || loaded.Height != 48 {
		t.Errorf("loaded record mismatch: %+v", loaded)
	}
	if len(loaded.Variants) != 2 || loaded.Variants[1].Label != "Device host-to-host" {
		t.Errorf("variants mismatch: %+v", loaded.Variants)
	}
	if loaded.Reference != 0xdeadbeef {
		t.Errorf("Reference = %x", loaded.Reference)
	}
	if !loaded.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", loaded.Timestamp, rec.Timestamp)
	}
}

func TestSaveRunOverwrites(t *testing.T) {
	store, _ := setupTestStore(t)
	rec := createTestRecord()
	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	rec.Variants = append(rec.Variants, VariantRecord{Strategy: "device", Label: "Device texture-to-texture", Match: false})
	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	loaded, err := store.LoadRun(rec.RunID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if len(loaded.Variants) != 3 {
		t.Errorf("expected 3 variants, got %d", len(loaded.Variants))
	}
	if loaded.AllMatch() {
		t.Errorf("AllMatch should be false")
	}
}

func TestSaveRunRejectsInvalid(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRun(nil); err == nil {
		t.Error("expected error for nil record")
	}

	rec := createTestRecord()
	rec.Width = 0
	err := store.SaveRun(rec)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "Width/Height" {
		t.Errorf("Field = %q", verr.Field)
	}
}

func TestLoadRunNotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.RunID != "missing" {
		t.Errorf("RunID = %q", nf.RunID)
	}

	if _, err := store.LoadRun(""); err == nil {
		t.Error("expected error for empty run ID")
	}
}

func TestLoadRunCorrupted(t *testing.T) {
	store, tempDir := setupTestStore(t)
	dir := filepath.Join(tempDir, "runs", "broken")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.LoadRun("broken"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	store, tempDir := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns on empty store failed: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no runs, got %d", len(infos))
	}

	older := createTestRecord()
	older.Timestamp = time.Now().Add(-time.Hour)
	newer := createTestRecord()
	for _, rec := range []*RunRecord{older, newer} {
		if err := store.SaveRun(rec); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	// Noise that must be skipped.
	if err := os.MkdirAll(filepath.Join(tempDir, "runs", "empty"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	infos, err = store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(infos))
	}
	if infos[0].RunID != newer.RunID || infos[1].RunID != older.RunID {
		t.Errorf("runs not sorted newest first: %+v", infos)
	}
	if infos[0].Variants != 2 || !infos[0].AllMatch || infos[0].Filter != "invert" {
		t.Errorf("info mismatch: %+v", infos[0])
	}
	if infos[0].SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", infos[0].SizeBytes)
	}
}

func TestDeleteRun(t *testing.T) {
	store, tempDir := setupTestStore(t)
	rec := createTestRecord()
	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	if err := store.DeleteRun(rec.RunID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "runs", rec.RunID)); !os.IsNotExist(err) {
		t.Error("run directory still exists")
	}
	if err := store.DeleteRun(rec.RunID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := store.DeleteRun(""); err == nil {
		t.Error("expected error for empty run ID")
	}
}

func TestStoreInterface(t *testing.T) {
	var _ Store = (*FSStore)(nil)
}
