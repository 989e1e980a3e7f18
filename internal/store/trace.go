package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TimingEntry is one line of a run's timings.jsonl: the measurement of a
// single strategy.
type TimingEntry struct {
	Strategy  string    `json:"strategy"`
	ElapsedMS float64   `json:"elapsedMs"`
	Timestamp time.Time `json:"timestamp"`
}

// TimingWriter appends timing entries to a JSONL file. It is safe for
// concurrent use.
type TimingWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTimingWriter creates <baseDir>/runs/<runID>/timings.jsonl. With
// appendMode set, entries are added to an existing file.
func NewTimingWriter(baseDir, runID string, appendMode bool) (*TimingWriter, error) {
	dir := filepath.Join(baseDir, "runs", runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	path := filepath.Join(dir, "timings.jsonl")
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open timings file: %w", err)
	}

	return &TimingWriter{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Write buffers one entry. It reaches the file on Flush or Close.
func (tw *TimingWriter) Write(entry TimingEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal timing entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write timing entry: %w", err)
	}
	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Flush writes buffered entries and syncs the file.
func (tw *TimingWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush timings writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync timings file: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (tw *TimingWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close timings file: %w", err)
	}
	return nil
}

// Path returns the file being written.
func (tw *TimingWriter) Path() string {
	return tw.path
}

// ReadTimings returns every entry in the run's timings.jsonl, in file order.
func ReadTimings(baseDir, runID string) ([]TimingEntry, error) {
	path := filepath.Join(baseDir, "runs", runID, "timings.jsonl")
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open timings file: %w", err)
	}
	defer file.Close()

	return decodeTimings(file)
}

func decodeTimings(r io.Reader) ([]TimingEntry, error) {
	var entries []TimingEntry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry TimingEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal timing entry on line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan timings: %w", err)
	}
	return entries, nil
}
