package store

import (
	"time"

	"github.com/google/uuid"
)

// RunConfig is the command-line configuration a run was started with.
type RunConfig struct {
	ImagePath  string   `json:"imagePath"`
	Filter     string   `json:"filter"`
	Backend    string   `json:"backend"`
	Strategies []string `json:"strategies"`
	OutPath    string   `json:"outPath,omitempty"`
}

// VariantRecord is the persisted outcome of one strategy.
type VariantRecord struct {
	Strategy  string  `json:"strategy"`
	Label     string  `json:"label"`
	ElapsedMS float64 `json:"elapsedMs"`
	Checksum  uint32  `json:"checksum"`
	Match     bool    `json:"match"`
	MaxDelta  uint8   `json:"maxDelta,omitempty"`
	Differing int     `json:"differing,omitempty"`
}

// RunRecord is everything stored about one demo run.
type RunRecord struct {
	RunID     string    `json:"runId"`
	Timestamp time.Time `json:"timestamp"`
	Config    RunConfig `json:"config"`

	Width  int    `json:"width"`
	Height int    `json:"height"`
	Device string `json:"device"`

	// Reference is the CRC-32 of the CPU reference output.
	Reference     uint32          `json:"reference"`
	Variants      []VariantRecord `json:"variants"`
	CompositePath string          `json:"compositePath,omitempty"`
}

// RunInfo is the listing view of a run.
type RunInfo struct {
	RunID     string    `json:"runId"`
	Timestamp time.Time `json:"timestamp"`
	ImagePath string    `json:"imagePath"`
	Filter    string    `json:"filter"`
	Backend   string    `json:"backend"`
	Variants  int       `json:"variants"`
	AllMatch  bool      `json:"allMatch"`
	// SizeBytes is the disk usage of the run directory.
	SizeBytes int64 `json:"sizeBytes"`
}

// NewRunRecord starts a record with a fresh random ID.
func NewRunRecord(config RunConfig) *RunRecord {
	return &RunRecord{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		Config:    config,
	}
}

// AllMatch reports whether every variant reproduced the CPU reference.
func (r *RunRecord) AllMatch() bool {
	for _, v := range r.Variants {
		if !v.Match {
			return false
		}
	}
	return true
}

// ToInfo converts a record to its listing view. SizeBytes is left zero.
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		RunID:     r.RunID,
		Timestamp: r.Timestamp,
		ImagePath: r.Config.ImagePath,
		Filter:    r.Config.Filter,
		Backend:   r.Config.Backend,
		Variants:  len(r.Variants),
		AllMatch:  r.AllMatch(),
	}
}

// Validate checks that the record can be stored.
func (r *RunRecord) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if _, err := uuid.Parse(r.RunID); err != nil {
		return &ValidationError{Field: "RunID", Reason: "must be a UUID"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.ImagePath == "" {
		return &ValidationError{Field: "Config.ImagePath", Reason: "cannot be empty"}
	}
	if r.Config.Filter == "" {
		return &ValidationError{Field: "Config.Filter", Reason: "cannot be empty"}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return &ValidationError{Field: "Width/Height", Reason: "must be positive"}
	}
	for _, v := range r.Variants {
		if v.Strategy == "" {
			return &ValidationError{Field: "Variants.Strategy", Reason: "cannot be empty"}
		}
		if v.ElapsedMS < 0 {
			return &ValidationError{Field: "Variants.ElapsedMS", Reason: "cannot be negative"}
		}
	}
	return nil
}

// ValidationError represents a record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
