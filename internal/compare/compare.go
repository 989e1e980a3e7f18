// Package compare measures how far a filter output is from a reference
// output of the same size.
package compare

import (
	"errors"
	"fmt"
)

// ErrSizeMismatch is returned when the two images differ in length.
var ErrSizeMismatch = errors.New("compare: images differ in size")

// Stats summarizes the per-pixel difference of two RGBA8 images. Alpha is
// compared for Differing and MaxDelta but excluded from SAD, like the color
// error of the renderer it comes from.
type Stats struct {
	Pixels    int
	Differing int
	MaxDelta  uint8
	// SAD is the sum over all pixels of |dR| + |dG| + |dB|.
	SAD uint64
}

// Identical reports whether the images were byte-for-byte equal.
func (s Stats) Identical() bool { return s.Differing == 0 }

// MeanAbs is the mean absolute color difference per channel.
func (s Stats) MeanAbs() float64 {
	if s.Pixels == 0 {
		return 0
	}
	return float64(s.SAD) / float64(3*s.Pixels)
}

func (s Stats) String() string {
	if s.Identical() {
		return "identical"
	}
	return fmt.Sprintf("%d/%d px differ, max %d, mean %.3f", s.Differing, s.Pixels, s.MaxDelta, s.MeanAbs())
}

// RGBA compares two tightly packed RGBA8 images.
func RGBA(got, want []byte) (Stats, error) {
	if len(got) != len(want) {
		return Stats{}, fmt.Errorf("%w: %d and %d bytes", ErrSizeMismatch, len(got), len(want))
	}
	if len(got)%4 != 0 {
		return Stats{}, fmt.Errorf("%w: %d bytes is not whole RGBA pixels", ErrSizeMismatch, len(got))
	}

	var s Stats
	s.Pixels = len(got) / 4
	for i := 0; i < len(got); i += 4 {
		dr := absDiff(got[i+0], want[i+0])
		dg := absDiff(got[i+1], want[i+1])
		db := absDiff(got[i+2], want[i+2])
		da := absDiff(got[i+3], want[i+3])

		s.SAD += uint64(dr) + uint64(dg) + uint64(db)
		if m := max(dr, dg, db, da); m > 0 {
			s.Differing++
			s.MaxDelta = max(s.MaxDelta, m)
		}
	}
	return s, nil
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
