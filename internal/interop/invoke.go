package interop

import (
	"github.com/pkg/errors"

	"github.com/cwbudde/filterdemo/internal/timer"
)

// EntryPoint is one compiled variant of a filter. It reads in, fills the
// authoritative data of out and returns a non-nil error on failure. It must
// not write the host memory of in.
type EntryPoint func(in, out *Descriptor) error

// Pipeline is a filter compiled for both execution paths.
type Pipeline struct {
	Name   string
	CPU    EntryPoint
	Device EntryPoint
}

// Invoke runs entry synchronously on a pair of valid descriptors and times
// the call. Failures are returned as they are; nothing is retried.
func Invoke(label string, entry EntryPoint, in, out *Descriptor) (timer.Report, error) {
	if entry == nil {
		return timer.Report{}, errors.Errorf("%s: no entry point", label)
	}
	if err := in.Validate(); err != nil {
		return timer.Report{}, errors.WithMessage(err, "input descriptor")
	}
	if err := out.Validate(); err != nil {
		return timer.Report{}, errors.WithMessage(err, "output descriptor")
	}

	stamp := timer.Start(label)
	if err := entry(in, out); err != nil {
		return timer.Report{}, errors.WithMessage(err, label)
	}
	report := stamp.Stop()

	Logger().Debug("Entry point returned", "label", label, "elapsed", report.Elapsed)
	return report, nil
}
