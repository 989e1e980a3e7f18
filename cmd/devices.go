package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"

	"github.com/cwbudde/filterdemo/internal/gpu"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List device backends and OpenCL devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Backends:")
	for _, b := range gpu.SupportedBackends() {
		status := "available"
		dev, err := gpu.Open(string(b))
		if err != nil {
			status = err.Error()
		} else {
			dev.Destroy()
		}
		fmt.Fprintf(out, "  %-8s %s\n", b, status)
	}
	fmt.Fprintf(out, "\nHost CPU: %d units, AVX2=%t NEON=%t\n",
		gpu.NewSoftDevice().Info().MaxComputeUnits, cpu.X86.HasAVX2, cpu.ARM64.HasASIMD)

	platforms, err := gpu.EnumeratePlatforms()
	if errors.Is(err, gpu.ErrNotBuilt) {
		fmt.Fprintln(out, "\nOpenCL enumeration needs a build with '-tags gpu'.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("enumerate OpenCL platforms: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nPLATFORM\tDEVICE\tVENDOR\tTYPE\tUNITS")
	for _, p := range platforms {
		for _, d := range p.Devices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.Name, d.Name, d.Vendor, d.Type, d.MaxComputeUnits)
		}
	}
	return w.Flush()
}
