package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/filterdemo/internal/demo"
	"github.com/cwbudde/filterdemo/internal/display"
	"github.com/cwbudde/filterdemo/internal/filter"
	"github.com/cwbudde/filterdemo/internal/interop"
)

var (
	logLevel     string
	logger       *slog.Logger
	filterName   string
	backend      string
	strategyList string
	outPath      string
	dataDir      string
	labelHeight  int
)

var rootCmd = &cobra.Command{
	Use:   "filterdemo <image>",
	Short: "Run an image filter on host memory, staged buffers and device textures",
	Long: `filterdemo runs one image filter three ways: on the CPU with host buffers,
on the device with buffers staged from host memory, and on the device directly
between textures. The results are composed into a labelled 2x2 comparison image
next to the input, and the timing of each run is reported.`,
	Args:         cobra.ExactArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stdout, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
		interop.SetLogger(logger.With("component", "interop"))
	},
	RunE: runDemo,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.Flags().StringVar(&filterName, "filter", filter.DefaultName, "Filter to run ("+strings.Join(filter.Names(), ", ")+")")
	rootCmd.Flags().StringVar(&backend, "backend", "soft", "Device backend (soft, opencl)")
	rootCmd.Flags().StringVar(&strategyList, "strategies", "host,staged,device", "Comma-separated strategies to run (host, staged, device)")
	rootCmd.Flags().StringVar(&outPath, "out", "comparison.png", "Path of the composite comparison image (empty to skip)")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Record the run under this directory (empty = don't record)")
	rootCmd.Flags().IntVar(&labelHeight, "label-height", display.DefaultLabelHeight, "Height of the caption strip under each image")
}

func runDemo(cmd *cobra.Command, args []string) error {
	strategies, err := interop.ParseStrategies(strategyList)
	if err != nil {
		return err
	}
	if labelHeight < 0 {
		return fmt.Errorf("--label-height must not be negative")
	}

	// Everything after argument validation is a runtime failure, not a usage error.
	cmd.SilenceUsage = true

	cfg := demo.Config{
		ImagePath:   args[0],
		Filter:      filterName,
		Backend:     backend,
		Strategies:  strategies,
		OutPath:     outPath,
		LabelHeight: labelHeight,
	}
	res, err := demo.Run(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(res))

	if dataDir != "" {
		runID, err := recordRun(dataDir, cfg, res)
		if err != nil {
			return err
		}
		slog.Info("Run recorded", "runID", runID, "dataDir", dataDir)
	}
	return nil
}
