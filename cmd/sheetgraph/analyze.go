package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cellgraph/sheetgraph/internal/analysis"
	"github.com/cellgraph/sheetgraph/internal/config"
	"github.com/cellgraph/sheetgraph/internal/workbook"
)

type analyzeFlags struct {
	configPath       string
	outputPath       string
	pretty           bool
	topDrivers       int
	noAnomalies      bool
	noCostDrivers    bool
	foldStringConcat bool
	noValues         bool
}

func newAnalyzeCmd() *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze [workbook.xlsx]",
		Short: "Analyze a workbook's formula dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.configPath, "config", "", "path to a config file")
	cmd.Flags().StringVarP(&f.outputPath, "output", "o", "", "output file path (default: stdout)")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "pretty-print JSON output")
	cmd.Flags().IntVar(&f.topDrivers, "top-drivers", 0, "number of top cost drivers to report (0 = config/default)")
	cmd.Flags().BoolVar(&f.noAnomalies, "no-anomalies", false, "skip anomaly detection")
	cmd.Flags().BoolVar(&f.noCostDrivers, "no-cost-drivers", false, "skip cost-driver analysis")
	cmd.Flags().BoolVar(&f.foldStringConcat, "fold-concat", false, "constant-fold string concatenation inside INDIRECT")
	cmd.Flags().BoolVar(&f.noValues, "no-values", false, "omit literal/cached cell values from the output")

	return cmd
}

func runAnalyze(cmd *cobra.Command, inputPath string, f analyzeFlags) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)

	reader, err := workbook.OpenExcelizeReader(inputPath)
	if err != nil {
		return fmt.Errorf("opening workbook: %w", err)
	}
	defer reader.Close()

	opts := analysis.DefaultOptions()
	opts.Logger = logger
	opts.IncludeValues = !f.noValues
	opts.DetectAnomalies = cfg.Analysis.DetectAnomalies && !f.noAnomalies
	opts.IdentifyCostDrivers = cfg.Analysis.IdentifyDrivers && !f.noCostDrivers
	opts.FoldStringConcat = cfg.Analysis.FoldStringConcat || f.foldStringConcat
	opts.TopDriversCount = cfg.Analysis.TopDriversCount
	if f.topDrivers > 0 {
		opts.TopDriversCount = f.topDrivers
	}

	logger.Info("starting analysis", "input", inputPath)

	result, err := analysis.Analyze(context.Background(), reader, opts)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	logger.Info("analysis complete",
		"job_id", result.JobID,
		"node_count", result.Graph.Metrics.NodeCount,
		"edge_count", result.Graph.Metrics.EdgeCount,
		"anomaly_count", result.Anomalies.TotalCount,
	)

	var out []byte
	if f.pretty {
		out, err = json.MarshalIndent(result, "", "  ")
	} else {
		out, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("serializing result: %w", err)
	}

	if f.outputPath != "" {
		return os.WriteFile(f.outputPath, out, 0644)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}
