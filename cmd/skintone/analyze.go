package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/jszwec/csvutil"
	"github.com/spf13/cobra"

	"github.com/anime-shed/skintone-inspector/internal/analyzer"
	apperrors "github.com/anime-shed/skintone-inspector/internal/errors"
	"github.com/anime-shed/skintone-inspector/internal/factory"
	"github.com/anime-shed/skintone-inspector/internal/service"
	"github.com/anime-shed/skintone-inspector/pkg/models"
)

type analyzeFlags struct {
	engine        string
	minPercentage float64
	csv           bool
	workers       int
}

// coverageRow is one CSV line: a coverage entry or a failed image.
type coverageRow struct {
	File        string  `csv:"file"`
	ColorNumber int     `csv:"color_number,omitempty"`
	Hex         string  `csv:"hex,omitempty"`
	R           uint8   `csv:"r"`
	G           uint8   `csv:"g"`
	B           uint8   `csv:"b"`
	Percentage  float64 `csv:"percentage"`
	Error       string  `csv:"error,omitempty"`
}

func newAnalyzeCmd() *cobra.Command {
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze <image>...",
		Short: "Print the coverage table of one or more images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), args, flags)
		},
	}
	cmd.Flags().StringVar(&flags.engine, "engine", string(analyzer.EngineLloyd), "clustering engine (lloyd, muesli)")
	cmd.Flags().Float64Var(&flags.minPercentage, "min-percentage", analyzer.DefaultMinPercentage, "hide colors below this share")
	cmd.Flags().BoolVar(&flags.csv, "csv", false, "write CSV instead of a table")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "concurrent images (default: number of CPUs)")
	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, paths []string, flags *analyzeFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	engine, err := analyzer.ParseClusterEngine(flags.engine)
	if err != nil {
		return err
	}
	options := analyzer.DefaultOptions().WithMinPercentage(flags.minPercentage)
	if err := options.Validate(); err != nil {
		return err
	}

	a, err := factory.NewAnalyzerFactory().CreateAnalyzer(engine)
	if err != nil {
		return err
	}
	defer a.Close()

	pool := analyzer.NewWorkerPool(flags.workers)
	pool.Start()
	defer pool.Close()

	svc, err := service.NewImageAnalysisService(service.Dependencies{Analyzer: a, Pool: pool})
	if err != nil {
		return err
	}

	inputs := make([]service.ImageInput, 0, len(paths))
	for _, p := range paths {
		input := service.ImageInput{Name: filepath.Base(p)}
		if input.Data, err = os.ReadFile(p); err != nil {
			input.Err = apperrors.NewUnreadableImageError(fmt.Sprintf("cannot read %s", p), err)
		}
		inputs = append(inputs, input)
	}

	results := svc.AnalyzeBatch(ctx, inputs, options)
	if flags.csv {
		return writeCSV(out, results)
	}
	return writeTable(out, results)
}

func toRows(results []models.ImageResult) []coverageRow {
	rows := make([]coverageRow, 0, len(results)*2)
	for _, r := range results {
		if r.Error != nil {
			rows = append(rows, coverageRow{File: r.Name, Error: r.Error.Error})
			continue
		}
		for _, e := range r.Coverage {
			rows = append(rows, coverageRow{
				File:        r.Name,
				ColorNumber: e.ColorNumber,
				Hex:         e.Hex,
				R:           e.Color[0],
				G:           e.Color[1],
				B:           e.Color[2],
				Percentage:  e.Percentage,
			})
		}
	}
	return rows
}

func writeCSV(out io.Writer, results []models.ImageResult) error {
	b, err := csvutil.Marshal(toRows(results))
	if err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	_, err = out.Write(b)
	return err
}

func writeTable(out io.Writer, results []models.ImageResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		if r.Error != nil {
			fmt.Fprintf(tw, "%s\terror: %s\n", r.Name, r.Error.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%dx%d\t%d samples\n", r.Name, r.Width, r.Height, r.FilteredPixels)
		fmt.Fprintln(tw, "Color Number\tColor\tHex\tCoverage")
		for _, e := range r.Coverage {
			fmt.Fprintf(tw, "%d\t(%d, %d, %d)\t%s\t%.2f%%\n",
				e.ColorNumber, e.Color[0], e.Color[1], e.Color[2], e.Hex, e.Percentage)
		}
	}
	return tw.Flush()
}
