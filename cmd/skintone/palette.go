package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/anime-shed/skintone-inspector/internal/analyzer"
)

func newPaletteCmd() *cobra.Command {
	var (
		out  string
		cell int
	)
	cmd := &cobra.Command{
		Use:   "palette",
		Short: "List the reference palette and optionally render the swatch image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := writePalette(cmd.OutOrStdout()); err != nil {
				return err
			}
			if out == "" {
				return nil
			}
			if err := imaging.Save(analyzer.RenderSwatch(cell), out); err != nil {
				return fmt.Errorf("save swatch: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the swatch to this file (png, jpg)")
	cmd.Flags().IntVar(&cell, "cell", analyzer.DefaultSwatchCell, "swatch tile size in pixels")
	return cmd
}

func writePalette(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Color Number\tColor\tHex")
	for _, e := range analyzer.ReferenceTable() {
		c := e.Color
		fmt.Fprintf(tw, "%d\t(%d, %d, %d)\t%s\n", e.ColorNumber, c.R, c.G, c.B, c.Hex())
	}
	return tw.Flush()
}
