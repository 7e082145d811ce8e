package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/anime-shed/skintone-inspector/internal/logger"
)

var (
	rootCmd = &cobra.Command{
		Use:   "skintone",
		Short: "Measure skin tone coverage of images against the reference palette",
		Long: `skintone clusters the non-neutral pixels of an image into 14 colors,
maps each cluster to the nearest of 14 reference skin tones and reports
the share of every reference color with its Color Number (4 to 17).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.UseText(os.Stderr)
			logger.SetLevel(logLevel)
		},
	}
	logLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(newAnalyzeCmd(), newPaletteCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
