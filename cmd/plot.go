package cmd

import (
	"github.com/spf13/cobra"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Draw vowel space figures",
}

var plotEllipsesCmd = &cobra.Command{
	Use:   "ellipses <output-dir>",
	Short: "Draw the expected vowel spaces of a large and a small inventory",
	Long: `Draw the F1/F2 vowel space of a twelve vowel and a three vowel inventory as
ellipses around each vowel, showing the larger spread expected when a
language has fewer vowels.

Example:
  vowelspace plot ellipses out/figures`,
	Args: cobra.ExactArgs(1),
	RunE: runPlotEllipses,
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.AddCommand(plotEllipsesCmd)
}

func runPlotEllipses(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	paths, err := a.Plot(args[0])
	if err != nil {
		return err
	}
	if a.Structured() {
		return a.Output(map[string]any{"figures": paths})
	}
	for _, p := range paths {
		printSuccess("Figure %s", p)
	}
	return nil
}
