package cmd

import (
	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count <filtered-dir>",
	Short: "Count the studied vowel tokens of the filtered tables",
	Args:  cobra.ExactArgs(1),
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	counts, err := a.Count(args[0])
	if err != nil {
		return err
	}
	if a.Structured() {
		return a.Output(counts)
	}

	printHeader("Studied Vowels", args[0])
	printKeyValue("Files", formatCount(counts.Files))
	printKeyValue("Rows", formatCount(counts.Rows))
	printKeyValue("a", formatCount(counts.A))
	printKeyValue("i", formatCount(counts.I))
	printKeyValue("u", formatCount(counts.U))
	printKeyValue("Total", formatCount(counts.Total()))
	return nil
}
