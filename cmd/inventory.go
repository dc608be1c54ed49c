package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/RyanBlaney/vowelspace/internal/app"
	"github.com/RyanBlaney/vowelspace/internal/report"
	"github.com/spf13/cobra"
)

var inventoryMode string

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Build per-speaker SD tables and inventory summaries",
}

var inventoryStdCmd = &cobra.Command{
	Use:   "std <filtered-dir> <docs-dir> <raw-dir> <output-dir>",
	Short: "Write the SD table of every filtered file",
	Long: `Compute the per-speaker F1 and F2 standard deviations of the corner vowels
of every filtered file, together with the vowel inventory size found in the
corpus documentation of <docs-dir> (or the raw extraction CSV of <raw-dir>).

The inventory summary of the mode is written next to the SD tables.

Examples:
  vowelspace inventory std out/filtered corpus/docs out/extracted out/std_base
  vowelspace inventory std --mode full out/filtered corpus/docs out/extracted out/std_full`,
	Args: cobra.ExactArgs(4),
	RunE: runInventoryStd,
}

var inventorySummaryCmd = &cobra.Command{
	Use:   "summary <base-summary> <full-summary> <std-full-dir> <output>",
	Short: "Merge the base and full summaries with speaker counts",
	Args:  cobra.ExactArgs(4),
	RunE:  runInventorySummary,
}

func init() {
	rootCmd.AddCommand(inventoryCmd)
	inventoryCmd.AddCommand(inventoryStdCmd)
	inventoryCmd.AddCommand(inventorySummaryCmd)

	inventoryStdCmd.Flags().StringVar(&inventoryMode, "mode", "",
		"inventory mode (base, full)")
}

func runInventoryStd(cmd *cobra.Command, args []string) error {
	a, err := newApp(func(c *app.Context) { c.InventoryMode = inventoryMode })
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := a.Inventory(ctx, args[0], args[1], args[2], args[3])
	if err != nil {
		return err
	}
	if a.Structured() {
		return a.Output(res)
	}

	printHeader(humanLabel(string(res.Mode))+" Inventory", args[0])
	ok := 0
	for _, l := range res.Languages {
		if l.Error != nil {
			printError("%s: %v", l.Language, l.Error)
			continue
		}
		ok++
	}
	if res.Table.Len() > 0 {
		fmt.Println(report.RenderTable(res.Table, tableOptions(a, "Inventory Summary")))
	}
	fmt.Println()
	printResult("SD Tables", ok == len(res.Languages))
	printInfo("%d of %d languages written to %s", ok, len(res.Languages), args[3])
	printInfo("Summary: %s", res.Summary)
	return nil
}

func runInventorySummary(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	res, err := a.CompleteSummary(args[0], args[1], args[2], args[3])
	if err != nil {
		return err
	}
	if a.Structured() {
		return a.Output(res)
	}

	printHeader("Inventory Summary", args[3])
	fmt.Println(report.RenderTable(res.Table, tableOptions(a, "")))
	fmt.Println()

	s := res.Speakers
	printSectionHeader("Speakers")
	printKeyValue("Languages", strconv.Itoa(s.Languages))
	if s.Languages > 0 {
		printKeyValue("Most Speakers", fmt.Sprintf("%s (%s)", s.Max.Language, formatCount(s.Max.Speakers)))
		printKeyValue("Fewest Speakers", fmt.Sprintf("%s (%s)", s.Min.Language, formatCount(s.Min.Speakers)))
		printKeyValue("Median", strconv.FormatFloat(s.Median, 'f', 1, 64))
		printKeyValue("Mean", strconv.FormatFloat(s.Mean, 'f', a.Config().Output.Precision, 64))
	}
	if len(s.Vowels) > 0 {
		vowels := make([]string, 0, len(s.Vowels))
		for v := range s.Vowels {
			vowels = append(vowels, v)
		}
		sort.Strings(vowels)
		fmt.Println()
		printSectionHeader("Studied Vowels")
		for _, v := range vowels {
			printKeyValue(v, fmt.Sprintf("%d languages", s.Vowels[v]))
		}
	}
	printSuccess("Wrote %s", res.Output)
	return nil
}
