package cmd

import (
	"fmt"
	"strconv"

	"github.com/RyanBlaney/vowelspace/internal/report"
	"github.com/spf13/cobra"
)

var lexiconCmd = &cobra.Command{
	Use:   "lexicon <lexicon-dir> <output-dir>",
	Short: "Write phoneme overviews of pronunciation lexicons",
	Long: `Count the phonemes of every lexicon in <lexicon-dir> and write an overview
of its vowels and consonants, ordered by frequency, to <output-dir>.

Example:
  vowelspace lexicon corpus/lexicons out/lexicons`,
	Args: cobra.ExactArgs(2),
	RunE: runLexicon,
}

func init() {
	rootCmd.AddCommand(lexiconCmd)
}

func runLexicon(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := a.Lexicon(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if a.Structured() {
		return a.Output(results)
	}

	printHeader("Lexicon Overview", args[0])
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			printError("%s: %v", r.Lexicon, r.Error)
			continue
		}
		rows = append(rows, []string{
			r.Lexicon,
			strconv.Itoa(r.Phones),
			strconv.Itoa(r.Vowels),
			strconv.Itoa(r.Consonants),
			r.Output,
		})
	}
	if len(rows) == 0 {
		printWarning("No lexicons found")
		return nil
	}
	fmt.Println(report.RenderRows(
		[]string{"Lexicon", "Phones", "Vowels", "Consonants", "Output"},
		rows, tableOptions(a, "")))
	return nil
}
