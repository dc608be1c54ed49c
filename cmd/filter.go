package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/RyanBlaney/vowelspace/internal/app"
	"github.com/RyanBlaney/vowelspace/internal/filter"
	"github.com/RyanBlaney/vowelspace/internal/report"
	"github.com/RyanBlaney/vowelspace/pkg/ipa"
	"github.com/spf13/cobra"
)

var filterSimilarity string

var filterCmd = &cobra.Command{
	Use:   "filter <input-dir> <speaker-dir> <output-dir>",
	Short: "Filter extracted tokens per speaker",
	Long: `Filter every extraction CSV of <input-dir>.

Only the most frequent variant of each corner vowel (a, i, u) is kept. Tokens
are then filtered on segment and utterance duration, joined with the speaker
tables of <speaker-dir>, cleaned of F1/F2 outliers per speaker and vowel, and
reduced to speakers with enough tokens of every corner vowel.

Examples:
  vowelspace filter out/extracted corpus/speakers out/filtered

  # Keep only recordings listed in a similarity score file
  vowelspace filter --similarity scores.csv out/extracted corpus/speakers out/filtered`,
	Args: cobra.ExactArgs(3),
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().StringVar(&filterSimilarity, "similarity", "",
		"CSV of per-recording similarity scores")
}

func runFilter(cmd *cobra.Command, args []string) error {
	a, err := newApp(func(c *app.Context) { c.SimilarityFile = filterSimilarity })
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	timer := NewPerformanceTimer()
	timer.StartEvent("filtering")
	reports, err := a.Filter(ctx, args[0], args[1], args[2])
	timer.EndEvent("filtering")
	if err != nil {
		return err
	}

	if a.Structured() {
		return a.Output(reports)
	}

	printHeader("Token Filtering", args[0])
	rows := make([][]string, 0, len(reports))
	failed := 0
	for _, r := range reports {
		name := filepath.Base(r.File)
		if r.Error != nil {
			failed++
			printError("%s: %v", name, r.Error)
			continue
		}
		rows = append(rows, []string{
			filter.LanguagePrefix(name),
			corners(r),
			strconv.Itoa(r.Original),
			strconv.Itoa(r.AIU),
			strconv.Itoa(r.SegDuration),
			strconv.Itoa(r.UttDuration),
			strconv.Itoa(r.Speaker),
			strconv.Itoa(r.Outlier),
			strconv.Itoa(r.Similarity),
			strconv.Itoa(r.Speakers),
		})
	}
	if len(rows) > 0 {
		fmt.Println(report.RenderRows(
			[]string{"Language", "Vowels", "Original", "a/i/u", "Segment", "Utterance", "Speaker", "Outlier", "Similarity", "Speakers"},
			rows, tableOptions(a, "Rows After Each Stage")))
	}

	fmt.Println()
	printResult("Filtered Files", failed == 0)
	printInfo("%d of %d files written to %s", len(reports)-failed, len(reports), args[2])
	if a.Config().Verbose {
		fmt.Println()
		displayPerformanceSummary(timer)
	}
	return nil
}

// corners lists the kept variant of each corner vowel.
func corners(r *filter.Report) string {
	vowels := make([]string, 0, len(ipa.Classes))
	for _, class := range ipa.Classes {
		v, ok := r.MostFrequent[class]
		if !ok {
			v = "-"
		}
		vowels = append(vowels, v)
	}
	return strings.Join(vowels, " ")
}
