package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/RyanBlaney/vowelspace/internal/app"
	"github.com/RyanBlaney/vowelspace/internal/extract"
	"github.com/RyanBlaney/vowelspace/internal/report"
	"github.com/spf13/cobra"
)

var extractWorkers int

var extractCmd = &cobra.Command{
	Use:   "extract <corpus-dir> <lang> <version> <output-dir>",
	Short: "Extract duration, F0 and formants of every monophthong",
	Long: `Extract acoustic measurements of every target monophthong of one corpus
language.

Alignments are read from <corpus-dir>/<lang>_v<version>/output/*.TextGrid and
recordings from <corpus-dir>/<lang>_v<version>/validated/. The result is
written to <output-dir>/<lang>_v<version>_dur_f0_formants.csv.

Examples:
  # Extract German, version 1
  vowelspace extract corpus de 1 out/extracted

  # Use four workers and print the summary as JSON
  vowelspace extract --workers 4 -o json corpus de 1 out/extracted`,
	Args: cobra.ExactArgs(4),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", 0,
		"parallel files (default min(10, NumCPU))")
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApp(func(c *app.Context) { c.Workers = extractWorkers })
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	job := extract.Job{CorpusDir: args[0], Lang: args[1], Version: args[2], OutputDir: args[3]}

	files, err := extract.ListTextGrids(job.TextGridDir())
	if err != nil {
		return err
	}

	if !a.Structured() {
		printHeader("Acoustic Extraction", job.LangDir())
		printInfo("TextGrids: %s", formatCount(len(files)))
		printInfo("Workers: %d", a.Config().Extract.Workers)
		fmt.Println()
	}

	bar := newProgressBar(a, len(files), fmt.Sprintf("%s_v%s", job.Lang, job.Version))
	var onFile func(*extract.FileResult)
	if bar != nil {
		onFile = func(*extract.FileResult) { _ = bar.Add(1) }
	}

	summary, err := a.Extract(ctx, job, onFile)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	if a.Structured() {
		return a.Output(summary)
	}
	displayExtractSummary(a, summary)
	return nil
}

func displayExtractSummary(a *app.App, s *extract.Summary) {
	printSectionHeader("Extraction Summary")
	printKeyValue("Files", formatCount(s.Files))
	printKeyValue("Skipped Files", formatCount(s.SkippedFiles))
	printKeyValue("File Errors", formatCount(s.FileErrors))
	printKeyValue("Processed Segments", formatCount(s.Processed))
	printKeyValue("Failed Segments", formatCount(s.Failed))
	printKeyValue("Runtime", extract.FormatRuntime(s.Runtime))
	fmt.Println()

	if s.Written {
		printSuccess("Wrote %s tokens to %s", formatCount(s.Tokens), s.OutputPath)
	} else {
		printWarning("No tokens extracted, nothing written")
	}

	if len(s.VowelStats) == 0 {
		return
	}

	vowels := make([]string, 0, len(s.VowelStats))
	for v := range s.VowelStats {
		vowels = append(vowels, v)
	}
	sort.Strings(vowels)

	precision := a.Config().Output.Precision
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', precision, 64) }

	rows := make([][]string, 0, len(vowels))
	for _, v := range vowels {
		st := s.VowelStats[v]
		rows = append(rows, []string{
			v, strconv.Itoa(st.Count), f(st.Mean), f(st.Median), f(st.P95),
			f(st.Min), f(st.Max), f(st.StdDev), f(st.MeanF1), f(st.MeanF2),
		})
	}
	fmt.Println()
	fmt.Println(report.RenderRows(
		[]string{"Vowel", "Tokens", "Mean ms", "Median ms", "P95 ms", "Min ms", "Max ms", "SD ms", "F1", "F2"},
		rows, tableOptions(a, "Vowel Durations")))
}
