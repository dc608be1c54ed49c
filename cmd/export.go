package cmd

import (
	"fmt"
	"strconv"

	"github.com/RyanBlaney/vowelspace/internal/report"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <database> <[table=]csv-or-dir>...",
	Short: "Import pipeline tables into a SQLite database",
	Long: `Import CSV tables into a SQLite database for ad hoc queries.

Each source is a CSV file or a directory of CSV files. Tables are named after
the file; a "name=" prefix names the table of a file or prefixes the tables of
a directory. Existing tables of the same name are replaced. Numeric columns are
stored as REAL and NaN cells as NULL.

Examples:
  vowelspace export out/vowels.db out/filtered
  vowelspace export out/vowels.db base=out/std_base full=out/std_full summary=out/complete.csv`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := a.Export(ctx, args[0], args[1:])
	if err != nil {
		return err
	}
	if a.Structured() {
		return a.Output(results)
	}

	printHeader("SQLite Export", args[0])
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			printError("%s: %v", r.File, r.Error)
			continue
		}
		rows = append(rows, []string{r.Table, strconv.Itoa(r.Rows), r.File})
	}
	if len(rows) > 0 {
		fmt.Println(report.RenderRows([]string{"Table", "Rows", "Source"}, rows, tableOptions(a, "")))
	}
	fmt.Println()
	printResult("Export", failed == 0)
	return nil
}
