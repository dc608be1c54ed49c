package cmd

import (
	"fmt"
	"strconv"

	"github.com/RyanBlaney/vowelspace/internal/app"
	"github.com/RyanBlaney/vowelspace/internal/lmm"
	"github.com/RyanBlaney/vowelspace/internal/report"
	"github.com/spf13/cobra"
)

var (
	modelInventory string
	modelNoFigures bool
)

var modelCmd = &cobra.Command{
	Use:   "model <std-dir> <output-dir>",
	Short: "Fit the dispersion models over the SD tables",
	Long: `Fit a linear model with a random intercept per language of the F1 and F2
standard deviations on the number of vowels, the corner vowel contrasts and
the presence of a schwa.

Result tables are written to <output-dir>, named after the response and the
inventory label. Scatter plots of the per-language means against inventory
size are drawn unless --no-figures is given.

Examples:
  vowelspace model out/std_base out/results
  vowelspace model --mode full out/std_full out/results`,
	Args: cobra.ExactArgs(2),
	RunE: runModel,
}

func init() {
	rootCmd.AddCommand(modelCmd)

	modelCmd.Flags().StringVar(&modelInventory, "mode", "",
		"inventory label of the SD tables (base, full)")
	modelCmd.Flags().BoolVar(&modelNoFigures, "no-figures", false,
		"skip the regression figures")
}

func runModel(cmd *cobra.Command, args []string) error {
	a, err := newApp(func(c *app.Context) {
		c.InventoryMode = modelInventory
		c.NoFigures = modelNoFigures
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := a.Model(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if a.Structured() {
		return a.Output(res)
	}

	alpha := a.Config().Model.Alpha
	printHeader(humanLabel(res.Report.Inventory)+" Inventory Models", args[0])
	printInfo("SD tables: %d, rows: %s", res.Report.Tables, formatCount(res.Report.Rows))
	fmt.Println()

	for _, m := range res.Report.Models {
		fmt.Println(m.Fit.Summary(alpha))
		fmt.Println(report.ModelTable(m, tableOptions(a, "")))
		printSuccess("Wrote %s", m.Output)
		fmt.Println()
	}

	displayRegressions(a, res.Report)

	for _, f := range res.Figures {
		printSuccess("Figure %s", f)
	}
	return nil
}

func displayRegressions(a *app.App, r *lmm.Report) {
	if len(r.Regressions) == 0 {
		return
	}
	precision := a.Config().Output.Precision
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', precision, 64) }

	var rows [][]string
	for _, formant := range []string{"F1", "F2"} {
		reg, ok := r.Regressions[formant]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			formant, strconv.Itoa(reg.N), f(reg.Slope), f(reg.Intercept),
			f(reg.RSquared), lmm.FormatPValue(reg.PValue),
		})
	}
	fmt.Println(report.RenderRows(
		[]string{"Formant", "Languages", "Slope", "Intercept", "R²", "p"},
		rows, tableOptions(a, "Language Means on Number of Vowels")))
	fmt.Println()
}
