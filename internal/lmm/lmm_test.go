package lmm

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func groupTable(groups map[string][]float64) *dataset.Table {
	tbl := dataset.NewTable("g", "y")
	for _, g := range []string{"g1", "g2", "g3"} {
		for _, y := range groups[g] {
			tbl.Append([]string{g, dataset.FormatFloat(y)})
		}
	}
	return tbl
}

func TestFitREMLBalancedOneWay(t *testing.T) {
	// REML equals the ANOVA estimators for balanced one-way data:
	// MSW = 15/9, MSB = 16, group variance = (MSB-MSW)/4.
	tbl := groupTable(map[string][]float64{
		"g1": {1, 2, 3, 4},
		"g2": {5, 6, 7, 8},
		"g3": {3, 4, 5, 6},
	})
	d, err := NewData(tbl, Formula{Response: "y", Group: "g"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2", "g3"}, d.Groups)

	fit, err := FitREML(d)
	require.NoError(t, err)

	assert.Equal(t, []string{InterceptName}, fit.Names)
	assert.InDelta(t, 4.5, fit.Params[0], 1e-9)
	assert.InDelta(t, 15.0/9, fit.Scale, 1e-3)
	assert.InDelta(t, (16-15.0/9)/4, fit.GroupVar, 1e-3)
	assert.InDelta(t, math.Sqrt(16.0/12), fit.StdErr[0], 1e-3)
	assert.Equal(t, 12, fit.NObs)
	assert.Equal(t, 3, fit.NGroups)
	assert.Equal(t, 4, fit.MinGroup)
	assert.Equal(t, 4, fit.MaxGroup)
}

func TestFitREMLZeroGroupVariance(t *testing.T) {
	tbl := groupTable(map[string][]float64{
		"g1": {1, 2, 3},
		"g2": {1, 2, 3},
	})
	d, err := NewData(tbl, Formula{Response: "y", Group: "g"})
	require.NoError(t, err)

	fit, err := FitREML(d)
	require.NoError(t, err)
	assert.InDelta(t, 0, fit.GroupVar, 1e-6)
	assert.InDelta(t, 0.8, fit.Scale, 1e-6)
	assert.InDelta(t, 2, fit.Params[0], 1e-9)
}

func TestProfileMatchesDenseGLS(t *testing.T) {
	tbl := dataset.NewTable("g", "x", "y")
	rows := [][3]string{
		{"a", "1", "3.1"}, {"a", "2", "5.2"}, {"a", "4", "8.7"},
		{"b", "1", "1.9"}, {"b", "3", "6.4"}, {"b", "5", "9.8"}, {"b", "6", "12.5"},
	}
	for _, r := range rows {
		tbl.Append(r[:])
	}
	d, err := NewData(tbl, Formula{Response: "y", Predictors: []string{"x"}, Group: "g"})
	require.NoError(t, err)

	const gamma = 0.7
	pr, err := newSufficient(d).profile(gamma)
	require.NoError(t, err)

	n, _ := d.X.Dims()
	v := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if d.index[i] == d.index[j] {
				v.Set(i, j, gamma)
			}
		}
		v.Set(i, i, 1+gamma)
	}
	var vinv, xtv, a mat.Dense
	require.NoError(t, vinv.Inverse(v))
	xtv.Mul(d.X.T(), &vinv)
	a.Mul(&xtv, d.X)
	var b, beta mat.VecDense
	b.MulVec(&xtv, mat.NewVecDense(n, d.Y))
	require.NoError(t, beta.SolveVec(&a, &b))

	for k := 0; k < 2; k++ {
		assert.InDelta(t, beta.AtVec(k), pr.beta.AtVec(k), 1e-9)
	}
}

func TestNewDataSkipsIncompleteRows(t *testing.T) {
	tbl := dataset.NewTable("g", "x", "y")
	tbl.Append([]string{"a", "1", "2"})
	tbl.Append([]string{"", "1", "2"})
	tbl.Append([]string{"a", "NaN", "2"})
	tbl.Append([]string{"b", "2", ""})
	tbl.Append([]string{"b", "3", "4"})

	d, err := NewData(tbl, Formula{Response: "y", Predictors: []string{"x"}, Group: "g"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, d.Y)
	assert.Equal(t, []string{"a", "b"}, d.Groups)

	_, err = NewData(dataset.NewTable("g", "x", "y"), Formula{Response: "y", Predictors: []string{"x"}, Group: "g"})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = NewData(tbl, Formula{Response: "z", Group: "g"})
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestFitREMLSingular(t *testing.T) {
	tbl := dataset.NewTable("g", "x", "y")
	for i := 0; i < 6; i++ {
		tbl.Append([]string{"g" + strconv.Itoa(i%2), "1", strconv.Itoa(i)})
	}
	d, err := NewData(tbl, Formula{Response: "y", Predictors: []string{"x"}, Group: "g"})
	require.NoError(t, err)
	_, err = FitREML(d)
	assert.ErrorIs(t, err, ErrSingular)
}

func testFit() *Fit {
	return &Fit{
		Names:    []string{InterceptName, "number_of_vowels"},
		Params:   []float64{2, 0.5},
		StdErr:   []float64{1, 0.1},
		GroupVar: 3,
	}
}

func TestCoefficients(t *testing.T) {
	coefs := testFit().Coefficients(0.05)
	require.Len(t, coefs, 3)

	assert.InDelta(t, 2, coefs[0].Z, 1e-12)
	assert.InDelta(t, 0.0455003, coefs[0].PValue, 1e-6)
	assert.InDelta(t, 2-1.959964, coefs[0].CILower, 1e-6)
	assert.InDelta(t, 2+1.959964, coefs[0].CIUpper, 1e-6)

	assert.Less(t, coefs[1].PValue, 0.0001)

	assert.Equal(t, GroupVarName, coefs[2].Name)
	assert.Equal(t, 3.0, coefs[2].Estimate)
	assert.True(t, math.IsNaN(coefs[2].PValue))
}

func TestResultTable(t *testing.T) {
	tbl := ResultTable(testFit().Coefficients(0.05))
	assert.Equal(t, ResultColumns, tbl.Header)
	assert.Equal(t, []string{"Intercept", "2", "1", "0.046", "0.04", "3.96"}, tbl.Rows[0])
	assert.Equal(t, []string{"Number of vowels", "0.5", "0.1", "< 0.0001", "0.304", "0.696"}, tbl.Rows[1])
	assert.Equal(t, []string{"Group Var", "3", "NaN", "NaN", "NaN", "NaN"}, tbl.Rows[2])
}

func TestFormatPValue(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, "< 0.0001"},
		{0.00009, "< 0.0001"},
		{0.0001, "0"},
		{0.0456, "0.046"},
		{0.5, "0.5"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.p), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPValue(tt.p))
		})
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "model_results_f1_base.csv", ResultName("F1_std", "base"))
	assert.Equal(t, "model_results_f2_full.csv", ResultName("F2_std", "full"))
	assert.Equal(t, "Has schwa", DisplayName("has_schwa"))
	assert.Equal(t, "other", DisplayName("other"))
	assert.Equal(t, "F1_std ~ number_of_vowels + has_schwa + vowel_contrast1 + vowel_contrast2 | language",
		DispersionFormula("F1_std").String())
}

func TestSummarizeLanguages(t *testing.T) {
	tbl := dataset.NewTable("language", "F1_std", "F2_std", "number_of_vowels", "has_schwa")
	tbl.Append([]string{"fr", "10", "20", "7", "-1"})
	tbl.Append([]string{"de", "30", "40", "5", "1"})
	tbl.Append([]string{"fr", "20", "NaN", "7", "-1"})

	langs, err := SummarizeLanguages(tbl)
	require.NoError(t, err)
	require.Len(t, langs, 2)
	assert.Equal(t, LanguageSummary{"de", 30, 40, 5, 1}, langs[0])
	assert.Equal(t, LanguageSummary{"fr", 15, 20, 7, -1}, langs[1])

	out := LanguageTable(langs)
	assert.Equal(t, []string{"fr", "15", "20", "7", "-1"}, out.Rows[1])
}

func TestRegress(t *testing.T) {
	langs := []LanguageSummary{
		{Language: "a", F1Std: 30, F2Std: 60, NumberOfVowels: 3},
		{Language: "b", F1Std: 50, F2Std: 100, NumberOfVowels: 5},
		{Language: "c", F1Std: 70, F2Std: math.NaN(), NumberOfVowels: 7},
		{Language: "d", F1Std: 90, F2Std: 180, NumberOfVowels: 9},
	}
	reg, err := Regress(langs, "F1")
	require.NoError(t, err)
	assert.InDelta(t, 10, reg.Slope, 1e-9)
	assert.Equal(t, 4, reg.N)

	reg, err = Regress(langs, "F2")
	require.NoError(t, err)
	assert.Equal(t, 3, reg.N)
	assert.InDelta(t, 20, reg.Slope, 1e-9)

	_, err = Regress(langs, "F3")
	assert.Error(t, err)
}

// writeStdTables writes one SD table per language with seven speakers and
// the three corner vowels.
func writeStdTables(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	langs := []struct {
		code   string
		nv     int
		schwa  int
		offset float64
	}{
		{"de", 3, -1, 4}, {"fr", 5, 1, -2}, {"it", 7, -1, 1}, {"ja", 9, 1, -3},
	}
	vowels := []struct {
		v      string
		c1, c2 int
	}{{"a", -1, -1}, {"i", 1, 0}, {"u", 0, 1}}

	for _, l := range langs {
		tbl := dataset.NewTable("speaker_id", "language", "vowel", "number_of_vowels", "F1_std", "F2_std",
			"has_schwa", "vowel_contrast1", "vowel_contrast2")
		for spk := 0; spk < 7; spk++ {
			for _, v := range vowels {
				wiggle := float64((spk*spk+3*v.c1+5)%7) - 3
				f1 := 40 + 2*float64(l.nv) + 5*float64(v.c1) + l.offset + wiggle
				f2 := 120 + 4*float64(l.nv) - 8*float64(v.c2) + 2*l.offset - wiggle
				tbl.Append([]string{
					fmt.Sprintf("%s_s%d", l.code, spk), l.code, v.v, strconv.Itoa(l.nv),
					dataset.FormatFloat(f1), dataset.FormatFloat(f2),
					strconv.Itoa(l.schwa), strconv.Itoa(v.c1), strconv.Itoa(v.c2),
				})
			}
		}
		require.NoError(t, tbl.WriteCSV(filepath.Join(dir, l.code+"_v1_dur_f0_formants_std.csv")))
	}

	small := dataset.NewTable("speaker_id", "language")
	small.Append([]string{"xx_s1", "xx"})
	require.NoError(t, small.WriteCSV(filepath.Join(dir, "xx_std.csv")))
}

func TestAnalysisRun(t *testing.T) {
	dir := t.TempDir()
	stdDir := filepath.Join(dir, "std")
	outDir := filepath.Join(dir, "models")
	writeStdTables(t, stdDir)

	a := NewAnalysis(&Config{Inventory: "base", Alpha: 0.05, MinRows: 20})
	report, err := a.Run(context.Background(), stdDir, outDir)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Tables)
	assert.Equal(t, 84, report.Rows)
	require.Len(t, report.Models, 2)
	for _, m := range report.Models {
		assert.Equal(t, 84, m.Fit.NObs)
		assert.Equal(t, 4, m.Fit.NGroups)
		assert.Len(t, m.Coefficients, 6)

		written, err := dataset.ReadCSV(m.Output)
		require.NoError(t, err)
		assert.Equal(t, 6, written.Len())
		labels, _ := written.Strings("Predictor")
		assert.Equal(t, []string{"Intercept", "Number of vowels", "Has schwa", "Vowel contrast 1", "Vowel contrast 2", "Group Var"}, labels)
	}
	assert.FileExists(t, filepath.Join(outDir, "model_results_f1_base.csv"))
	assert.FileExists(t, filepath.Join(outDir, "model_results_f2_base.csv"))

	require.Len(t, report.Languages, 4)
	assert.Equal(t, "de", report.Languages[0].Language)
	assert.Contains(t, report.Regressions, "F1")
	assert.Contains(t, report.Regressions, "F2")
}

func TestAnalysisNoData(t *testing.T) {
	_, err := NewAnalysis(&Config{MinRows: 20}).Run(context.Background(), t.TempDir(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoData)
}
