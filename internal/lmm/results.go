package lmm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/RyanBlaney/vowelspace/internal/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// GroupVarName labels the random intercept variance row.
const GroupVarName = "Group Var"

// DisplayNames maps coefficient names to the labels of the results tables.
var DisplayNames = map[string]string{
	InterceptName:      "Intercept",
	"number_of_vowels": "Number of vowels",
	"has_schwa":        "Has schwa",
	"vowel_contrast1":  "Vowel contrast 1",
	"vowel_contrast2":  "Vowel contrast 2",
	GroupVarName:       "Group Var",
}

// DisplayName returns the table label of a coefficient.
func DisplayName(name string) string {
	if d, ok := DisplayNames[name]; ok {
		return d
	}
	return name
}

// Coefficient is one row of a results table. Values not defined for a row
// are NaN.
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	Z        float64 `json:"z"`
	PValue   float64 `json:"p_value"`
	CILower  float64 `json:"ci_lower"`
	CIUpper  float64 `json:"ci_upper"`
}

// Coefficients returns the fixed effects with Wald z tests and (1-alpha)
// confidence intervals, followed by the group variance.
func (f *Fit) Coefficients(alpha float64) []Coefficient {
	q := distuv.UnitNormal.Quantile(1 - alpha/2)
	out := make([]Coefficient, 0, len(f.Params)+1)
	for k, name := range f.Names {
		est, se := f.Params[k], f.StdErr[k]
		z := est / se
		out = append(out, Coefficient{
			Name:     name,
			Estimate: est,
			StdErr:   se,
			Z:        z,
			PValue:   2 * distuv.UnitNormal.Survival(math.Abs(z)),
			CILower:  est - q*se,
			CIUpper:  est + q*se,
		})
	}
	nan := math.NaN()
	out = append(out, Coefficient{
		Name:     GroupVarName,
		Estimate: f.GroupVar,
		StdErr:   nan,
		Z:        nan,
		PValue:   nan,
		CILower:  nan,
		CIUpper:  nan,
	})
	return out
}

// FormatPValue renders p rounded to three decimals, or "< 0.0001".
func FormatPValue(p float64) string {
	if p >= 0 && p < 0.0001 {
		return "< 0.0001"
	}
	return dataset.FormatFloat(stats.Round(p, 3))
}

// ResultColumns is the header of a results table.
var ResultColumns = []string{"Predictor", "Estimate", "Std. Error", "p-value", "CI Lower", "CI Upper"}

// ResultTable renders coefficients the way they are published: display
// names, values rounded to three decimals.
func ResultTable(coefs []Coefficient) *dataset.Table {
	out := dataset.NewTable(ResultColumns...)
	for _, c := range coefs {
		out.Append([]string{
			DisplayName(c.Name),
			dataset.FormatFloat(stats.Round(c.Estimate, 3)),
			dataset.FormatFloat(stats.Round(c.StdErr, 3)),
			FormatPValue(c.PValue),
			dataset.FormatFloat(stats.Round(c.CILower, 3)),
			dataset.FormatFloat(stats.Round(c.CIUpper, 3)),
		})
	}
	return out
}

// ResultName is the file name of the results table of a response.
func ResultName(response, inventory string) string {
	formant := strings.ToLower(strings.TrimSuffix(response, "_std"))
	return fmt.Sprintf("model_results_%s_%s.csv", formant, inventory)
}

// Summary renders a plain text summary of the fit.
func (f *Fit) Summary(alpha float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model:              MixedLM (REML)\n")
	fmt.Fprintf(&b, "Formula:            %s\n", f.Formula)
	fmt.Fprintf(&b, "No. Observations:   %d\n", f.NObs)
	fmt.Fprintf(&b, "No. Groups:         %d\n", f.NGroups)
	fmt.Fprintf(&b, "Group size min/max: %d / %d\n", f.MinGroup, f.MaxGroup)
	fmt.Fprintf(&b, "Mean group size:    %.1f\n", f.MeanGroup)
	fmt.Fprintf(&b, "Scale:              %.4f\n", f.Scale)
	fmt.Fprintf(&b, "Log-Likelihood:     %.4f\n", f.LogLike)
	fmt.Fprintf(&b, "Converged:          %s\n", yesNo(f.Converged))
	fmt.Fprintf(&b, "\n%-18s %10s %10s %8s %8s %10s %10s\n", "", "Coef.", "Std.Err.", "z", "P>|z|",
		fmt.Sprintf("[%.3g", alpha/2), fmt.Sprintf("%.3g]", 1-alpha/2))
	for _, c := range f.Coefficients(alpha) {
		if c.Name == GroupVarName {
			fmt.Fprintf(&b, "%-18s %10.3f\n", c.Name, c.Estimate)
			continue
		}
		fmt.Fprintf(&b, "%-18s %10.3f %10.3f %8.3f %8.3f %10.3f %10.3f\n",
			c.Name, c.Estimate, c.StdErr, c.Z, c.PValue, c.CILower, c.CIUpper)
	}
	return b.String()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// LanguageSummary holds the per-language means plotted against inventory size.
type LanguageSummary struct {
	Language       string  `json:"language"`
	F1Std          float64 `json:"F1_std"`
	F2Std          float64 `json:"F2_std"`
	NumberOfVowels float64 `json:"number_of_vowels"`
	HasSchwa       float64 `json:"has_schwa"`
}

// SummarizeLanguages averages the formant SDs per language and takes the
// first inventory size and schwa flag. Languages are sorted.
func SummarizeLanguages(tbl *dataset.Table) ([]LanguageSummary, error) {
	if err := tbl.Require("language", "F1_std", "F2_std", "number_of_vowels", "has_schwa"); err != nil {
		return nil, err
	}
	type acc struct {
		f1, f2 []float64
		first  int
	}
	groups := make(map[string]*acc)
	var langs []string
	for i := range tbl.Rows {
		lang := tbl.Value(i, "language")
		a, ok := groups[lang]
		if !ok {
			a = &acc{first: i}
			groups[lang] = a
			langs = append(langs, lang)
		}
		if v := tbl.Float(i, "F1_std"); !math.IsNaN(v) {
			a.f1 = append(a.f1, v)
		}
		if v := tbl.Float(i, "F2_std"); !math.IsNaN(v) {
			a.f2 = append(a.f2, v)
		}
	}
	sort.Strings(langs)

	out := make([]LanguageSummary, len(langs))
	for i, lang := range langs {
		a := groups[lang]
		m1, _ := stats.MeanSD(a.f1)
		m2, _ := stats.MeanSD(a.f2)
		out[i] = LanguageSummary{
			Language:       lang,
			F1Std:          m1,
			F2Std:          m2,
			NumberOfVowels: tbl.Float(a.first, "number_of_vowels"),
			HasSchwa:       tbl.Float(a.first, "has_schwa"),
		}
	}
	return out, nil
}

// LanguageTable renders language summaries as a table.
func LanguageTable(summaries []LanguageSummary) *dataset.Table {
	out := dataset.NewTable("language", "F1_std", "F2_std", "number_of_vowels", "has_schwa")
	for _, s := range summaries {
		out.Append([]string{
			s.Language,
			dataset.FormatFloat(s.F1Std),
			dataset.FormatFloat(s.F2Std),
			strconv.FormatFloat(s.NumberOfVowels, 'f', -1, 64),
			strconv.FormatFloat(s.HasSchwa, 'f', -1, 64),
		})
	}
	return out
}

// Regress fits the per-language mean SD of a formant on inventory size.
func Regress(summaries []LanguageSummary, formant string) (*stats.Regression, error) {
	x := make([]float64, len(summaries))
	y := make([]float64, len(summaries))
	for i, s := range summaries {
		x[i] = s.NumberOfVowels
		switch formant {
		case "F1":
			y[i] = s.F1Std
		case "F2":
			y[i] = s.F2Std
		default:
			return nil, fmt.Errorf("unknown formant %q", formant)
		}
	}
	x, y = stats.DropNaN(x, y)
	return stats.LinRegress(x, y)
}
