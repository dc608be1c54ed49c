package report

import (
	"fmt"
	"path/filepath"

	"github.com/RyanBlaney/vowelspace/internal/lmm"
)

// LanguagePoints plots each language's mean formant SD against its
// inventory size.
func LanguagePoints(summaries []lmm.LanguageSummary, formant string) ([]Point, error) {
	out := make([]Point, len(summaries))
	for i, s := range summaries {
		var y float64
		switch formant {
		case "F1":
			y = s.F1Std
		case "F2":
			y = s.F2Std
		default:
			return nil, fmt.Errorf("unknown formant %q", formant)
		}
		out[i] = Point{Label: s.Language, X: s.NumberOfVowels, Y: y}
	}
	return out, nil
}

// WriteRegressionFigures saves one scatter per regressed formant of an
// analysis and returns the written paths.
func WriteRegressionFigures(r *lmm.Report, outputDir string) ([]string, error) {
	var paths []string
	for _, formant := range []string{"F1", "F2"} {
		reg, ok := r.Regressions[formant]
		if !ok {
			continue
		}
		points, err := LanguagePoints(r.Languages, formant)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(outputDir, FigureName(formant, r.Inventory))
		if err := FormantScatter(formant, r.Inventory, points, reg).Save(path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteEllipseFigures saves every ellipse layout to outputDir.
func WriteEllipseFigures(outputDir string) ([]string, error) {
	paths := make([]string, 0, len(EllipseLayouts))
	for _, layout := range EllipseLayouts {
		path := filepath.Join(outputDir, layout.Name)
		if err := layout.Save(path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ModelTable renders the results table of a fitted model.
func ModelTable(m *lmm.ModelResult, opts Options) string {
	if opts.Title == "" {
		opts.Title = m.Fit.Formula.String()
	}
	return RenderTable(lmm.ResultTable(m.Coefficients), opts)
}
