package lmm

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/RyanBlaney/vowelspace/internal/inventory"
	"github.com/RyanBlaney/vowelspace/internal/stats"
)

// DispersionPredictors are the fixed effects of the dispersion models.
var DispersionPredictors = []string{"number_of_vowels", "has_schwa", "vowel_contrast1", "vowel_contrast2"}

// Responses are the modelled formant SD columns.
var Responses = []string{"F1_std", "F2_std"}

// DispersionFormula returns the model of response with a random intercept per
// language.
func DispersionFormula(response string) Formula {
	return Formula{Response: response, Predictors: DispersionPredictors, Group: "language"}
}

// Config configures an analysis run.
type Config struct {
	// Inventory labels the output files, e.g. "base" or "full".
	Inventory string
	Alpha     float64
	MinRows   int
	Logger    logging.Logger
}

// ModelResult is one fitted model and where its table was written.
type ModelResult struct {
	Response     string        `json:"response"`
	Fit          *Fit          `json:"fit"`
	Coefficients []Coefficient `json:"coefficients"`
	Output       string        `json:"output"`
}

// Report gathers everything an analysis run produced.
type Report struct {
	Inventory   string                       `json:"inventory"`
	Tables      int                          `json:"tables"`
	Rows        int                          `json:"rows"`
	Models      []*ModelResult               `json:"models"`
	Languages   []LanguageSummary            `json:"languages"`
	Regressions map[string]*stats.Regression `json:"regressions"`
}

// Analysis fits the dispersion models over a directory of SD tables.
type Analysis struct {
	cfg    *Config
	logger logging.Logger
}

// NewAnalysis creates an analysis.
func NewAnalysis(cfg *Config) *Analysis {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Analysis{cfg: cfg, logger: logger}
}

// LoadData concatenates the SD tables of dir with at least minRows rows and
// drops incomplete rows.
func LoadData(dir string, minRows int) (*dataset.Table, int, error) {
	tables, err := inventory.LoadStdTables(dir, minRows)
	if err != nil {
		return nil, 0, err
	}
	if len(tables) == 0 {
		return nil, 0, fmt.Errorf("no SD tables with at least %d rows in %s: %w", minRows, dir, ErrNoData)
	}
	return dataset.Concat(tables...).DropMissing(), len(tables), nil
}

// Run fits both formant models, writes their result tables to outputDir and
// computes the per-language regressions.
func (a *Analysis) Run(ctx context.Context, stdDir, outputDir string) (*Report, error) {
	data, tables, err := LoadData(stdDir, a.cfg.MinRows)
	if err != nil {
		return nil, err
	}
	report := &Report{
		Inventory:   a.cfg.Inventory,
		Tables:      tables,
		Rows:        data.Len(),
		Regressions: make(map[string]*stats.Regression),
	}
	a.logger.Info("Loaded SD tables", logging.Fields{
		"tables": tables,
		"rows":   data.Len(),
	})

	for _, response := range Responses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := a.fit(data, response, outputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to fit %s: %w", response, err)
		}
		report.Models = append(report.Models, res)
	}

	report.Languages, err = SummarizeLanguages(data)
	if err != nil {
		return nil, err
	}
	for _, formant := range []string{"F1", "F2"} {
		reg, err := Regress(report.Languages, formant)
		if err != nil {
			a.logger.Warn("Regression skipped", logging.Fields{"formant": formant, "error": err.Error()})
			continue
		}
		report.Regressions[formant] = reg
		a.logger.Info("Regression on number of vowels", logging.Fields{
			"formant":   formant,
			"slope":     stats.Round(reg.Slope, 3),
			"p_value":   stats.Round(reg.PValue, 3),
			"r_squared": stats.Round(reg.RSquared, 3),
		})
	}
	return report, nil
}

func (a *Analysis) fit(data *dataset.Table, response, outputDir string) (*ModelResult, error) {
	d, err := NewData(data, DispersionFormula(response))
	if err != nil {
		return nil, err
	}
	fit, err := FitREML(d)
	if err != nil {
		return nil, err
	}
	coefs := fit.Coefficients(a.cfg.Alpha)

	res := &ModelResult{
		Response:     response,
		Fit:          fit,
		Coefficients: coefs,
		Output:       filepath.Join(outputDir, ResultName(response, a.cfg.Inventory)),
	}
	if err := ResultTable(coefs).WriteCSV(res.Output); err != nil {
		return nil, err
	}

	a.logger.Info("Model fitted", logging.Fields{
		"response":  response,
		"n_obs":     fit.NObs,
		"groups":    fit.NGroups,
		"group_var": stats.Round(fit.GroupVar, 3),
		"converged": fit.Converged,
		"output":    res.Output,
	})
	return res, nil
}
