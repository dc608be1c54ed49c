package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/vowelspace/internal/acoustic"
	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/RyanBlaney/vowelspace/internal/extract"
	"github.com/RyanBlaney/vowelspace/internal/filter"
	"github.com/RyanBlaney/vowelspace/internal/inventory"
	"github.com/RyanBlaney/vowelspace/internal/lexicon"
	"github.com/RyanBlaney/vowelspace/internal/lmm"
	"github.com/RyanBlaney/vowelspace/internal/report"
	"github.com/RyanBlaney/vowelspace/internal/store"
)

// Extract runs the acoustic extraction of one corpus language. onFile, when
// set, is called from worker goroutines after each TextGrid.
func (app *App) Extract(ctx context.Context, job extract.Job, onFile func(*extract.FileResult)) (*extract.Summary, error) {
	cfg := app.config.ExtractSettings(app.logger)

	pitch, err := acoustic.NewPitchTracker(cfg.Pitch, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pitch tracker: %w", err)
	}
	engine, err := extract.NewEngine(&extract.EngineConfig{
		Config:         cfg,
		Loader:         acoustic.NewFileLoader(app.logger),
		PitchTracker:   pitch,
		FormantTracker: acoustic.NewFormantTracker(app.logger),
		Logger:         app.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction engine: %w", err)
	}

	orchestrator := extract.NewOrchestrator(cfg, engine, app.logger)
	orchestrator.OnFileDone = onFile

	summary, err := orchestrator.Run(ctx, job)
	if err != nil {
		return nil, err
	}

	app.EmitMetrics("extract", map[string]int64{
		"processed":     int64(summary.Processed),
		"failed":        int64(summary.Failed),
		"files":         int64(summary.Files),
		"file_errors":   int64(summary.FileErrors),
		"skipped_files": int64(summary.SkippedFiles),
		"runtime_ms":    summary.Runtime.Milliseconds(),
	}, "lang:"+job.Lang)
	return summary, nil
}

// Filter runs the filtering pipeline over a directory of extraction CSVs.
func (app *App) Filter(ctx context.Context, inputDir, speakerDir, outputDir string) ([]*filter.Report, error) {
	f, err := filter.New(app.config.FilterSettings(app.logger))
	if err != nil {
		return nil, err
	}
	reports, err := f.Run(ctx, inputDir, speakerDir, outputDir)
	if err != nil {
		return nil, err
	}

	for _, r := range reports {
		if r.Error != nil {
			continue
		}
		app.EmitMetrics("filter", map[string]int64{
			"original": int64(r.Original),
			"kept":     int64(r.Similarity),
			"speakers": int64(r.Speakers),
		}, "file:"+r.File)
	}
	return reports, nil
}

// Lexicon writes the phoneme overview of every lexicon in inputDir.
func (app *App) Lexicon(ctx context.Context, inputDir, outputDir string) ([]*lexicon.Result, error) {
	return lexicon.NewProcessor(app.logger).Run(ctx, inputDir, outputDir)
}

// InventoryResult is the outcome of building the SD tables of one mode.
type InventoryResult struct {
	Mode      inventory.Mode              `json:"mode"`
	Languages []*inventory.LanguageResult `json:"languages"`
	Summary   string                      `json:"summary"`
	Table     *dataset.Table              `json:"-"`
}

// Inventory builds the SD tables of every filtered file and writes the
// inventory summary of the configured mode next to them.
func (app *App) Inventory(ctx context.Context, filteredDir, docsDir, rawDir, outputDir string) (*InventoryResult, error) {
	cfg, err := app.config.InventorySettings(docsDir, rawDir, app.logger)
	if err != nil {
		return nil, err
	}
	results, err := inventory.NewBuilder(cfg).Run(ctx, filteredDir, outputDir)
	if err != nil {
		return nil, err
	}

	res := &InventoryResult{
		Mode:      cfg.Mode,
		Languages: results,
		Summary:   filepath.Join(outputDir, inventory.SummaryName(cfg.Mode)),
		Table:     inventory.Summary(cfg.Mode, results),
	}
	if err := res.Table.WriteCSV(res.Summary); err != nil {
		return nil, err
	}

	var failed int64
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	app.EmitMetrics("inventory", map[string]int64{
		"languages": int64(len(results)),
		"failed":    failed,
	}, "mode:"+string(cfg.Mode))

	app.logger.Info("Inventory summary written", logging.Fields{
		"mode":      cfg.Mode,
		"languages": res.Table.Len(),
		"output":    res.Summary,
	})
	return res, nil
}

// CompleteResult is the merged inventory summary with speaker statistics.
type CompleteResult struct {
	Output   string                    `json:"output"`
	Table    *dataset.Table            `json:"-"`
	Speakers *inventory.SpeakerStats   `json:"speakers"`
	Stats    []inventory.LanguageStats `json:"languages"`
}

// CompleteSummary merges the base and full summaries with the speaker counts
// of the full SD tables and writes the result to output.
func (app *App) CompleteSummary(basePath, fullPath, stdDir, outputPath string) (*CompleteResult, error) {
	base, err := dataset.ReadCSV(basePath)
	if err != nil {
		return nil, err
	}
	full, err := dataset.ReadCSV(fullPath)
	if err != nil {
		return nil, err
	}
	tables, err := inventory.LoadStdTables(stdDir, app.config.Inventory.MinRows)
	if err != nil {
		return nil, err
	}
	stats, err := inventory.CollectLanguageStats(tables)
	if err != nil {
		return nil, err
	}
	complete, err := inventory.CompleteSummary(base, full, stats)
	if err != nil {
		return nil, err
	}
	if err := complete.WriteCSV(outputPath); err != nil {
		return nil, err
	}

	return &CompleteResult{
		Output:   outputPath,
		Table:    complete,
		Speakers: inventory.SummarizeSpeakers(stats),
		Stats:    stats,
	}, nil
}

// Count totals the studied vowel tokens of a filtered directory.
func (app *App) Count(filteredDir string) (*inventory.StudiedCounts, error) {
	counts, err := inventory.CountStudied(filteredDir)
	if err != nil {
		return nil, err
	}
	app.EmitMetrics("count", map[string]int64{
		"rows":  int64(counts.Rows),
		"a":     int64(counts.A),
		"i":     int64(counts.I),
		"u":     int64(counts.U),
		"total": int64(counts.Total()),
	})
	return counts, nil
}

// ModelResult is an analysis run with the figures drawn from it.
type ModelResult struct {
	Report  *lmm.Report `json:"report"`
	Figures []string    `json:"figures,omitempty"`
}

// Model fits the dispersion models over the SD tables of stdDir and writes
// result tables and, when enabled, regression figures to outputDir.
func (app *App) Model(ctx context.Context, stdDir, outputDir string) (*ModelResult, error) {
	rep, err := lmm.NewAnalysis(app.config.ModelSettings(app.logger)).Run(ctx, stdDir, outputDir)
	if err != nil {
		return nil, err
	}
	res := &ModelResult{Report: rep}

	if app.config.Model.Figures {
		res.Figures, err = report.WriteRegressionFigures(rep, outputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to write figures: %w", err)
		}
	}

	app.EmitMetrics("model", map[string]int64{
		"tables": int64(rep.Tables),
		"rows":   int64(rep.Rows),
	}, "inventory:"+rep.Inventory)
	return res, nil
}

// Plot writes the vowel space ellipse figures.
func (app *App) Plot(outputDir string) ([]string, error) {
	return report.WriteEllipseFigures(outputDir)
}

// Export imports CSV tables into a SQLite database. Each source is a CSV file
// or a directory of CSV files, optionally prefixed with "name=" to choose the
// table name.
func (app *App) Export(ctx context.Context, dbPath string, sources []string) ([]store.ImportResult, error) {
	db, err := store.Open(dbPath, app.logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var all []store.ImportResult
	for _, src := range sources {
		name, path := splitSource(src)
		results, err := db.ImportAs(ctx, name, path)
		if err != nil {
			return all, fmt.Errorf("failed to import %s: %w", src, err)
		}
		all = append(all, results...)
	}

	var rows int64
	for _, r := range all {
		rows += int64(r.Rows)
	}
	app.EmitMetrics("export", map[string]int64{
		"tables": int64(len(all)),
		"rows":   rows,
	})
	return all, nil
}

func splitSource(src string) (name, path string) {
	if n, p, ok := strings.Cut(src, "="); ok && n != "" && !strings.ContainsAny(n, `/\`) {
		return n, p
	}
	return "", src
}
