package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

const maxDefaultWorkers = 10

// Orchestrator runs the engine over every TextGrid of a corpus language and
// writes the combined extraction CSV.
type Orchestrator struct {
	cfg     *Config
	engine  *Engine
	logger  logging.Logger
	metrics *MetricsCalculator

	// OnFileDone is called from worker goroutines after each file.
	OnFileDone func(*FileResult)
}

// NewOrchestrator creates an orchestrator around engine.
func NewOrchestrator(cfg *Config, engine *Engine, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Orchestrator{
		cfg:     cfg,
		engine:  engine,
		logger:  logger,
		metrics: NewMetricsCalculator(logger),
	}
}

// Workers returns the configured worker count, defaulting to
// min(10, NumCPU).
func (o *Orchestrator) Workers() int {
	if o.cfg.Workers > 0 {
		return o.cfg.Workers
	}
	return min(maxDefaultWorkers, runtime.NumCPU())
}

// ListTextGrids returns the .TextGrid files in dir, sorted by name.
func ListTextGrids(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list TextGrid directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".TextGrid") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Run extracts job and writes its CSV when at least one token was measured.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*Summary, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := o.logger.WithFields(logging.Fields{
		"run_id": runID,
		"lang":   job.Lang,
	})

	paths, err := ListTextGrids(job.TextGridDir())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	lock := flock.New(job.OutputPath() + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock output: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("output %s is locked by another run", job.OutputPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("Failed to release output lock", logging.Fields{"error": err.Error()})
		}
	}()

	logger.Info("Starting extraction", logging.Fields{
		"textgrids": len(paths),
		"workers":   o.Workers(),
		"output":    job.OutputPath(),
	})

	p := pool.NewWithResults[*FileResult]().WithMaxGoroutines(o.Workers())
	for _, path := range paths {
		p.Go(func() *FileResult {
			res := o.engine.ProcessFile(ctx, job.Lang, path, job.SoundDir())
			if o.OnFileDone != nil {
				o.OnFileDone(res)
			}
			return res
		})
	}
	results := p.Wait()

	summary := &Summary{
		RunID:      runID,
		Lang:       job.Lang,
		Version:    job.Version,
		OutputPath: job.OutputPath(),
		Files:      len(results),
		StartTime:  startTime,
	}

	var tokens []Token
	for _, res := range results {
		switch {
		case res.Error != nil:
			summary.FileErrors++
		case res.Skipped:
			summary.SkippedFiles++
		}
		summary.Processed += res.Processed
		summary.Failed += res.Failed
		tokens = append(tokens, res.Tokens...)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extraction cancelled: %w", err)
	}

	SortTokens(tokens)
	summary.Tokens = len(tokens)
	summary.VowelStats = o.metrics.VowelStats(tokens)

	if len(tokens) > 0 {
		if err := Table(tokens).WriteCSV(job.OutputPath()); err != nil {
			return nil, fmt.Errorf("failed to write extraction results: %w", err)
		}
		summary.Written = true
		logger.Info("Results saved", logging.Fields{"output": job.OutputPath(), "rows": len(tokens)})
	} else {
		logger.Warn("No valid results to save")
	}

	summary.EndTime = time.Now()
	summary.Runtime = summary.EndTime.Sub(startTime)

	logger.Info("Extraction completed", logging.Fields{
		"processed":     summary.Processed,
		"failed":        summary.Failed,
		"file_errors":   summary.FileErrors,
		"skipped_files": summary.SkippedFiles,
		"runtime":       FormatRuntime(summary.Runtime),
	})

	return summary, nil
}

// SortTokens orders tokens by file id, then segment interval.
func SortTokens(tokens []Token) {
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].FileID != tokens[j].FileID {
			return tokens[i].FileID < tokens[j].FileID
		}
		return tokens[i].SegIntv < tokens[j].SegIntv
	})
}
