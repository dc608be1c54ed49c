// Package filter reduces extraction tables to the a/i/u tokens of speakers
// with enough clean data.
package filter

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/RyanBlaney/vowelspace/internal/stats"
	"github.com/RyanBlaney/vowelspace/pkg/ipa"
)

// SpeakerColumn is added to every filtered table.
const SpeakerColumn = "speaker_id"

// Config holds the filtering thresholds.
type Config struct {
	MinSegmentDuration   time.Duration
	MinUtteranceDuration time.Duration
	// Speakers need strictly more tokens than this after the duration filters.
	MinSpeakerTokens  int
	SDMultiplier      float64
	MinTokensPerVowel int
	SimilarityFile    string
	MinSimilarity     float64
	Logger            logging.Logger
}

// Validate checks the thresholds.
func (c *Config) Validate() error {
	if c.SDMultiplier <= 0 {
		return fmt.Errorf("SD multiplier must be positive")
	}
	if c.MinTokensPerVowel < 0 || c.MinSpeakerTokens < 0 {
		return fmt.Errorf("token thresholds must not be negative")
	}
	return nil
}

// Report counts the rows surviving each stage of one file.
type Report struct {
	File         string               `json:"file"`
	Output       string               `json:"output,omitempty"`
	MostFrequent map[ipa.Class]string `json:"most_frequent"`
	Original     int                  `json:"original"`
	AIU          int                  `json:"aiu"`
	SegDuration  int                  `json:"segment_duration"`
	UttDuration  int                  `json:"utterance_duration"`
	Speaker      int                  `json:"speaker"`
	Outlier      int                  `json:"outlier"`
	Similarity   int                  `json:"similarity"`
	Speakers     int                  `json:"speakers"`
	Error        error                `json:"error,omitempty"`
}

// Filter applies the filtering pipeline.
type Filter struct {
	cfg     *Config
	logger  logging.Logger
	similar map[string]struct{}
}

// New creates a filter, loading the similarity scores when configured.
func New(cfg *Config) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	f := &Filter{cfg: cfg, logger: logger}
	if cfg.SimilarityFile != "" {
		scores, err := dataset.LoadSimilarityScores(cfg.SimilarityFile)
		if err != nil {
			return nil, err
		}
		f.similar = dataset.FilesAbove(scores, cfg.MinSimilarity)
		logger.Debug("Loaded similarity scores", logging.Fields{
			"scores":      len(scores),
			"valid_files": len(f.similar),
		})
	}
	return f, nil
}

// OutputName maps an extraction file name to its filtered name.
func OutputName(name string) string {
	return strings.ReplaceAll(name, ".csv", "_filtered.csv")
}

// LanguagePrefix is the part of a file name before the first underscore.
func LanguagePrefix(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	return prefix
}

// Run filters every .csv in inputDir. A failing file is reported and the run
// continues.
func (f *Filter) Run(ctx context.Context, inputDir, speakerDir, outputDir string) ([]*Report, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list input directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	reports := make([]*Report, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := f.FilterFile(filepath.Join(inputDir, name), speakerDir, outputDir)
		if err != nil {
			f.logger.Error(err, "Failed to filter file", logging.Fields{"file": name})
			report = &Report{File: name, Error: err}
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// FilterFile filters one extraction CSV and writes <name>_filtered.csv to
// outputDir.
func (f *Filter) FilterFile(inputPath, speakerDir, outputDir string) (*Report, error) {
	name := filepath.Base(inputPath)
	tbl, err := dataset.ReadCSV(inputPath)
	if err != nil {
		return nil, err
	}

	speakerFile, err := dataset.FindSpeakerFile(speakerDir, LanguagePrefix(name))
	if err != nil {
		return nil, err
	}
	speakers, err := dataset.LoadSpeakers(speakerFile)
	if err != nil {
		return nil, err
	}

	out, report, err := f.FilterTable(tbl, speakers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	report.File = name
	report.Output = filepath.Join(outputDir, OutputName(name))
	if err := out.WriteCSV(report.Output); err != nil {
		return nil, err
	}

	f.logger.Info("Filtered file created", logging.Fields{
		"file":     name,
		"output":   report.Output,
		"original": report.Original,
		"kept":     report.Similarity,
		"speakers": report.Speakers,
	})
	return report, nil
}

// FilterTable runs the pipeline over an extraction table. speakers maps file
// ids to speaker ids.
func (f *Filter) FilterTable(tbl *dataset.Table, speakers map[string]string) (*dataset.Table, *Report, error) {
	if err := tbl.Require("seg", "seg_dur", "utt_dur", "file_id", "F1", "F2"); err != nil {
		return nil, nil, err
	}
	report := &Report{Original: tbl.Len(), MostFrequent: make(map[ipa.Class]string)}

	// most frequent variant of each class
	counts := make(map[string]int)
	for i := range tbl.Rows {
		counts[tbl.Value(i, "seg")]++
	}
	keep := make(map[string]struct{}, 3)
	for _, class := range ipa.Classes {
		if v, ok := class.MostFrequent(counts); ok {
			report.MostFrequent[class] = v
			keep[v] = struct{}{}
		}
	}
	cur := tbl.Filter(func(i int, _ []string) bool {
		_, ok := keep[tbl.Value(i, "seg")]
		return ok
	})
	report.AIU = cur.Len()

	minSeg := float64(f.cfg.MinSegmentDuration.Milliseconds())
	cur = filterFloat(cur, "seg_dur", func(v float64) bool { return v >= minSeg })
	report.SegDuration = cur.Len()

	minUtt := float64(f.cfg.MinUtteranceDuration.Milliseconds())
	cur = filterFloat(cur, "utt_dur", func(v float64) bool { return v >= minUtt })
	report.UttDuration = cur.Len()

	cur, err := f.attachSpeakers(cur, speakers)
	if err != nil {
		return nil, nil, err
	}
	report.Speaker = cur.Len()

	cur = f.removeOutliers(cur)
	cur = f.keepBalancedSpeakers(cur, report.MostFrequent)
	report.Outlier = cur.Len()

	if f.similar != nil {
		cur = cur.Filter(func(i int, _ []string) bool {
			_, ok := f.similar[cur.Value(i, "file_id")]
			return ok
		})
	}
	report.Similarity = cur.Len()

	distinct, _ := cur.Unique(SpeakerColumn)
	report.Speakers = len(distinct)

	f.logger.Debug("Filter stages", logging.Fields{
		"original":   report.Original,
		"aiu":        report.AIU,
		"seg_dur":    report.SegDuration,
		"utt_dur":    report.UttDuration,
		"speaker":    report.Speaker,
		"outlier":    report.Outlier,
		"similarity": report.Similarity,
	})

	return cur, report, nil
}

func filterFloat(tbl *dataset.Table, col string, keep func(float64) bool) *dataset.Table {
	return tbl.Filter(func(i int, _ []string) bool {
		return keep(tbl.Float(i, col))
	})
}

// attachSpeakers adds the speaker column and keeps speakers with more than
// MinSpeakerTokens rows. Rows without a known speaker are dropped.
func (f *Filter) attachSpeakers(tbl *dataset.Table, speakers map[string]string) (*dataset.Table, error) {
	ids := make([]string, tbl.Len())
	tokens := make(map[string]int)
	for i := range tbl.Rows {
		id := speakers[tbl.Value(i, "file_id")]
		ids[i] = id
		if id != "" {
			tokens[id]++
		}
	}

	base := tbl.Drop(SpeakerColumn)
	if err := base.AddColumn(SpeakerColumn, ids); err != nil {
		return nil, err
	}
	return base.Filter(func(i int, _ []string) bool {
		id := ids[i]
		return id != "" && tokens[id] > f.cfg.MinSpeakerTokens
	}), nil
}

type groupKey struct {
	seg     string
	speaker string
}

type bounds struct {
	f1Lo, f1Hi float64
	f2Lo, f2Hi float64
}

// removeOutliers keeps rows whose F1 and F2 lie strictly inside
// mean ± SDMultiplier·SD of their (vowel, speaker) group. Groups with an
// undefined SD lose all rows.
func (f *Filter) removeOutliers(tbl *dataset.Table) *dataset.Table {
	f1s := make(map[groupKey][]float64)
	f2s := make(map[groupKey][]float64)
	for i := range tbl.Rows {
		k := groupKey{tbl.Value(i, "seg"), tbl.Value(i, SpeakerColumn)}
		if v := tbl.Float(i, "F1"); !math.IsNaN(v) {
			f1s[k] = append(f1s[k], v)
		}
		if v := tbl.Float(i, "F2"); !math.IsNaN(v) {
			f2s[k] = append(f2s[k], v)
		}
	}

	limits := make(map[groupKey]bounds, len(f1s))
	m := f.cfg.SDMultiplier
	for k := range f1s {
		m1, s1 := stats.MeanSD(f1s[k])
		m2, s2 := stats.MeanSD(f2s[k])
		limits[k] = bounds{m1 - m*s1, m1 + m*s1, m2 - m*s2, m2 + m*s2}
	}

	return tbl.Filter(func(i int, _ []string) bool {
		b, ok := limits[groupKey{tbl.Value(i, "seg"), tbl.Value(i, SpeakerColumn)}]
		if !ok {
			return false
		}
		f1, f2 := tbl.Float(i, "F1"), tbl.Float(i, "F2")
		return f1 > b.f1Lo && f1 < b.f1Hi && f2 > b.f2Lo && f2 < b.f2Hi
	})
}

// keepBalancedSpeakers keeps speakers with at least MinTokensPerVowel tokens
// of every class vowel. A class without a vowel disqualifies everyone.
func (f *Filter) keepBalancedSpeakers(tbl *dataset.Table, vowels map[ipa.Class]string) *dataset.Table {
	if len(vowels) < len(ipa.Classes) {
		return tbl.Filter(func(int, []string) bool { return false })
	}

	counts := make(map[groupKey]int)
	for i := range tbl.Rows {
		counts[groupKey{tbl.Value(i, "seg"), tbl.Value(i, SpeakerColumn)}]++
	}

	qualified := make(map[string]bool)
	for i := range tbl.Rows {
		speaker := tbl.Value(i, SpeakerColumn)
		if _, seen := qualified[speaker]; seen {
			continue
		}
		ok := true
		for _, class := range ipa.Classes {
			if counts[groupKey{vowels[class], speaker}] < f.cfg.MinTokensPerVowel {
				ok = false
				break
			}
		}
		qualified[speaker] = ok
	}

	return tbl.Filter(func(i int, _ []string) bool {
		return qualified[tbl.Value(i, SpeakerColumn)]
	})
}
