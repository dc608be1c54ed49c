package inventory

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/RyanBlaney/vowelspace/internal/stats"
	"github.com/RyanBlaney/vowelspace/pkg/ipa"
)

// StdColumns is the header of an SD table.
var StdColumns = []string{
	"speaker_id", "language", "vowel", "number_of_vowels", "F1_std", "F2_std",
	"has_schwa", "vowel_contrast1", "vowel_contrast2",
}

// Config configures an SD table run.
type Config struct {
	Mode    Mode
	DocsDir string
	// RawDir holds the unfiltered extraction CSVs used when a language has
	// no documentation.
	RawDir string
	Logger logging.Logger
}

// LanguageResult describes one filtered file turned into an SD table.
type LanguageResult struct {
	File     string         `json:"file"`
	Language string         `json:"language"`
	Output   string         `json:"output,omitempty"`
	Doc      *Documentation `json:"documentation,omitempty"`
	Rows     int            `json:"rows"`
	Speakers int            `json:"speakers"`
	Error    error          `json:"error,omitempty"`
}

// Builder writes SD tables and the inventory summary of one mode.
type Builder struct {
	cfg    *Config
	logger logging.Logger
}

// NewBuilder creates a builder.
func NewBuilder(cfg *Config) *Builder {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Builder{cfg: cfg, logger: logger}
}

// StdName maps a filtered file name to its SD table name.
func StdName(name string) string {
	stem := strings.TrimSuffix(name, ".csv")
	stem = strings.TrimSuffix(stem, "_filtered")
	return stem + "_std.csv"
}

// RawName maps a filtered file name back to the extraction file it came from.
func RawName(name string) string {
	return strings.Replace(name, "_filtered.csv", ".csv", 1)
}

// Run builds an SD table for every .csv in filteredDir and returns the
// per-language results in file order.
func (b *Builder) Run(ctx context.Context, filteredDir, outputDir string) ([]*LanguageResult, error) {
	entries, err := os.ReadDir(filteredDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list filtered directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var results []*LanguageResult
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := b.BuildFile(filepath.Join(filteredDir, e.Name()), outputDir)
		if err != nil {
			b.logger.Error(err, "Failed to build SD table", logging.Fields{"file": e.Name()})
			res = &LanguageResult{File: e.Name(), Error: err}
		}
		results = append(results, res)
	}
	return results, nil
}

// BuildFile builds and writes the SD table of one filtered file.
func (b *Builder) BuildFile(path, outputDir string) (*LanguageResult, error) {
	name := filepath.Base(path)
	lang, _, _ := strings.Cut(name, "_")
	res := &LanguageResult{File: name, Language: strings.ToLower(lang)}

	tbl, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, err
	}

	raw := ""
	if b.cfg.RawDir != "" {
		raw = filepath.Join(b.cfg.RawDir, RawName(name))
	}
	doc, err := FindDocumentation(b.cfg.DocsDir, lang, raw)
	if err != nil {
		return nil, err
	}
	res.Doc = doc

	std, err := SDTable(tbl, doc.Number(b.cfg.Mode), doc.HasSchwa())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	res.Rows = std.Len()
	speakers, _ := std.Unique("speaker_id")
	res.Speakers = len(speakers)

	res.Output = filepath.Join(outputDir, StdName(name))
	if err := std.WriteCSV(res.Output); err != nil {
		return nil, err
	}

	b.logger.Info("SD table written", logging.Fields{
		"language":  res.Language,
		"source":    string(doc.Source),
		"mode":      string(b.cfg.Mode),
		"vowels":    doc.Number(b.cfg.Mode),
		"has_schwa": doc.HasSchwa(),
		"rows":      res.Rows,
		"speakers":  res.Speakers,
	})
	return res, nil
}

type speakerVowel struct {
	speaker string
	vowel   string
}

// SDTable groups a filtered table by (language-qualified speaker, vowel) and
// computes the sample SD of F1 and F2. Rows are ordered by speaker, then
// a/i/u priority.
func SDTable(filtered *dataset.Table, numberOfVowels, hasSchwa int) (*dataset.Table, error) {
	if err := filtered.Require("lang_code", "speaker_id", "seg", "F1", "F2"); err != nil {
		return nil, err
	}

	f1s := make(map[speakerVowel][]float64)
	f2s := make(map[speakerVowel][]float64)
	langs := make(map[speakerVowel]string)
	var keys []speakerVowel
	for i := range filtered.Rows {
		lang := strings.ToLower(filtered.Value(i, "lang_code"))
		speaker := filtered.Value(i, "speaker_id")
		seg := filtered.Value(i, "seg")
		if speaker == "" || seg == "" {
			continue
		}
		k := speakerVowel{lang + "_" + speaker, seg}
		if _, ok := langs[k]; !ok {
			langs[k] = lang
			keys = append(keys, k)
		}
		if v := filtered.Float(i, "F1"); !math.IsNaN(v) {
			f1s[k] = append(f1s[k], v)
		}
		if v := filtered.Float(i, "F2"); !math.IsNaN(v) {
			f2s[k] = append(f2s[k], v)
		}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].speaker != keys[j].speaker {
			return keys[i].speaker < keys[j].speaker
		}
		pi, pj := ipa.ClassOf(keys[i].vowel).Priority(), ipa.ClassOf(keys[j].vowel).Priority()
		if pi != pj {
			return pi < pj
		}
		return keys[i].vowel < keys[j].vowel
	})

	out := dataset.NewTable(StdColumns...)
	nv := strconv.Itoa(numberOfVowels)
	schwa := strconv.Itoa(hasSchwa)
	for _, k := range keys {
		_, sd1 := stats.MeanSD(f1s[k])
		_, sd2 := stats.MeanSD(f2s[k])
		c1, c2 := "NaN", "NaN"
		if a, b, ok := ipa.ClassOf(k.vowel).Contrasts(); ok {
			c1, c2 = strconv.Itoa(a), strconv.Itoa(b)
		}
		out.Append([]string{
			k.speaker, langs[k], k.vowel, nv,
			dataset.FormatFloat(sd1), dataset.FormatFloat(sd2),
			schwa, c1, c2,
		})
	}
	return out, nil
}
