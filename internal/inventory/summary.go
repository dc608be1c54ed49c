package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/RyanBlaney/vowelspace/internal/stats"
	"github.com/RyanBlaney/vowelspace/pkg/ipa"
)

// SummaryName is the file name of the inventory summary of mode.
func SummaryName(mode Mode) string {
	return fmt.Sprintf("vowel_inventory_summary_%s_inventory.csv", mode)
}

// SummaryColumns returns the summary header of mode.
func SummaryColumns(mode Mode) []string {
	if mode == ModeFull {
		return []string{"language", "vowel_inventory_all_vowels", "number_of_vowels_all_vowels", "has_schwa"}
	}
	return []string{"language", "vowel_inventory", "number_of_vowels", "has_schwa"}
}

// Summary builds one row per language from the results of a run. A language
// seen twice keeps its first position and its last documentation.
func Summary(mode Mode, results []*LanguageResult) *dataset.Table {
	docs := make(map[string]*Documentation)
	var order []string
	for _, res := range results {
		if res.Error != nil || res.Doc == nil {
			continue
		}
		if _, ok := docs[res.Language]; !ok {
			order = append(order, res.Language)
		}
		docs[res.Language] = res.Doc
	}

	out := dataset.NewTable(SummaryColumns(mode)...)
	for _, lang := range order {
		doc := docs[lang]
		vowels := append([]string(nil), doc.Inventory(mode)...)
		sort.Strings(vowels)
		out.Append([]string{
			lang,
			strings.Join(vowels, ", "),
			strconv.Itoa(doc.Number(mode)),
			strconv.Itoa(doc.HasSchwa()),
		})
	}
	return out
}

// LanguageStats describes the SD table of one language.
type LanguageStats struct {
	Language string   `json:"language"`
	Speakers int      `json:"speakers"`
	Vowels   []string `json:"vowels"`
}

// LoadStdTables reads every SD table in dir with at least minRows rows, in
// file name order.
func LoadStdTables(dir string, minRows int) ([]*dataset.Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list SD directory: %w", err)
	}
	var tables []*dataset.Table
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		tbl, err := dataset.ReadCSV(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if tbl.Len() == 0 || tbl.Len() < minRows {
			continue
		}
		tables = append(tables, tbl)
	}
	return tables, nil
}

// CollectLanguageStats counts speakers and studied vowels per SD table.
func CollectLanguageStats(tables []*dataset.Table) ([]LanguageStats, error) {
	out := make([]LanguageStats, 0, len(tables))
	for _, tbl := range tables {
		if err := tbl.Require("speaker_id", "language", "vowel"); err != nil {
			return nil, err
		}
		speakers, _ := tbl.Unique("speaker_id")
		vowels, _ := tbl.Unique("vowel")
		var studied []string
		for _, v := range vowels {
			if v != "" {
				studied = append(studied, v)
			}
		}
		sort.Strings(studied)
		out = append(out, LanguageStats{
			Language: strings.ToLower(tbl.Value(0, "language")),
			Speakers: len(speakers),
			Vowels:   studied,
		})
	}
	return out, nil
}

// SpeakerStats summarises the speaker counts across languages.
type SpeakerStats struct {
	Languages int            `json:"languages"`
	Max       LanguageStats  `json:"max"`
	Min       LanguageStats  `json:"min"`
	Median    float64        `json:"median"`
	Mean      float64        `json:"mean"`
	Vowels    map[string]int `json:"vowel_languages"`
}

// SummarizeSpeakers computes the speaker statistics. Ties for the maximum and
// minimum go to the first language.
func SummarizeSpeakers(langs []LanguageStats) *SpeakerStats {
	s := &SpeakerStats{Languages: len(langs), Vowels: make(map[string]int)}
	if len(langs) == 0 {
		return s
	}
	counts := make([]float64, len(langs))
	s.Max, s.Min = langs[0], langs[0]
	for i, l := range langs {
		counts[i] = float64(l.Speakers)
		if l.Speakers > s.Max.Speakers {
			s.Max = l
		}
		if l.Speakers < s.Min.Speakers {
			s.Min = l
		}
		for _, v := range l.Vowels {
			s.Vowels[v]++
		}
	}
	s.Median = stats.Median(counts)
	s.Mean, _ = stats.MeanSD(counts)
	return s
}

// CompleteColumns is the header of the complete inventory summary.
var CompleteColumns = []string{
	"language", "vowel_inventory", "number_of_vowels",
	"vowel_inventory_all_vowels", "number_of_vowels_all_vowels", "has_schwa",
	"number_of_speakers", "studied_vowels",
}

// CompleteSummary joins the base and full summaries on language, adds the
// speaker count and studied vowels of each language and drops languages
// without speakers. Rows are sorted by language.
func CompleteSummary(base, full *dataset.Table, langs []LanguageStats) (*dataset.Table, error) {
	if err := base.Require(SummaryColumns(ModeBase)...); err != nil {
		return nil, fmt.Errorf("base summary: %w", err)
	}
	if err := full.Require(SummaryColumns(ModeFull)...); err != nil {
		return nil, fmt.Errorf("full summary: %w", err)
	}

	fullRows := make(map[string]int, full.Len())
	for i := range full.Rows {
		lang := strings.ToLower(full.Value(i, "language"))
		if _, ok := fullRows[lang]; !ok {
			fullRows[lang] = i
		}
	}
	byLang := make(map[string]LanguageStats, len(langs))
	for _, l := range langs {
		byLang[l.Language] = l
	}

	out := dataset.NewTable(CompleteColumns...)
	for i := range base.Rows {
		lang := strings.ToLower(base.Value(i, "language"))
		ls, ok := byLang[lang]
		if !ok {
			continue
		}
		allVowels, allNumber, schwa := "", "", ""
		if j, ok := fullRows[lang]; ok {
			allVowels = full.Value(j, "vowel_inventory_all_vowels")
			allNumber = full.Value(j, "number_of_vowels_all_vowels")
			schwa = full.Value(j, "has_schwa")
		}
		out.Append([]string{
			lang,
			base.Value(i, "vowel_inventory"),
			base.Value(i, "number_of_vowels"),
			allVowels,
			allNumber,
			schwa,
			strconv.Itoa(ls.Speakers),
			strings.Join(ls.Vowels, ", "),
		})
	}
	sort.SliceStable(out.Rows, func(i, j int) bool { return out.Rows[i][0] < out.Rows[j][0] })
	return out, nil
}

// StudiedCounts totals the a/i/u tokens of the filtered tables.
type StudiedCounts struct {
	Files int `json:"files"`
	Rows  int `json:"rows"`
	A     int `json:"a"`
	I     int `json:"i"`
	U     int `json:"u"`
}

// Total is the number of studied vowel tokens.
func (c *StudiedCounts) Total() int {
	return c.A + c.I + c.U
}

// CountStudied counts rows and corner vowel tokens over every .csv in dir.
func CountStudied(dir string) (*StudiedCounts, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list filtered directory: %w", err)
	}
	counts := &StudiedCounts{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		tbl, err := dataset.ReadCSV(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		segs, err := tbl.Strings("seg")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		counts.Files++
		counts.Rows += len(segs)
		for _, seg := range segs {
			switch ipa.ClassOf(seg) {
			case ipa.ClassA:
				counts.A++
			case ipa.ClassI:
				counts.I++
			case ipa.ClassU:
				counts.U++
			}
		}
	}
	return counts, nil
}
