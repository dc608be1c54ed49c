package inventory

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const htmlDoc = `<html><body>
<h1>German</h1>
<p>Vowel count: 7</p>
<h4>Consonants frequency:</h4>
<p>	t: 400<br>
</p>
<h4>Vowels frequency:</h4>
<p>	a: 120<br>
	ə: 80<br>
	iː: 50<br>
</p>
</body></html>`

const textDoc = `LANGUAGE: fr

Total phonemes count: 9

Total vowels: {'a': 3, 'ɔ̃': 2, 'u': 1}

Vowel count: 3

Total consonants: {'p': 3}
`

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Full ")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	_, err = ParseMode("partial")
	assert.Error(t, err)
}

func TestParseHTML(t *testing.T) {
	vowels, count, err := ParseHTML(strings.NewReader(htmlDoc))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "ə", "iː"}, vowels)
	assert.Equal(t, 7, count)

	_, _, err = ParseHTML(strings.NewReader("<p>nothing here</p>"))
	assert.Error(t, err)
}

func TestParseHTMLWithoutCount(t *testing.T) {
	doc := "<h4>Vowels frequency:</h4><p>\ti: 2<br>\n\tu: 1<br>\n</p>"
	vowels, count, err := ParseHTML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"i", "u"}, vowels)
	assert.Equal(t, 2, count)
}

func TestParseText(t *testing.T) {
	vowels, ok := ParseText(textDoc)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "ɔ̃", "u"}, vowels)

	_, ok = ParseText("Vowel count: 3")
	assert.False(t, ok)
}

func TestMatchesLanguage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"de.html", true},
		{"de_overview.html", true},
		{"de-doc.html", true},
		{"del.html", false},
		{"de.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesLanguage(tt.name, "de", ".html"))
		})
	}
}

func TestDocumentationModes(t *testing.T) {
	doc := &Documentation{Vowels: []string{"a", "aː", "ə", "iː"}, Count: 9}
	assert.Equal(t, 9, doc.Number(ModeFull))
	assert.Equal(t, 3, doc.Number(ModeBase))
	assert.Equal(t, []string{"a", "ə", "i"}, doc.Inventory(ModeBase))
	assert.Equal(t, 1, doc.HasSchwa())

	doc.Vowels = []string{"a", "i"}
	assert.Equal(t, -1, doc.HasSchwa())
}

func TestSDTable(t *testing.T) {
	tbl := dataset.NewTable("lang_code", "speaker_id", "seg", "F1", "F2")
	tbl.Append([]string{"DE", "s2", "a", "650", "1250"})
	tbl.Append([]string{"DE", "s2", "a", "660", "1260"})
	tbl.Append([]string{"DE", "s1", "u", "300", "800"})
	tbl.Append([]string{"DE", "s1", "u", "310", "820"})
	tbl.Append([]string{"DE", "s1", "i", "280", "2300"})
	tbl.Append([]string{"DE", "s1", "a", "700", "1300"})
	tbl.Append([]string{"DE", "s1", "a", "710", "1320"})

	out, err := SDTable(tbl, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, StdColumns, out.Header)
	require.Equal(t, 4, out.Len())

	speakers, _ := out.Strings("speaker_id")
	vowels, _ := out.Strings("vowel")
	assert.Equal(t, []string{"de_s1", "de_s1", "de_s1", "de_s2"}, speakers)
	assert.Equal(t, []string{"a", "i", "u", "a"}, vowels)

	assert.InDelta(t, math.Sqrt(50), out.Float(0, "F1_std"), 1e-9)
	assert.InDelta(t, math.Sqrt(200), out.Float(0, "F2_std"), 1e-9)
	assert.True(t, math.IsNaN(out.Float(1, "F1_std")), "single token has no SD")

	assert.Equal(t, "de", out.Value(0, "language"))
	assert.Equal(t, "7", out.Value(0, "number_of_vowels"))
	assert.Equal(t, "1", out.Value(0, "has_schwa"))
	assert.Equal(t, []string{"-1", "-1"}, []string{out.Value(0, "vowel_contrast1"), out.Value(0, "vowel_contrast2")})
	assert.Equal(t, []string{"1", "0"}, []string{out.Value(1, "vowel_contrast1"), out.Value(1, "vowel_contrast2")})
	assert.Equal(t, []string{"0", "1"}, []string{out.Value(2, "vowel_contrast1"), out.Value(2, "vowel_contrast2")})
}

func TestSDTableMissingColumn(t *testing.T) {
	_, err := SDTable(dataset.NewTable("seg"), 5, -1)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "de_v1_dur_f0_formants_std.csv", StdName("de_v1_dur_f0_formants_filtered.csv"))
	assert.Equal(t, "de_v1_dur_f0_formants.csv", RawName("de_v1_dur_f0_formants_filtered.csv"))
	assert.Equal(t, "vowel_inventory_summary_base_inventory.csv", SummaryName(ModeBase))
}

func TestSummarizeSpeakers(t *testing.T) {
	s := SummarizeSpeakers([]LanguageStats{
		{Language: "de", Speakers: 4, Vowels: []string{"a", "i", "u"}},
		{Language: "fr", Speakers: 10, Vowels: []string{"a", "i", "y"}},
		{Language: "it", Speakers: 4, Vowels: []string{"a"}},
		{Language: "ja", Speakers: 6, Vowels: []string{"a", "ɯ"}},
	})
	assert.Equal(t, 4, s.Languages)
	assert.Equal(t, "fr", s.Max.Language)
	assert.Equal(t, "de", s.Min.Language)
	assert.Equal(t, 5.0, s.Median)
	assert.Equal(t, 6.0, s.Mean)
	assert.Equal(t, 4, s.Vowels["a"])
	assert.Equal(t, 1, s.Vowels["ɯ"])

	empty := SummarizeSpeakers(nil)
	assert.Equal(t, 0, empty.Languages)
}

func TestCompleteSummary(t *testing.T) {
	base := dataset.NewTable(SummaryColumns(ModeBase)...)
	base.Append([]string{"fr", "a, i, u", "3", "-1"})
	base.Append([]string{"DE", "a, i, ə", "3", "1"})
	base.Append([]string{"it", "a, e", "2", "-1"})
	full := dataset.NewTable(SummaryColumns(ModeFull)...)
	full.Append([]string{"de", "a, iː, ə", "7", "1"})
	full.Append([]string{"fr", "a, u, ɔ̃", "3", "-1"})

	out, err := CompleteSummary(base, full, []LanguageStats{
		{Language: "fr", Speakers: 2, Vowels: []string{"a", "i", "u"}},
		{Language: "de", Speakers: 5, Vowels: []string{"a", "iː", "u"}},
	})
	require.NoError(t, err)
	assert.Equal(t, CompleteColumns, out.Header)
	require.Equal(t, 2, out.Len(), "it has no speakers")

	assert.Equal(t, []string{"de", "a, i, ə", "3", "a, iː, ə", "7", "1", "5", "a, iː, u"}, out.Rows[0])
	assert.Equal(t, []string{"fr", "a, i, u", "3", "a, u, ɔ̃", "3", "-1", "2", "a, i, u"}, out.Rows[1])

	_, err = CompleteSummary(dataset.NewTable("language"), full, nil)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

// InventorySuite runs the builder over a small on-disk corpus.
type InventorySuite struct {
	suite.Suite
	dir      string
	filtered string
	docs     string
	raw      string
}

func (s *InventorySuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.filtered = filepath.Join(s.dir, "filtered")
	s.docs = filepath.Join(s.dir, "docs")
	s.raw = filepath.Join(s.dir, "raw")
	for _, d := range []string{s.filtered, s.docs, s.raw} {
		s.Require().NoError(os.MkdirAll(d, 0o755))
	}

	s.writeFiltered("de", 12)
	s.writeFiltered("fr", 12)
	s.writeFiltered("it", 2)
	s.writeFiltered("xx", 2)

	s.Require().NoError(os.WriteFile(filepath.Join(s.docs, "de.html"), []byte(htmlDoc), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(s.docs, "fr_overview.txt"), []byte(textDoc), 0o644))

	raw := dataset.NewTable("lang_code", "seg")
	for _, seg := range []string{"o", "a", "e", "a", "ɛ"} {
		raw.Append([]string{"it", seg})
	}
	s.Require().NoError(raw.WriteCSV(filepath.Join(s.raw, "it_v1_dur_f0_formants.csv")))
}

// writeFiltered writes a filtered table with n speakers and two tokens of
// each corner vowel per speaker.
func (s *InventorySuite) writeFiltered(lang string, n int) {
	tbl := dataset.NewTable("lang_code", "file_id", "seg", "F1", "F2", "speaker_id")
	for spk := 0; spk < n; spk++ {
		id := string(rune('a'+spk%26)) + "spk"
		for _, v := range []struct {
			seg    string
			f1, f2 float64
		}{{"a", 700, 1300}, {"i", 300, 2300}, {"u", 320, 800}} {
			for k := 0; k < 2; k++ {
				tbl.Append([]string{
					lang, "f", v.seg,
					dataset.FormatFloat(v.f1 + float64(k*10)),
					dataset.FormatFloat(v.f2 + float64(k*20)),
					id,
				})
			}
		}
	}
	s.Require().NoError(tbl.WriteCSV(filepath.Join(s.filtered, lang+"_v1_dur_f0_formants_filtered.csv")))
}

func (s *InventorySuite) run(mode Mode) []*LanguageResult {
	b := NewBuilder(&Config{Mode: mode, DocsDir: s.docs, RawDir: s.raw})
	results, err := b.Run(context.Background(), s.filtered, filepath.Join(s.dir, "std_"+string(mode)))
	s.Require().NoError(err)
	s.Require().Len(results, 4)
	return results
}

func (s *InventorySuite) TestFullMode() {
	results := s.run(ModeFull)

	de, fr, it, xx := results[0], results[1], results[2], results[3]
	s.Require().NoError(de.Error)
	s.Equal(SourceHTML, de.Doc.Source)
	s.Equal(36, de.Rows)
	s.Equal(12, de.Speakers)

	s.Require().NoError(fr.Error)
	s.Equal(SourceText, fr.Doc.Source)

	s.Require().NoError(it.Error)
	s.Equal(SourceRaw, it.Doc.Source)
	s.Equal([]string{"a", "e", "o", "ɛ"}, it.Doc.Vowels)

	s.ErrorIs(xx.Error, ErrNoDocumentation)

	std, err := dataset.ReadCSV(de.Output)
	s.Require().NoError(err)
	s.Equal("7", std.Value(0, "number_of_vowels"))
	s.Equal("1", std.Value(0, "has_schwa"))
	s.Equal("aspk", strings.TrimPrefix(std.Value(0, "speaker_id"), "de_"))
	s.InDelta(math.Sqrt(50), std.Float(0, "F1_std"), 1e-9)

	summary := Summary(ModeFull, results)
	s.Equal(SummaryColumns(ModeFull), summary.Header)
	s.Equal(3, summary.Len())
	s.Equal([]string{"de", "a, iː, ə", "7", "1"}, summary.Rows[0])
	s.Equal([]string{"fr", "a, u, ɔ̃", "3", "-1"}, summary.Rows[1])
	s.Equal([]string{"it", "a, e, o, ɛ", "4", "-1"}, summary.Rows[2])
}

func (s *InventorySuite) TestBaseModeAndComplete() {
	base := Summary(ModeBase, s.run(ModeBase))
	full := Summary(ModeFull, s.run(ModeFull))
	s.Equal([]string{"de", "a, i, ə", "3", "1"}, base.Rows[0])

	tables, err := LoadStdTables(filepath.Join(s.dir, "std_full"), 20)
	s.Require().NoError(err)
	s.Len(tables, 2, "it has only six rows")

	langs, err := CollectLanguageStats(tables)
	s.Require().NoError(err)
	s.Equal([]string{"de", "fr"}, []string{langs[0].Language, langs[1].Language})
	s.Equal([]string{"a", "i", "u"}, langs[0].Vowels)

	complete, err := CompleteSummary(base, full, langs)
	s.Require().NoError(err)
	s.Equal(2, complete.Len())
	s.Equal("12", complete.Value(0, "number_of_speakers"))
}

func (s *InventorySuite) TestCountStudied() {
	counts, err := CountStudied(s.filtered)
	s.Require().NoError(err)
	s.Equal(4, counts.Files)
	s.Equal(6*(12+12+2+2), counts.Rows)
	s.Equal(2*(12+12+2+2), counts.A)
	s.Equal(counts.Rows, counts.Total())
}

func TestInventorySuite(t *testing.T) {
	suite.Run(t, new(InventorySuite))
}
