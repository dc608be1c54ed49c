package filter

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/RyanBlaney/vowelspace/pkg/ipa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		MinSegmentDuration:   50 * time.Millisecond,
		MinUtteranceDuration: 500 * time.Millisecond,
		MinSpeakerTokens:     5,
		SDMultiplier:         2.5,
		MinTokensPerVowel:    2,
		MinSimilarity:        0.3,
	}
}

type row struct {
	file, seg      string
	segDur, uttDur int
	f1, f2         float64
}

func buildTable(rows []row) *dataset.Table {
	tbl := dataset.NewTable("file_id", "seg", "seg_dur", "utt_dur", "F1", "F2")
	for _, r := range rows {
		tbl.Append([]string{
			r.file, r.seg, strconv.Itoa(r.segDur), strconv.Itoa(r.uttDur),
			dataset.FormatFloat(r.f1), dataset.FormatFloat(r.f2),
		})
	}
	return tbl
}

func spread(file, seg string, n int, f1, f2 float64) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{file, seg, 80, 1200, f1 + float64(i)*10, f2 + float64(i)*10}
	}
	return out
}

func fixtureRows() []row {
	var rows []row
	// f1 / spk1: balanced and clean
	rows = append(rows, spread("f1", "a", 3, 700, 1300)...)
	rows = append(rows, spread("f1", "i", 3, 300, 2300)...)
	rows = append(rows, spread("f1", "u", 3, 320, 800)...)
	rows = append(rows,
		row{"f1", "aː", 80, 1200, 720, 1250},
		row{"f1", "e", 80, 1200, 450, 2000},
		row{"f1", "a", 40, 1200, 700, 1300},
		row{"f1", "i", 80, 400, 300, 2300},
	)
	// f2 / spk2: a single u
	rows = append(rows, spread("f2", "a", 3, 750, 1350)...)
	rows = append(rows, spread("f2", "i", 3, 280, 2400)...)
	rows = append(rows, spread("f2", "u", 1, 330, 850)...)
	// f3 / spk3: too few tokens
	rows = append(rows, spread("f3", "a", 1, 700, 1300)...)
	rows = append(rows, spread("f3", "i", 1, 300, 2300)...)
	// f4: unknown speaker
	rows = append(rows, spread("f4", "a", 1, 700, 1300)...)
	return rows
}

var fixtureSpeakers = map[string]string{"f1": "spk1", "f2": "spk2", "f3": "spk3"}

func TestFilterTable(t *testing.T) {
	f, err := New(testConfig())
	require.NoError(t, err)

	out, report, err := f.FilterTable(buildTable(fixtureRows()), fixtureSpeakers)
	require.NoError(t, err)

	assert.Equal(t, map[ipa.Class]string{ipa.ClassA: "a", ipa.ClassI: "i", ipa.ClassU: "u"}, report.MostFrequent)
	assert.Equal(t, 23, report.Original)
	assert.Equal(t, 21, report.AIU)
	assert.Equal(t, 20, report.SegDuration)
	assert.Equal(t, 19, report.UttDuration)
	assert.Equal(t, 16, report.Speaker)
	assert.Equal(t, 9, report.Outlier)
	assert.Equal(t, 9, report.Similarity)
	assert.Equal(t, 1, report.Speakers)

	assert.Equal(t, "speaker_id", out.Header[len(out.Header)-1])
	speakers, err := out.Unique(SpeakerColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"spk1"}, speakers)
}

func TestFilterTableMissingClass(t *testing.T) {
	f, err := New(testConfig())
	require.NoError(t, err)

	var rows []row
	rows = append(rows, spread("f1", "a", 4, 700, 1300)...)
	rows = append(rows, spread("f1", "i", 4, 300, 2300)...)

	out, report, err := f.FilterTable(buildTable(rows), fixtureSpeakers)
	require.NoError(t, err)
	assert.NotContains(t, report.MostFrequent, ipa.ClassU)
	assert.Equal(t, 8, report.Speaker)
	assert.Equal(t, 0, out.Len(), "no u vowel disqualifies every speaker")
}

func TestFilterTableMissingColumn(t *testing.T) {
	f, err := New(testConfig())
	require.NoError(t, err)

	_, _, err = f.FilterTable(dataset.NewTable("seg"), nil)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestRemoveOutliers(t *testing.T) {
	f, err := New(testConfig())
	require.NoError(t, err)

	tbl := dataset.NewTable("seg", SpeakerColumn, "F1", "F2")
	for i := 0; i < 9; i++ {
		tbl.Append([]string{"a", "s", "500", dataset.FormatFloat(1500 + float64(i%2))})
	}
	tbl.Append([]string{"a", "s", "5000", "1500"})
	tbl.Append([]string{"i", "lonely", "300", "2300"})

	out := f.removeOutliers(tbl)
	assert.Equal(t, 9, out.Len())
	for i := range out.Rows {
		assert.Equal(t, "500", out.Value(i, "F1"))
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "de_v1_dur_f0_formants_filtered.csv", OutputName("de_v1_dur_f0_formants.csv"))
	assert.Equal(t, "de", LanguagePrefix("de_v1_dur_f0_formants.csv"))
	assert.Equal(t, "yue", LanguagePrefix("yue"))
}

func TestRunWithSimilarity(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	speakerDir := filepath.Join(dir, "speakers")
	output := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(input, 0o755))
	require.NoError(t, os.MkdirAll(speakerDir, 0o755))

	require.NoError(t, buildTable(fixtureRows()).WriteCSV(filepath.Join(input, "de_v1_dur_f0_formants.csv")))
	require.NoError(t, buildTable(fixtureRows()).WriteCSV(filepath.Join(input, "fr_v1_dur_f0_formants.csv")))
	require.NoError(t, os.WriteFile(filepath.Join(input, "README"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(speakerDir, "de_validated.tsv"),
		[]byte("path\tspeaker_id\nf1.mp3\tspk1\nf2.mp3\tspk2\nf3.mp3\tspk3\n"), 0o644))

	scores := filepath.Join(dir, "scores.txt")
	require.NoError(t, os.WriteFile(scores, []byte("f1.wav e 0.1\nf2.wav e 0.9\n"), 0o644))

	cfg := testConfig()
	cfg.SimilarityFile = scores
	f, err := New(cfg)
	require.NoError(t, err)

	reports, err := f.Run(context.Background(), input, speakerDir, output)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	de := reports[0]
	require.NoError(t, de.Error)
	assert.Equal(t, 9, de.Outlier)
	assert.Equal(t, 0, de.Similarity, "spk1 recordings score below the threshold")

	written, err := dataset.ReadCSV(filepath.Join(output, "de_v1_dur_f0_formants_filtered.csv"))
	require.NoError(t, err)
	assert.Equal(t, 0, written.Len())
	assert.Contains(t, written.Header, SpeakerColumn)

	assert.Error(t, reports[1].Error, "no speaker file for fr")
}

func TestNewInvalid(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)

	cfg := testConfig()
	cfg.SimilarityFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err = New(cfg)
	assert.Error(t, err)
}
