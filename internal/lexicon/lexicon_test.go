package lexicon

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLexicon = "papa\tp a p a\n" +
	"ʃi\tʃ i\n" +
	"broken\n" +
	"ABC\tA B C\n" +
	"pi\tp i\n"

func TestCount(t *testing.T) {
	counts, err := Count(strings.NewReader(testLexicon))
	require.NoError(t, err)

	assert.Equal(t, Counts{
		{"p", 3}, {"a", 2}, {"ʃ", 1}, {"i", 2},
	}, counts)
	assert.Equal(t, 8, counts.Total())
}

func TestCountsString(t *testing.T) {
	assert.Equal(t, "{}", Counts(nil).String())
	assert.Equal(t, "{'a': 3, 'p': 1}", Counts{{"a", 3}, {"p", 1}}.String())
	assert.Equal(t, `{"ʔ'": 1}`, Counts{{"ʔ'", 1}}.String())
}

func TestByFrequencyIsStable(t *testing.T) {
	c := Counts{{"b", 1}, {"a", 2}, {"c", 1}, {"d", 2}}
	assert.Equal(t, []string{"a", "d", "b", "c"}, c.ByFrequency().Phones())
	assert.Equal(t, []string{"b", "a", "c", "d"}, c.Phones(), "original order untouched")
}

func TestSplit(t *testing.T) {
	counts, err := Count(strings.NewReader(testLexicon))
	require.NoError(t, err)

	inv := Split("xx", counts)
	assert.Equal(t, []string{"a", "i"}, inv.Vowels.Phones())
	assert.Equal(t, []string{"p", "ʃ"}, inv.Consonants.Phones())
}

func TestWriteOverview(t *testing.T) {
	inv := Split("xx", Counts{{"p", 3}, {"a", 2}, {"ʃ", 1}, {"i", 2}})

	var buf bytes.Buffer
	require.NoError(t, WriteOverview(&buf, inv))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "LANGUAGE: xx\n\n"))
	assert.Contains(t, out, "{'p': 3, 'a': 2, 'ʃ': 1, 'i': 2}")
	assert.Contains(t, out, "Total phonemes count: 8\n")
	assert.Contains(t, out, "Total vowels: {'a': 2, 'i': 2}\n")
	assert.Contains(t, out, "Vowel count: 2\n")
	assert.Contains(t, out, "Total consonants: {'p': 3, 'ʃ': 1}\n")
	assert.Contains(t, out, "<h4>Vowels frequency:</h4>\n<p>\ta: 2<br>\n\ti: 2<br>\n</p>\n")
	assert.Contains(t, out, "<h4>Consonants frequency:</h4>\n<p>\tp: 3<br>\n\tʃ: 1<br>\n</p>\n")
	assert.Contains(t, out, "p: voiceless bilabial stop\n")
	assert.Contains(t, out, "a: open front unrounded vowel\n")
	assert.Equal(t, 5, strings.Count(out, separator))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "lexicons")
	output := filepath.Join(dir, "overview")
	require.NoError(t, os.MkdirAll(input, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "xx.txt"), []byte(testLexicon), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(input, "notes.md"), []byte("ignored"), 0o644))

	results, err := NewProcessor(nil).Run(context.Background(), input, output)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	require.NoError(t, res.Error)
	assert.Equal(t, filepath.Join(output, "xx_overview.txt"), res.Output)
	assert.Equal(t, 8, res.Phones)
	assert.Equal(t, 2, res.Vowels)
	assert.Equal(t, 2, res.Consonants)

	data, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "LANGUAGE: xx")
}

func TestRunMissingDir(t *testing.T) {
	_, err := NewProcessor(nil).Run(context.Background(), filepath.Join(t.TempDir(), "none"), t.TempDir())
	assert.Error(t, err)
}
