package textgrid

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longGrid = `File type = "ooTextFile"
Object class = "TextGrid"

xmin = 0
xmax = 1.5
tiers? <exists>
size = 3
item []:
    item [1]:
        class = "IntervalTier"
        name = "words"
        xmin = 0
        xmax = 1.5
        intervals: size = 2
        intervals [1]:
            xmin = 0
            xmax = 0.7
            text = "hallo"
        intervals [2]:
            xmin = 0.7
            xmax = 1.5
            text = "say ""hi"""
    item [2]:
        class = "IntervalTier"
        name = "phones"
        xmin = 0
        xmax = 1.5
        intervals: size = 2
        intervals [1]:
            xmin = 0.1
            xmax = 0.3
            text = "h"
        intervals [2]:
            xmin = 0.3
            xmax = 0.7
            text = "aː"
    item [3]:
        class = "TextTier"
        name = "events"
        xmin = 0
        xmax = 1.5
        points: size = 1
        points [1]:
            number = 0.9
            mark = "click"
`

const shortGrid = `File type = "ooTextFile"
Object class = "TextGrid"

0
1.5
<exists>
2
"IntervalTier"
"words"
0
1.5
1
0
1.5
"hallo"
"IntervalTier"
"phones"
0
1.5
2
0
0.4
"h"
0.4
1.5
"a"
`

func TestParseLongFormat(t *testing.T) {
	tg, err := Parse(strings.NewReader(longGrid))
	require.NoError(t, err)

	assert.Equal(t, 0.0, tg.XMin)
	assert.Equal(t, 1.5, tg.XMax)
	require.Len(t, tg.Tiers, 3)
	assert.Len(t, tg.IntervalTiers(), 2)

	words, segs, err := tg.WordsAndSegments()
	require.NoError(t, err)
	assert.Equal(t, "words", words.Name)
	assert.Equal(t, `say "hi"`, words.Intervals[1].Label)

	// gaps before 0.1 and after 0.7 become empty intervals
	require.Len(t, segs.Intervals, 4)
	assert.Equal(t, Interval{Start: 0, End: 0.1}, segs.Intervals[0])
	assert.Equal(t, "aː", segs.Intervals[2].Label)
	assert.Equal(t, Interval{Start: 0.7, End: 1.5}, segs.Intervals[3])

	events, ok := tg.Tier("events")
	require.True(t, ok)
	assert.False(t, events.IsInterval())
	assert.Equal(t, []Point{{Time: 0.9, Mark: "click"}}, events.Points)
}

func TestParseShortFormat(t *testing.T) {
	tg, err := Parse(strings.NewReader(shortGrid))
	require.NoError(t, err)

	words, segs, err := tg.WordsAndSegments()
	require.NoError(t, err)
	assert.Len(t, words.Intervals, 1)
	require.Len(t, segs.Intervals, 2)
	assert.InDelta(t, 0.4, segs.Intervals[1].Start, 1e-12)
	assert.InDelta(t, 1.1, segs.Intervals[1].Duration(), 1e-12)
}

func TestParseUTF16(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, u := range utf16.Encode([]rune(shortGrid)) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, u))
	}

	tg, err := Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, tg.IntervalTiers(), 2)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(`File type = "ooTextFile"
Object class = "Pitch 1"`))
	assert.ErrorIs(t, err, ErrNotTextGrid)

	_, err = Parse(strings.NewReader(`File type = "ooTextFile"
Object class = "TextGrid"
0 1 <exists> 1 "IntervalTier" "w" 0 1 2 0 0.5 "a"`))
	assert.Error(t, err)

	tg, err := Parse(strings.NewReader(`File type = "ooTextFile"
Object class = "TextGrid"
0 1 <exists> 1 "IntervalTier" "w" 0 1 1 0 1 "a"`))
	require.NoError(t, err)
	_, _, err = tg.WordsAndSegments()
	assert.ErrorIs(t, err, ErrNoIntervalTier)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.TextGrid")
	require.NoError(t, os.WriteFile(path, []byte(longGrid), 0o644))

	tg, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, tg.Tiers, 3)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.TextGrid"))
	assert.Error(t, err)
}
