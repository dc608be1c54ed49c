package extract

import (
	"math"

	"github.com/RyanBlaney/vowelspace/pkg/ipa"
	"github.com/RyanBlaney/vowelspace/pkg/textgrid"
)

const timeTolerance = 1e-9

func sameTime(a, b float64) bool {
	return math.Abs(a-b) < timeTolerance
}

// findWord returns the index of the first word interval, empty or not, that
// covers seg.
func findWord(words []textgrid.Interval, seg textgrid.Interval) (int, bool) {
	for i, w := range words {
		if w.Start <= seg.Start+timeTolerance && w.End >= seg.End-timeTolerance {
			return i, true
		}
	}
	return -1, false
}

// classifyPosition places segment i inside word wordIdx. Index 0 of the word
// tier is normally the leading silence, so the first spoken word is index 1.
func classifyPosition(segs []textgrid.Interval, i int, words []textgrid.Interval, wordIdx int) Position {
	seg := segs[i]
	word := words[wordIdx]

	var pos Position
	if sameTime(seg.Start, word.Start) || (i > 0 && !vowelBefore(segs, i, word.Start)) {
		if wordIdx == 1 {
			pos = PositionUttInitial
		} else {
			pos = PositionWordInitial
		}
	}
	if sameTime(seg.End, word.End) || (i > 0 && !vowelAfter(segs, i, word.End)) {
		if wordIdx == len(words)-1 {
			pos = PositionUttFinal
		} else {
			pos = PositionWordFinal
		}
	}
	if pos == "" {
		pos = PositionWordMedial
	}
	return pos
}

// vowelBefore reports whether a vowel segment earlier than i starts inside
// the word.
func vowelBefore(segs []textgrid.Interval, i int, wordStart float64) bool {
	for j := 0; j < i; j++ {
		if segs[j].Start >= wordStart-timeTolerance && ipa.ContainsVowel(segs[j].Label) {
			return true
		}
	}
	return false
}

// vowelAfter reports whether a vowel segment later than i starts before the
// word ends.
func vowelAfter(segs []textgrid.Interval, i int, wordEnd float64) bool {
	for j := i + 1; j < len(segs); j++ {
		if segs[j].Start <= wordEnd+timeTolerance && ipa.ContainsVowel(segs[j].Label) {
			return true
		}
	}
	return false
}

// precededByConsonant reports whether a non-vowel segment sits between the
// word start and segment i.
func precededByConsonant(segs []textgrid.Interval, i int, word textgrid.Interval) bool {
	seg := segs[i]
	for j := 0; j < i; j++ {
		s := segs[j]
		if s.Start >= word.Start-timeTolerance && s.End <= seg.Start+timeTolerance && !ipa.ContainsVowel(s.Label) {
			return true
		}
	}
	return false
}

// followedByConsonant reports whether a non-vowel segment starting after
// segment i ends inside the word.
func followedByConsonant(segs []textgrid.Interval, i int, word textgrid.Interval) bool {
	seg := segs[i]
	for j := i + 1; j < len(segs); j++ {
		s := segs[j]
		if s.Start > seg.End+timeTolerance && s.End <= word.End+timeTolerance && !ipa.ContainsVowel(s.Label) {
			return true
		}
	}
	return false
}
