// Package ipa holds the IPA symbol tables used to select, group and code
// vowel segments.
package ipa

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// TargetVowels are the monophthong qualities searched for in segment labels.
var TargetVowels = []string{
	// high
	"i", "y", "ɨ", "ʉ", "ɯ", "u", "ɪ", "ʏ", "ʊ",
	// mid-high
	"e", "ø", "ɘ", "ɵ", "ɤ", "o",
	// Mandarin apicals
	"ɹ̩", "ɻ̩",
	"ə",
	// mid-low
	"ɛ", "œ", "ɜ", "ɞ", "ʌ", "ɔ",
	// low
	"a", "ɶ", "ɑ", "ɒ", "æ", "ɐ",
}

// Normalize returns the NFC form of s. All table lookups go through it.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// ContainsVowel reports whether label contains any target vowel symbol.
// Labels are matched code point by code point as the aligner wrote them, so
// a decomposed "ã" contains "a" and a precomposed one does not.
func ContainsVowel(label string) bool {
	if label == "" {
		return false
	}
	for _, v := range TargetVowels {
		if strings.Contains(label, v) {
			return true
		}
	}
	return false
}

// IsMonophthong reports whether label is a single vowel quality, optionally
// long. A leading apostrophe, tone letters and digits are ignored. IPA stress
// marks are not stripped and combining marks count as code points, so "ˈa"
// and a decomposed "ã" are rejected.
func IsMonophthong(label string) bool {
	label = strings.TrimPrefix(label, "'")

	label = strings.Map(func(r rune) rune {
		if isToneOrDigit(r) {
			return -1
		}
		return r
	}, label)

	switch utf8.RuneCountInString(label) {
	case 1:
		return true
	case 2:
		_, size := utf8.DecodeRuneInString(label)
		second := label[size:]
		return second == "ː" || second == ":"
	default:
		return false
	}
}

func isToneOrDigit(r rune) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	return r >= '˥' && r <= '˩'
}

func setOf(in []string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[Normalize(s)] = struct{}{}
	}
	return set
}
