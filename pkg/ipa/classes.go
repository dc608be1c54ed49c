package ipa

import "sort"

// Class groups vowel variants into the three corner qualities studied.
type Class string

const (
	ClassNone Class = ""
	ClassA    Class = "a"
	ClassI    Class = "i"
	ClassU    Class = "u"
)

// Classes lists the corner classes in sort priority order.
var Classes = []Class{ClassA, ClassI, ClassU}

// AVowels are the labels counted as the low corner vowel.
var AVowels = []string{
	"a", "aː", "aːː", "aː̃", "ã", "ãː", "a̤", "a̯", "ʲa", "ʷa", "æ", "æː", "ɐ", "ɐˤː", "ɐ̀", "ɐ́",
	"ɐ̃", "ɑ", "ɑː", "ɑ̃", "ɑ̈", "ʲɑ", "ʷɑ",
}

// IVowels are the labels counted as the high front corner vowel.
var IVowels = []string{
	"i", "iː", "iː̃", "ĩ", "ï", "i̤", "i̥", "i̯", "ˈiː", "ɨ", "ɨ̞", "ɪ", "ɪ̀", "ɪ̃", "ɪ̯ˑ", "ʏ",
	"ʏ̈", "ʏ̫ː",
}

// UVowels are the labels counted as the high back corner vowel.
var UVowels = []string{
	"u", "uː", "ũ", "ũː", "ü", "ṳ", "u̯", "ʉ", "ʉː", "ɯ", "ɯː", "ɯːː", "ɯː̃", "ɯ̃", "ɯ̥", "ʊ",
	"ʊː", "ʊ̀", "ʊ̃", "ʊ̃ˑ", "ʊ̯", "ʊ̯ˑ", "ʲʊ",
}

var classSets = map[Class]map[string]struct{}{
	ClassA: setOf(AVowels),
	ClassI: setOf(IVowels),
	ClassU: setOf(UVowels),
}

// ClassOf returns the corner class of a vowel label, or ClassNone.
func ClassOf(label string) Class {
	label = Normalize(label)
	for _, c := range Classes {
		if _, ok := classSets[c][label]; ok {
			return c
		}
	}
	return ClassNone
}

// Variants returns the labels belonging to class c.
func (c Class) Variants() []string {
	switch c {
	case ClassA:
		return AVowels
	case ClassI:
		return IVowels
	case ClassU:
		return UVowels
	}
	return nil
}

// Priority orders rows low, high front, high back. Unknown vowels sort last.
func (c Class) Priority() int {
	switch c {
	case ClassA:
		return 1
	case ClassI:
		return 2
	case ClassU:
		return 3
	}
	return 4
}

// Contrasts returns the two sum-coded contrasts of the class: the first
// opposes a to i with u at zero, the second opposes a to u with i at zero.
func (c Class) Contrasts() (c1, c2 int, ok bool) {
	switch c {
	case ClassA:
		return -1, -1, true
	case ClassI:
		return 1, 0, true
	case ClassU:
		return 0, 1, true
	}
	return 0, 0, false
}

// MostFrequent returns the label of class c with the highest count. Ties go
// to the lexicographically smallest label. The second value is false when no
// label of the class occurs in counts.
func (c Class) MostFrequent(counts map[string]int) (string, bool) {
	var candidates []string
	for label := range counts {
		if ClassOf(label) == c {
			candidates = append(candidates, label)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := counts[candidates[i]], counts[candidates[j]]
		if ci != cj {
			return ci > cj
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], true
}
