package ipa

// BaseGroup maps a base vowel quality to the labels folded into it.
type BaseGroup struct {
	Base     string
	Variants []string
}

// BaseVowels is the folding table from documented vowel labels to base
// qualities. Order matters: a label is folded into the first group listing it.
var BaseVowels = []BaseGroup{
	{"i", []string{"i", "iː", "iː̃", "ĩ", "ï", "i̤", "i̥", "i̯", "ˈiː"}},
	{"y", []string{"y", "yː", "ỹ"}},
	{"ɨ", []string{"ɨ", "ɨ̞"}},
	{"ʉ", []string{"ʉ", "ʉː"}},
	{"ɯ", []string{"ɯ", "ɯː", "ɯːː", "ɯː̃", "ɯ̃", "ɯ̥"}},
	{"u", []string{"u", "uː", "ũ", "ũː", "ü", "ṳ", "u̯"}},
	{"ɪ", []string{"ɪ", "ɪː", "ɪ̀", "ɪ̃", "ɪ̯ˑ"}},
	{"ʏ", []string{"ʏ", "ʏ̈", "ʏ̫ː"}},
	{"ʊ", []string{"ʊ", "ʊː", "ʊ̀", "ʊ̃", "ʊ̃ˑ", "ʊ̯", "ʊ̯ˑ", "ʲʊ"}},
	{"e", []string{"e", "eː", "eːː", "eː̃", "ẽ", "ë", "e̤", "ʲe"}},
	{"ø", []string{"ø", "øː"}},
	{"ɘ", []string{"ɘ"}},
	{"ɵ", []string{"ɵ"}},
	{"ɤ", []string{"ɤ", "ɤː"}},
	{"o", []string{"o", "oː", "oːː", "oː̃", "õ", "ö", "o̤", "ʷo"}},
	{"ə", []string{"ə", "əː", "ə̀", "ə́", "ə̃", "ɚ", "ʷə"}},
	{"ɛ", []string{"ɛ", "ɛː", "ɛ̀ː", "ɛ́", "ɛ́ː", "ɛ̃", "ɛ̈", "ʲɛ"}},
	{"œ", []string{"œ", "œː"}},
	{"ɜ", []string{"ɜ"}},
	{"ɞ", []string{"ɞ"}},
	{"ʌ", []string{"ʌ"}},
	{"ɔ", []string{"ɔ", "ɔː", "ɔ̀ː", "ɔ́", "ɔ́ː", "ɔ̃", "ɔ̃ʲ", "ɔ̃ː", "ɔ̃ˑ", "ɔ̈", "ɔ̋", "ɔ̤"}},
	{"æ", []string{"æ", "æː"}},
	{"ɐ", []string{"ɐ", "ɐˤː", "ɐ̀", "ɐ́", "ɐ̃"}},
	{"a", []string{"a", "aː", "aːː", "aː̃", "ã", "ãː", "a̤", "a̯", "ʲa", "ʷa"}},
	{"ɶ", []string{"ɶ"}},
	{"ɑ", []string{"ɑ", "ɑː", "ɑ̃", "ɑ̈", "ʲɑ", "ʷɑ"}},
	{"ɒ", []string{"ɒ", "ɒ̃"}},
}

// SchwaVariants are the labels that mark an inventory as having a schwa.
var SchwaVariants = []string{"ə", "ə̃", "əː", "ə́", "ə̀", "ʷə"}

var (
	baseIndex = buildBaseIndex()
	schwaSet  = setOf(SchwaVariants)
)

func buildBaseIndex() map[string]string {
	index := make(map[string]string)
	for _, g := range BaseVowels {
		for _, v := range g.Variants {
			key := Normalize(v)
			if _, seen := index[key]; !seen {
				index[key] = g.Base
			}
		}
	}
	return index
}

// BaseOf returns the base quality label v folds into.
func BaseOf(v string) (string, bool) {
	base, ok := baseIndex[Normalize(v)]
	return base, ok
}

// FoldInventory maps documented vowels to their distinct base qualities, in
// order of first appearance. Labels outside the folding table are dropped.
func FoldInventory(vowels []string) []string {
	seen := make(map[string]struct{})
	var bases []string
	for _, v := range vowels {
		base, ok := BaseOf(v)
		if !ok {
			continue
		}
		if _, dup := seen[base]; dup {
			continue
		}
		seen[base] = struct{}{}
		bases = append(bases, base)
	}
	return bases
}

// HasSchwa reports whether any of vowels is a schwa variant.
func HasSchwa(vowels []string) bool {
	for _, v := range vowels {
		if _, ok := schwaSet[Normalize(v)]; ok {
			return true
		}
	}
	return false
}

// SchwaCode returns the +1/-1 coding of a schwa flag used in the models.
func SchwaCode(has bool) int {
	if has {
		return 1
	}
	return -1
}
