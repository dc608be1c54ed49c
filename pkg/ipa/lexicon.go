package ipa

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// LexiconVowels is the set of phones counted as vowels when summarising a
// pronunciation lexicon.
var LexiconVowels = setOf([]string{
	"a", "e", "i", "o", "u", "ə", "ɛ", "ɪ", "ɔ", "ʊ", "æ", "ʌ", "ɑ", "ɒ",
	"ø", "ɤ", "œ", "ɨ", "ʉ", "ɯ", "ɘ", "ɵ", "ɜ", "ɞ", "ɝ", "ɐ", "ʲ", "ɚ",
	"y", "ø̞", "œ̞", "ʏ", "ʏ̞", "ʏ̈", "ɥ", "ɶ", "ɞ̞", "ɞ̈", "ɘ̞",
	"ɘ̈", "ɪ̈", "ɪ̯", "ʏ̯", "y̯", "ø̯", "ɜ̝", "ɐ̝", "ʊ̯",
	"ɯ̯", "iː", "iˑ", "yː", "yˑ", "eː", "eˑ", "øː", "øˑ", "ɛː", "ɛˑ",
	"œː", "œˑ", "ɪː", "ɪˑ", "ʏː", "ʏˑ", "aː", "aˑ", "ɶː", "ɶˑ", "ɒː", "ɒˑ",
	"ɔː", "ɔˑ", "oː", "oˑ", "uː", "uˑ", "ʊː", "ʊˑ", "əː", "əˑ", "ɜː", "ɜˑ",
	"ɚː", "ɚˑ", "ɯː", "ɯˑ", "ɯ̃", "ɤː", "ɤˑ", "ʌː", "ʌˑ", "ɐː", "ɐˑ", "ɨː", "ɨˑ",
	"ʉː", "ʉˑ", "ɘː", "ɘˑ", "ɵː", "ɵˑ", "ɞː", "ɞˑ", "ɞ̈ː", "ɞ̈ˑ", "ɪ̈ː", "ɪ̈ˑ",
	"ʏ̈ː", "ʏ̈ˑ", "ɪ̯ː", "ɪ̯ˑ", "ʏ̯ː", "ʏ̯ˑ", "ʊ̈ː", "ʊ̈ˑ", "ɯ̯ː", "ɯ̯ˑ",
	"ɯ̈ː", "ɯ̈ˑ", "i̯ː", "i̯ˑ", "y̯ː", "y̯ˑ", "e̯ː", "e̯ˑ", "ø̯ː", "ø̯ˑ", "ɛ̯ː",
	"ɛ̯ˑ", "œ̯ː", "œ̯ˑ", "a̯ː", "a̯ˑ", "ɶ̯ː",
	"ɶ̯ˑ", "ɒ̯ː", "ɒ̯ˑ", "ɔ̯ː", "ɔ̯ˑ", "o̯ː", "o̯ˑ", "u̯ː", "u̯ˑ", "ʊ̯ː",
	"ʊ̯ˑ", "ə̯ː", "ə̯ˑ", "ɜ̯ː", "ɜ̯ˑ", "ɚ̯ː", "ɚ̯ˑ", "ɤ̯ː",
	"ɤ̯ˑ", "ʌ̯ː", "ʌ̯ˑ", "ɐ̯ː", "ɐ̯ˑ", "ɨ̯ː", "ɨ̯ˑ", "ʉ̯ː", "ʉ̯ˑ", "ɘ̯ː",
	"ɘ̯ˑ", "ɵ̯ː", "ɵ̯ˑ", "ɞ̯ː", "ɞ̯ˑ", "ɞ̯̈ː", "ɞ̯̈ˑ", "ɪ̯̈ː", "ɪ̯̈ˑ", "ʏ̯̈ː",
	"ʏ̯̈ˑ", "ãː", "ũː", "ũ", "ẽ", "ə̃", "ã", "æː", "õ", "ɔ̃", "ɑ̃",
})

// IsLexiconVowel reports whether phone is counted as a vowel in lexicons.
func IsLexiconVowel(phone string) bool {
	_, ok := LexiconVowels[Normalize(phone)]
	return ok
}

// Classification returns the articulatory description of phone.
func Classification(phone string) string {
	if c, ok := classifications[Normalize(phone)]; ok {
		return c
	}
	return "Unknown classification"
}

var classifications = func() map[string]string {
	raw := map[string]string{
		"p": "voiceless bilabial stop", "b": "voiced bilabial stop",
		"t": "voiceless alveolar stop", "d": "voiced alveolar stop",
		"k": "voiceless velar stop", "g": "voiced velar stop", "ɡ": "voiced velar stop",
		"ʔ": "glottal stop", "q": "voiceless uvular stop", "ɢ": "voiced uvular stop",
		"c": "voiceless palatal stop", "ɟ": "voiced palatal stop",
		"pʰ": "aspirated bilabial stop", "tʰ": "aspirated alveolar stop", "kʰ": "aspirated velar stop",
		"bʰ": "voiced aspirated bilabial stop", "dʰ": "voiced aspirated alveolar stop",
		"ɡʰ": "voiced aspirated velar stop",
		"t̪": "voiceless dental stop", "d̪": "voiced dental stop",
		"t̪ʰ": "aspirated voiceless dental stop", "d̪ʰ": "aspirated voiced dental stop",
		"ʈʰ": "aspirated voiceless retroflex stop", "ʈ": "voiceless retroflex stop",
		"ɖ": "voiced retroflex stop", "ɖʰ": "voiced aspirated retroflex stop",

		"m": "bilabial nasal", "ɱ": "labiodental nasal", "n": "alveolar nasal",
		"n̪": "dental nasal", "ŋ": "velar nasal", "ɲ": "palatal nasal",
		"ɴ": "uvular nasal", "ɳ": "retroflex nasal",

		"ʙ": "voiced bilabial trill", "r": "voiced alveolar trill", "ʀ": "voiced uvular trill",
		"ⱱ": "labiodental flap", "ɾ": "alveolar flap", "ɽ": "retroflex flap",

		"ɸ": "voiceless bilabial fricative", "β": "voiced bilabial fricative",
		"f": "voiceless labiodental fricative", "v": "voiced labiodental fricative",
		"θ": "dental fricative", "ð": "voiced dental fricative",
		"s": "voiceless alveolar fricative", "z": "voiced alveolar fricative",
		"ʃ": "voiceless postalveolar fricative", "ʒ": "voiced postalveolar fricative",
		"ʂ": "voiceless retroflex fricative", "ʐ": "voiced retroflex fricative",
		"ç": "voiceless palatal fricative", "ʝ": "voiced palatal fricative",
		"x": "voiceless velar fricative", "ɣ": "voiced velar fricative",
		"χ": "voiceless uvular fricative", "ʁ": "voiced uvular fricative",
		"ħ": "voiceless pharyngeal fricative", "ʕ": "voiced pharyngeal fricative",
		"h": "voiceless glottal fricative", "ɦ": "voiced glottal fricative",

		"t͡ʃ": "postalveolar affricate", "tʃ": "postalveolar affricate",
		"d͡ʒ": "voiced postalveolar affricate", "dʒ": "voiced postalveolar affricate",
		"d͡ʒʰ": "voiced postalveolar aspirated affricate", "dʒʰ": "voiced postalveolar aspirated affricate",
		"ts": "alveolar affricate", "t͡s": "alveolar affricate",
		"dz": "voiced alveolar affricate", "d͡z": "voiced alveolar affricate",
		"dzʰ": "voiced aspirated alveolar affricate",
		"t͡ʃʰ": "postalveolar aspirated affricate", "tʃʰ": "postalveolar aspirated affricate",
		"t͡sʰ": "alveolar aspirated affricate",

		"ɬ": "voiceless alveolar lateral fricative", "ɮ": "voiced alveolar lateral fricative",

		"ʋ": "voiced labiodental approximant", "ɹ": "alveolar approximant",
		"ɻ": "retroflex approximant", "j": "palatal approximant", "ɰ": "velar approximant",
		"l": "alveolar lateral approximant", "l̪": "dental lateral approximant",
		"ɭ": "retroflex lateral approximant", "ʎ": "palatal lateral approximant",
		"ʟ": "velar lateral approximant",

		"i": "close front unrounded vowel", "y": "close front rounded vowel",
		"ɨ": "close central unrounded vowel", "ʉ": "close central rounded vowel",
		"ɪ": "near-close near-front unrounded vowel", "ʏ": "near-close near-front rounded vowel",
		"e": "close-mid front unrounded vowel", "ø": "close-mid front rounded vowel",
		"ɘ": "close-mid central unrounded vowel", "ɵ": "close-mid central rounded vowel",
		"ɛ": "open-mid front unrounded vowel", "œ": "open-mid front rounded vowel",
		"æ": "near-open front unrounded vowel", "a": "open front unrounded vowel",
		"ɶ": "open front rounded vowel", "ɜ": "open-mid central unrounded vowel",
		"ɞ": "open-mid central rounded vowel", "ə": "mid-central vowel",
		"ɐ": "near-open central vowel", "u": "close back rounded vowel",
		"ɯ": "close back unrounded vowel", "o": "close-mid back rounded vowel",
		"ɤ": "close-mid back unrounded vowel", "ɔ": "open-mid back rounded vowel",
		"ɑ": "open back unrounded vowel", "ɒ": "open back rounded vowel",
		"ã": "open front nasalized unrounded vowel", "õ": "close-mid back nasalized rounded vowel",
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[Normalize(k)] = v
	}
	return out
}()

// ipaTable covers the code points accepted in an IPA transcription: lowercase
// Latin, the IPA letters, modifier letters, combining diacritics and the
// handful of Latin-1, Latin Extended and Greek letters the chart borrows.
var ipaTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0061, Hi: 0x007a, Stride: 1}, // a-z
		{Lo: 0x00e6, Hi: 0x00e7, Stride: 1}, // æ ç
		{Lo: 0x00f0, Hi: 0x00f0, Stride: 1}, // ð
		{Lo: 0x00f8, Hi: 0x00f8, Stride: 1}, // ø
		{Lo: 0x0127, Hi: 0x0127, Stride: 1}, // ħ
		{Lo: 0x014b, Hi: 0x014b, Stride: 1}, // ŋ
		{Lo: 0x0153, Hi: 0x0153, Stride: 1}, // œ
		{Lo: 0x01c0, Hi: 0x01c3, Stride: 1}, // clicks
		{Lo: 0x0250, Hi: 0x02af, Stride: 1}, // IPA extensions
		{Lo: 0x02b0, Hi: 0x02ff, Stride: 1}, // spacing modifier letters
		{Lo: 0x0300, Hi: 0x036f, Stride: 1}, // combining diacritics
		{Lo: 0x03b2, Hi: 0x03b2, Stride: 1}, // β
		{Lo: 0x03b8, Hi: 0x03b8, Stride: 1}, // θ
		{Lo: 0x03c7, Hi: 0x03c7, Stride: 1}, // χ
		{Lo: 0x1d00, Hi: 0x1dbf, Stride: 1}, // phonetic extensions
		{Lo: 0x1dc0, Hi: 0x1dff, Stride: 1}, // combining diacritics supplement
		{Lo: 0x2c71, Hi: 0x2c71, Stride: 1}, // ⱱ
		{Lo: 0xa700, Hi: 0xa71f, Stride: 1}, // modifier tone letters
	},
}

// IsValidIPA reports whether every code point of phone belongs to the IPA
// repertoire. Decomposed input is accepted.
func IsValidIPA(phone string) bool {
	if phone == "" {
		return false
	}
	for _, r := range norm.NFD.String(phone) {
		if !unicode.Is(ipaTable, r) {
			return false
		}
	}
	return true
}
