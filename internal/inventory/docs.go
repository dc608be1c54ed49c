// Package inventory derives vowel inventories from the language
// documentation and builds the per-speaker formant SD tables the models use.
package inventory

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"github.com/RyanBlaney/vowelspace/pkg/ipa"
)

// ErrNoDocumentation is returned when neither a documentation file nor a raw
// extraction table describes a language.
var ErrNoDocumentation = errors.New("no vowel documentation")

// Mode selects how vowels are counted.
type Mode string

const (
	// ModeBase counts distinct base vowel qualities.
	ModeBase Mode = "base"
	// ModeFull counts every documented vowel.
	ModeFull Mode = "full"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeBase, ModeFull:
		return m, nil
	}
	return "", fmt.Errorf("unknown inventory mode %q (expected base or full)", s)
}

// Source names where a documented inventory came from.
type Source string

const (
	SourceHTML Source = "html"
	SourceText Source = "txt"
	SourceRaw  Source = "raw"
)

// Documentation is the vowel inventory documented for one language.
type Documentation struct {
	Language string   `json:"language"`
	Source   Source   `json:"source"`
	Path     string   `json:"path"`
	Vowels   []string `json:"vowels"`
	// Count is the documented vowel count, which HTML documents state
	// separately from the frequency list.
	Count int `json:"count"`
}

// Inventory returns the vowels counted in mode.
func (d *Documentation) Inventory(mode Mode) []string {
	if mode == ModeBase {
		return ipa.FoldInventory(d.Vowels)
	}
	return d.Vowels
}

// Number returns the inventory size in mode.
func (d *Documentation) Number(mode Mode) int {
	if mode == ModeBase {
		return len(ipa.FoldInventory(d.Vowels))
	}
	return d.Count
}

// HasSchwa returns the +1/-1 schwa code of the full vowel list.
func (d *Documentation) HasSchwa() int {
	return ipa.SchwaCode(ipa.HasSchwa(d.Vowels))
}

var (
	vowelCountPattern  = regexp.MustCompile(`Vowel count:\s*(\d+)`)
	totalVowelsPattern = regexp.MustCompile(`Total vowels:\s*\{([^}]*)\}`)
)

// ParseHTML reads the vowel list from the paragraph following the
// "Vowels frequency" heading. The count comes from the "Vowel count:" text
// when present, otherwise from the list length.
func ParseHTML(r io.Reader) ([]string, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse HTML documentation: %w", err)
	}

	heading := doc.Find("h4").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "Vowels frequency")
	}).First()
	if heading.Length() == 0 {
		return nil, 0, errors.New("no vowels frequency heading")
	}
	para := heading.NextAllFiltered("p").First()
	if para.Length() == 0 {
		return nil, 0, errors.New("no paragraph after vowels frequency heading")
	}

	var vowels []string
	for _, line := range strings.Split(strings.TrimSpace(para.Text()), "\n") {
		phone, _, _ := strings.Cut(line, ":")
		if phone = strings.TrimSpace(phone); phone != "" {
			vowels = append(vowels, ipa.Normalize(phone))
		}
	}

	count := len(vowels)
	if m := vowelCountPattern.FindStringSubmatch(doc.Text()); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			count = n
		}
	}
	return vowels, count, nil
}

// ParseText reads the keys of the "Total vowels: {...}" dictionary of a
// lexicon overview. ok is false when the document has no such line.
func ParseText(content string) (vowels []string, ok bool) {
	m := totalVowelsPattern.FindStringSubmatch(content)
	if m == nil {
		return nil, false
	}
	for _, entry := range strings.Split(m[1], ",") {
		key, _, _ := strings.Cut(entry, ":")
		key = strings.Trim(strings.TrimSpace(key), `'"`)
		if key != "" {
			vowels = append(vowels, ipa.Normalize(key))
		}
	}
	return vowels, true
}

// matchesLanguage reports whether a documentation file name belongs to lang.
func matchesLanguage(name, lang, ext string) bool {
	if !strings.HasSuffix(name, ext) {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	if stem == lang {
		return true
	}
	rest, ok := strings.CutPrefix(stem, lang)
	return ok && (strings.HasPrefix(rest, "_") || strings.HasPrefix(rest, "-") || strings.HasPrefix(rest, "."))
}

func docFiles(dir, lang, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list documentation directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && matchesLanguage(e.Name(), lang, ext) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// FindDocumentation looks up lang in docsDir: an HTML document first, then a
// text overview, then the distinct segment labels of rawPath.
func FindDocumentation(docsDir, lang, rawPath string) (*Documentation, error) {
	if docsDir != "" {
		htmls, err := docFiles(docsDir, lang, ".html")
		if err != nil {
			return nil, err
		}
		if len(htmls) > 0 {
			f, err := os.Open(htmls[0])
			if err != nil {
				return nil, fmt.Errorf("failed to open documentation: %w", err)
			}
			defer f.Close()
			vowels, count, err := ParseHTML(f)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", htmls[0], err)
			}
			return &Documentation{Language: lang, Source: SourceHTML, Path: htmls[0], Vowels: vowels, Count: count}, nil
		}

		texts, err := docFiles(docsDir, lang, ".txt")
		if err != nil {
			return nil, err
		}
		for _, path := range texts {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read documentation: %w", err)
			}
			if vowels, ok := ParseText(string(data)); ok {
				return &Documentation{Language: lang, Source: SourceText, Path: path, Vowels: vowels, Count: len(vowels)}, nil
			}
		}
	}

	if rawPath != "" {
		if _, err := os.Stat(rawPath); err == nil {
			tbl, err := dataset.ReadCSV(rawPath)
			if err != nil {
				return nil, err
			}
			labels, err := tbl.Unique("seg")
			if err != nil {
				return nil, fmt.Errorf("%s: %w", rawPath, err)
			}
			var vowels []string
			for _, l := range labels {
				if l != "" {
					vowels = append(vowels, ipa.Normalize(l))
				}
			}
			sort.Strings(vowels)
			return &Documentation{Language: lang, Source: SourceRaw, Path: rawPath, Vowels: vowels, Count: len(vowels)}, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", lang, ErrNoDocumentation)
}
