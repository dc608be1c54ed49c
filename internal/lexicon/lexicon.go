// Package lexicon counts the phones of pronunciation lexicons and writes the
// per-language overview documents the inventory stage reads back.
package lexicon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/vowelspace/pkg/ipa"
)

// OverviewSuffix is appended to the lexicon base name.
const OverviewSuffix = "_overview.txt"

const separator = "__________________________________________________________________________________________"

// PhoneCount is one phone with its number of occurrences.
type PhoneCount struct {
	Phone string `json:"phone"`
	Count int    `json:"count"`
}

// Counts keeps phone counts in order of first appearance.
type Counts []PhoneCount

// Total sums all counts.
func (c Counts) Total() int {
	total := 0
	for _, pc := range c {
		total += pc.Count
	}
	return total
}

// Phones returns the phones in their current order.
func (c Counts) Phones() []string {
	out := make([]string, len(c))
	for i, pc := range c {
		out[i] = pc.Phone
	}
	return out
}

// ByFrequency returns a copy sorted by descending count. Equal counts keep
// their order of first appearance.
func (c Counts) ByFrequency() Counts {
	out := make(Counts, len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// String renders the counts as a dictionary literal, e.g. {'a': 3, 'p': 1}.
func (c Counts) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, pc := range c {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(pc.Phone))
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(pc.Count))
	}
	b.WriteByte('}')
	return b.String()
}

func quote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// Inventory is the phone inventory of one lexicon.
type Inventory struct {
	Name       string `json:"name"`
	Phones     Counts `json:"phones"`
	Vowels     Counts `json:"vowels"`
	Consonants Counts `json:"consonants"`
}

// Count reads a tab separated lexicon whose second column holds space
// separated phones. Phones that are not valid IPA are ignored.
func Count(r io.Reader) (Counts, error) {
	index := make(map[string]int)
	var counts Counts

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		columns := strings.Split(strings.TrimSpace(scanner.Text()), "\t")
		if len(columns) < 2 {
			continue
		}
		for _, phone := range strings.Fields(columns[1]) {
			phone = ipa.Normalize(phone)
			if !ipa.IsValidIPA(phone) {
				continue
			}
			if i, ok := index[phone]; ok {
				counts[i].Count++
				continue
			}
			index[phone] = len(counts)
			counts = append(counts, PhoneCount{Phone: phone, Count: 1})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return counts, nil
}

// Split divides the counted phones into vowels and consonants.
func Split(name string, phones Counts) *Inventory {
	inv := &Inventory{Name: name, Phones: phones}
	for _, pc := range phones {
		if ipa.IsLexiconVowel(pc.Phone) {
			inv.Vowels = append(inv.Vowels, pc)
		} else {
			inv.Consonants = append(inv.Consonants, pc)
		}
	}
	return inv
}

// WriteOverview writes the overview document of inv.
func WriteOverview(w io.Writer, inv *Inventory) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "LANGUAGE: %s\n\n", inv.Name)
	fmt.Fprintf(bw, "The phoneme inventory:\n\n%s\n\n", inv.Phones)
	fmt.Fprintf(bw, "Total phonemes count: %d\n\n", inv.Phones.Total())
	fmt.Fprintf(bw, "Total vowels: %s\n\n", inv.Vowels)
	fmt.Fprintf(bw, "Vowel count: %d\n\n", len(inv.Vowels))
	fmt.Fprintf(bw, "Total consonants: %s\n\n", inv.Consonants)
	fmt.Fprintf(bw, "Consonant count: %d\n\n", len(inv.Consonants))

	vowels := inv.Vowels.ByFrequency()
	consonants := inv.Consonants.ByFrequency()

	fmt.Fprintln(bw, separator)
	writeFrequencies(bw, "Vowels frequency:", vowels)
	fmt.Fprint(bw, separator+"\n\n")
	writeFrequencies(bw, "Consonants frequency:", consonants)

	fmt.Fprint(bw, separator+"\n\n")
	fmt.Fprintln(bw, "Consonants with classification:")
	for _, pc := range consonants {
		fmt.Fprintf(bw, "%s: %s\n", pc.Phone, ipa.Classification(pc.Phone))
	}
	fmt.Fprint(bw, separator+"\n\n")
	fmt.Fprintln(bw, "Vowels with classification:")
	for _, pc := range vowels {
		fmt.Fprintf(bw, "%s: %s\n", pc.Phone, ipa.Classification(pc.Phone))
	}

	return bw.Flush()
}

func writeFrequencies(w io.Writer, title string, counts Counts) {
	fmt.Fprintf(w, "<h4>%s</h4>\n<p>", title)
	for _, pc := range counts {
		fmt.Fprintf(w, "\t%s: %d<br>\n", pc.Phone, pc.Count)
	}
	fmt.Fprint(w, "</p>\n")
}

// Result describes one processed lexicon.
type Result struct {
	Lexicon    string `json:"lexicon"`
	Output     string `json:"output"`
	Phones     int    `json:"phones"`
	Vowels     int    `json:"vowels"`
	Consonants int    `json:"consonants"`
	Error      error  `json:"error,omitempty"`
}

// Processor writes overview files for a directory of lexicons.
type Processor struct {
	logger logging.Logger
}

// NewProcessor creates a processor.
func NewProcessor(logger logging.Logger) *Processor {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Processor{logger: logger}
}

// ProcessFile counts one lexicon and writes <base>_overview.txt to outputDir.
func (p *Processor) ProcessFile(path, outputDir string) (*Result, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res := &Result{Lexicon: path, Output: filepath.Join(outputDir, base+OverviewSuffix)}

	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lexicon: %w", err)
	}
	defer in.Close()

	phones, err := Count(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	inv := Split(base, phones)

	out, err := os.Create(res.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create overview: %w", err)
	}
	if err := WriteOverview(out, inv); err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to write overview: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to write overview: %w", err)
	}

	res.Phones = phones.Total()
	res.Vowels = len(inv.Vowels)
	res.Consonants = len(inv.Consonants)
	p.logger.Debug("Lexicon counted", logging.Fields{
		"lexicon":    base,
		"phones":     res.Phones,
		"vowels":     res.Vowels,
		"consonants": res.Consonants,
	})
	return res, nil
}

// Run processes every .txt lexicon in inputDir. Failing lexicons are reported
// on their result and the run continues.
func (p *Processor) Run(ctx context.Context, inputDir, outputDir string) ([]*Result, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list lexicon directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var results []*Result
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		path := filepath.Join(inputDir, e.Name())
		res, err := p.ProcessFile(path, outputDir)
		if err != nil {
			p.logger.Error(err, "Failed to count lexicon", logging.Fields{"lexicon": e.Name()})
			res = &Result{Lexicon: path, Error: err}
		}
		results = append(results, res)
	}

	p.logger.Info("Lexicon overviews written", logging.Fields{
		"lexicons": len(results),
		"output":   outputDir,
	})
	return results, nil
}
