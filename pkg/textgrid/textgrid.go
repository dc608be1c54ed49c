// Package textgrid reads Praat TextGrid annotation files in both the long
// (key = value) and short text layouts.
package textgrid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	ClassInterval = "IntervalTier"
	ClassText     = "TextTier"
)

var (
	ErrNotTextGrid    = errors.New("not a TextGrid file")
	ErrNoIntervalTier = errors.New("textgrid has too few interval tiers")
	errUnexpectedEOF  = errors.New("unexpected end of TextGrid data")
)

const boundaryTolerance = 1e-9

// Interval is one labelled stretch of an interval tier.
type Interval struct {
	Start float64
	End   float64
	Label string
}

// Duration returns the interval length in seconds.
func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// Point is a single labelled time of a text (point) tier.
type Point struct {
	Time float64
	Mark string
}

// Tier is a named annotation layer.
type Tier struct {
	Class     string
	Name      string
	XMin      float64
	XMax      float64
	Intervals []Interval
	Points    []Point
}

// IsInterval reports whether the tier holds intervals.
func (t *Tier) IsInterval() bool {
	return t.Class == ClassInterval
}

// TextGrid is a parsed annotation file.
type TextGrid struct {
	XMin  float64
	XMax  float64
	Tiers []*Tier
}

// IntervalTiers returns the interval tiers in file order.
func (tg *TextGrid) IntervalTiers() []*Tier {
	var tiers []*Tier
	for _, t := range tg.Tiers {
		if t.IsInterval() {
			tiers = append(tiers, t)
		}
	}
	return tiers
}

// Tier looks a tier up by name.
func (tg *TextGrid) Tier(name string) (*Tier, bool) {
	for _, t := range tg.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// WordsAndSegments returns the first two interval tiers, which forced
// aligners emit as the word and the phone tier.
func (tg *TextGrid) WordsAndSegments() (words, segments *Tier, err error) {
	tiers := tg.IntervalTiers()
	if len(tiers) < 2 {
		return nil, nil, fmt.Errorf("%w: found %d", ErrNoIntervalTier, len(tiers))
	}
	return tiers[0], tiers[1], nil
}

// ParseFile reads and parses the TextGrid at path.
func ParseFile(path string) (*TextGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open TextGrid: %w", err)
	}
	defer f.Close()

	tg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return tg, nil
}

// Parse reads a TextGrid in either layout. UTF-8 and UTF-16 input with a
// byte order mark are accepted.
func Parse(r io.Reader) (*TextGrid, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	tokens, err := tokenize(bufio.NewReader(decoded))
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	return p.parse()
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenString
	tokenFlag
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// tokenize keeps only the values of the file. Keys, brackets and comments are
// dropped, which makes the long and short layouts produce the same stream.
func tokenize(r *bufio.Reader) ([]token, error) {
	var tokens []token
	for {
		c, _, err := r.ReadRune()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read TextGrid: %w", err)
		}

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\ufeff':
			continue
		case c == '!':
			if _, err := r.ReadString('\n'); err != nil && err != io.EOF {
				return nil, err
			}
		case c == '"':
			s, err := readQuoted(r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, text: s})
		case c == '<':
			s, err := r.ReadString('>')
			if err != nil {
				return nil, errUnexpectedEOF
			}
			tokens = append(tokens, token{kind: tokenFlag, text: strings.TrimSuffix(s, ">")})
		default:
			var sb strings.Builder
			sb.WriteRune(c)
			for {
				n, _, err := r.ReadRune()
				if err != nil || n == ' ' || n == '\t' || n == '\n' || n == '\r' {
					break
				}
				if n == '"' {
					if err := r.UnreadRune(); err != nil {
						return nil, err
					}
					break
				}
				sb.WriteRune(n)
			}
			if v, err := strconv.ParseFloat(sb.String(), 64); err == nil {
				tokens = append(tokens, token{kind: tokenNumber, num: v})
			}
		}
	}
}

// readQuoted reads a Praat string literal; a doubled quote is an escaped quote.
func readQuoted(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		c, _, err := r.ReadRune()
		if err != nil {
			return "", errUnexpectedEOF
		}
		if c != '"' {
			sb.WriteRune(c)
			continue
		}
		next, _, err := r.ReadRune()
		if err == nil && next == '"' {
			sb.WriteRune('"')
			continue
		}
		if err == nil {
			if err := r.UnreadRune(); err != nil {
				return "", err
			}
		}
		return sb.String(), nil
	}
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) next() (token, error) {
	if p.pos >= len(p.tokens) {
		return token{}, errUnexpectedEOF
	}
	t := p.tokens[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) number() (float64, error) {
	t, err := p.next()
	if err != nil {
		return 0, err
	}
	if t.kind != tokenNumber {
		return 0, fmt.Errorf("expected number at token %d, got %q", p.pos, t.text)
	}
	return t.num, nil
}

func (p *parser) count() (int, error) {
	v, err := p.number()
	if err != nil {
		return 0, err
	}
	if v < 0 || v != float64(int(v)) {
		return 0, fmt.Errorf("invalid count %v at token %d", v, p.pos)
	}
	return int(v), nil
}

func (p *parser) str() (string, error) {
	t, err := p.next()
	if err != nil {
		return "", err
	}
	if t.kind != tokenString {
		return "", fmt.Errorf("expected string at token %d", p.pos)
	}
	return t.text, nil
}

func (p *parser) parse() (*TextGrid, error) {
	fileType, err := p.str()
	if err != nil || !strings.HasPrefix(fileType, "ooTextFile") {
		return nil, ErrNotTextGrid
	}
	objectClass, err := p.str()
	if err != nil || objectClass != "TextGrid" {
		return nil, ErrNotTextGrid
	}

	tg := &TextGrid{}
	if tg.XMin, err = p.number(); err != nil {
		return nil, err
	}
	if tg.XMax, err = p.number(); err != nil {
		return nil, err
	}

	if p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokenFlag {
		flag := p.tokens[p.pos].text
		p.pos++
		if flag != "exists" {
			return tg, nil
		}
	}

	n, err := p.count()
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		tier, err := p.tier()
		if err != nil {
			return nil, fmt.Errorf("tier %d: %w", i+1, err)
		}
		tg.Tiers = append(tg.Tiers, tier)
	}

	return tg, nil
}

func (p *parser) tier() (*Tier, error) {
	class, err := p.str()
	if err != nil {
		return nil, err
	}
	name, err := p.str()
	if err != nil {
		return nil, err
	}

	tier := &Tier{Class: class, Name: name}
	if tier.XMin, err = p.number(); err != nil {
		return nil, err
	}
	if tier.XMax, err = p.number(); err != nil {
		return nil, err
	}
	n, err := p.count()
	if err != nil {
		return nil, err
	}

	switch class {
	case ClassInterval:
		intervals := make([]Interval, 0, n)
		for i := 0; i < n; i++ {
			var iv Interval
			if iv.Start, err = p.number(); err != nil {
				return nil, err
			}
			if iv.End, err = p.number(); err != nil {
				return nil, err
			}
			if iv.Label, err = p.str(); err != nil {
				return nil, err
			}
			if iv.End < iv.Start {
				return nil, fmt.Errorf("interval %d ends before it starts", i+1)
			}
			intervals = append(intervals, iv)
		}
		tier.Intervals = fillGaps(intervals, tier.XMin, tier.XMax)
	case ClassText:
		for i := 0; i < n; i++ {
			var pt Point
			if pt.Time, err = p.number(); err != nil {
				return nil, err
			}
			if pt.Mark, err = p.str(); err != nil {
				return nil, err
			}
			tier.Points = append(tier.Points, pt)
		}
	default:
		return nil, fmt.Errorf("unknown tier class %q", class)
	}

	return tier, nil
}

// fillGaps inserts unlabelled intervals wherever the tier is not covered, so
// that neighbours and positions are computed over a contiguous tier.
func fillGaps(intervals []Interval, xmin, xmax float64) []Interval {
	out := make([]Interval, 0, len(intervals)+2)
	cursor := xmin
	for _, iv := range intervals {
		if iv.Start-cursor > boundaryTolerance {
			out = append(out, Interval{Start: cursor, End: iv.Start})
		}
		out = append(out, iv)
		cursor = iv.End
	}
	if xmax-cursor > boundaryTolerance {
		out = append(out, Interval{Start: cursor, End: xmax})
	}
	return out
}
