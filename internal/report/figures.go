package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/vowelspace/internal/stats"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	pointColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	lineColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	ellipseColor = color.NRGBA{B: 255, A: 77}
)

// Point is one labelled observation of a scatter figure.
type Point struct {
	Label string
	X, Y  float64
}

// Scatter describes a regression figure.
type Scatter struct {
	Title  string
	XLabel string
	YLabel string
	Points []Point
	Fit    *stats.Regression
}

// InventoryTitle formats an inventory label for figure titles, e.g.
// "base" becomes "Base Inventory".
func InventoryTitle(inventory string) string {
	return cases.Title(language.English).String(inventory + " inventory")
}

// FormantScatter builds the figure of a formant SD against inventory size.
func FormantScatter(formant, inventory string, points []Point, fit *stats.Regression) Scatter {
	return Scatter{
		Title:  fmt.Sprintf("Standard Deviation of %s vs Number of Vowels (%s)", formant, InventoryTitle(inventory)),
		XLabel: "Number of Vowels",
		YLabel: fmt.Sprintf("%s Standard Deviation (Hz)", formant),
		Points: points,
		Fit:    fit,
	}
}

// FigureName is the file name of a formant scatter figure.
func FigureName(formant, inventory string) string {
	return fmt.Sprintf("%s_std_%s_inventory.png", formant, inventory)
}

// Plot builds the scatter with its fitted line.
func (s Scatter) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = s.XLabel
	p.Y.Label.Text = s.YLabel
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, 0, len(s.Points))
	var labels []string
	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, pt := range s.Points {
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
		labels = append(labels, pt.Label)
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
	}
	if len(xys) == 0 {
		return nil, fmt.Errorf("no points to plot")
	}

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %w", err)
	}
	sc.GlyphStyle.Color = pointColor
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(4)
	p.Add(sc)

	names, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("failed to create point labels: %w", err)
	}
	names.Offset = vg.Point{X: vg.Points(5), Y: vg.Points(3)}
	for i := range names.TextStyle {
		names.TextStyle[i].Font.Size = vg.Points(8)
	}
	p.Add(names)

	if s.Fit != nil && !math.IsNaN(s.Fit.Slope) {
		fit := s.Fit
		line := plotter.NewFunction(func(x float64) float64 { return fit.Intercept + fit.Slope*x })
		line.XMin, line.XMax = minX, maxX
		line.Color = lineColor
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("slope %.3f, p %.3f, R² %.3f", fit.Slope, fit.PValue, fit.RSquared), line)
		p.Legend.Top = true
	}
	return p, nil
}

// Save writes the figure as an image. The format follows the extension.
func (s Scatter) Save(path string) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	return save(p, 8*vg.Inch, 6*vg.Inch, path)
}

func save(p *plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create figure directory: %w", err)
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save figure: %w", err)
	}
	return nil
}

// VowelPosition places a vowel label at (F2, F1) in Hz.
type VowelPosition struct {
	Vowel  string
	F2, F1 float64
}

// EllipseLayout is a schematic vowel space: one ellipse per vowel inside the
// given F2 and F1 ranges.
type EllipseLayout struct {
	Name          string
	Vowels        []VowelPosition
	Width, Height float64
	F2Min, F2Max  float64
	F1Min, F1Max  float64
	FontSize      float64
}

// TwelveVowelLayout is the crowded inventory of the dispersion illustration.
var TwelveVowelLayout = EllipseLayout{
	Name: "vowel_inventory_ellipses_12.png",
	Vowels: []VowelPosition{
		{"i", 300, 300}, {"ɪ", 500, 350}, {"ʊ", 800, 350}, {"o", 1000, 475},
		{"u", 1100, 300}, {"e", 350, 420}, {"ə", 700, 480}, {"ɔ", 950, 600},
		{"ɛ", 420, 550}, {"æ", 480, 660}, {"a", 600, 750}, {"ɑ", 850, 750},
	},
	Width:    150,
	Height:   100,
	F2Min:    200,
	F2Max:    1200,
	F1Min:    200,
	F1Max:    800,
	FontSize: 25,
}

// ThreeVowelLayout is the sparse a/i/u inventory.
var ThreeVowelLayout = EllipseLayout{
	Name:     "vowel_inventory_ellipses_3.png",
	Vowels:   []VowelPosition{{"i", 300, 300}, {"u", 1000, 300}, {"a", 600, 650}},
	Width:    500,
	Height:   300,
	F2Min:    0,
	F2Max:    1300,
	F1Min:    100,
	F1Max:    850,
	FontSize: 30,
}

// EllipseLayouts are the figures written by the plot command.
var EllipseLayouts = []EllipseLayout{TwelveVowelLayout, ThreeVowelLayout}

const ellipseSegments = 96

// ellipse returns the outline of an axis-aligned ellipse.
func ellipse(cx, cy, w, h float64, n int) plotter.XYs {
	pts := make(plotter.XYs, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = plotter.XY{X: cx + w/2*math.Cos(a), Y: cy + h/2*math.Sin(a)}
	}
	return pts
}

// Plot draws the layout. F1 grows downwards; the frame is closed on the top
// and right edges, which carry the axis labels.
func (l EllipseLayout) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.X.Min, p.X.Max = l.F2Min, l.F2Max
	p.Y.Min, p.Y.Max = l.F1Min, l.F1Max
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.X.Padding, p.Y.Padding = 0, 0
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Tick.Marker = plot.ConstantTicks(nil)
		ax.Tick.Length = 0
		ax.LineStyle.Width = 0
	}

	xys := make(plotter.XYs, len(l.Vowels))
	labels := make([]string, len(l.Vowels))
	for i, v := range l.Vowels {
		poly, err := plotter.NewPolygon(ellipse(v.F2, v.F1, l.Width, l.Height, ellipseSegments))
		if err != nil {
			return nil, fmt.Errorf("failed to create ellipse for %s: %w", v.Vowel, err)
		}
		poly.Color = ellipseColor
		poly.LineStyle.Width = 0
		p.Add(poly)

		xys[i] = plotter.XY{X: v.F2, Y: v.F1}
		labels[i] = v.Vowel
	}

	vowels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("failed to create vowel labels: %w", err)
	}
	for i := range vowels.TextStyle {
		vowels.TextStyle[i].Font.Size = vg.Points(l.FontSize)
		vowels.TextStyle[i].XAlign = draw.XCenter
		vowels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(vowels)

	frame, err := plotter.NewLine(plotter.XYs{
		{X: l.F2Min, Y: l.F1Min},
		{X: l.F2Max, Y: l.F1Min},
		{X: l.F2Max, Y: l.F1Max},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create frame: %w", err)
	}
	frame.LineStyle.Width = vg.Points(1.5)
	p.Add(frame)

	axes, err := plotter.NewLabels(plotter.XYLabels{
		XYs: plotter.XYs{
			{X: (l.F2Min + l.F2Max) / 2, Y: l.F1Min},
			{X: l.F2Max, Y: (l.F1Min + l.F1Max) / 2},
		},
		Labels: []string{"F2 (Hz)", "F1 (Hz)"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create axis labels: %w", err)
	}
	axes.TextStyle[0].XAlign = draw.XCenter
	axes.TextStyle[0].YAlign = draw.YBottom
	axes.TextStyle[1].XAlign = draw.XCenter
	axes.TextStyle[1].YAlign = draw.YTop
	axes.TextStyle[1].Rotation = -math.Pi / 2
	for i := range axes.TextStyle {
		axes.TextStyle[i].Font.Size = vg.Points(12)
	}
	p.Add(axes)

	return p, nil
}

// Save writes the layout figure to path.
func (l EllipseLayout) Save(path string) error {
	p, err := l.Plot()
	if err != nil {
		return err
	}
	return save(p, 8*vg.Inch, 6*vg.Inch, path)
}
