// Package acoustic wraps the signal-processing libraries used to load
// recordings and track pitch and formants over them.
package acoustic

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Sound is a mono recording.
type Sound struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the recording length in seconds.
func (s *Sound) Duration() float64 {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Loader decodes a recording from disk.
type Loader interface {
	Load(path string) (*Sound, error)
}

// PitchTracker estimates F0 over a recording.
type PitchTracker interface {
	Track(snd *Sound) (*PitchTrack, error)
}

// FormantTracker estimates formant frequencies over a recording.
type FormantTracker interface {
	Track(snd *Sound, settings FormantSettings) (*FormantTrack, error)
}

// PitchTrack holds one F0 estimate per analysis frame. Unvoiced frames are 0.
type PitchTrack struct {
	Times []float64
	F0    []float64
}

// Voiced returns the F0 of voiced frames whose time lies in [from, to].
func (p *PitchTrack) Voiced(from, to float64) []float64 {
	var out []float64
	for i, t := range p.Times {
		if t < from || t > to {
			continue
		}
		if p.F0[i] > 0 {
			out = append(out, p.F0[i])
		}
	}
	return out
}

// FrameTimes returns the frame times lying in [from, to].
func (p *PitchTrack) FrameTimes(from, to float64) []float64 {
	var out []float64
	for _, t := range p.Times {
		if t >= from && t <= to {
			out = append(out, t)
		}
	}
	return out
}

// MeanVoiced returns the mean F0 over all voiced frames, or NaN.
func (p *PitchTrack) MeanVoiced() float64 {
	if len(p.Times) == 0 {
		return math.NaN()
	}
	return Mean(p.Voiced(p.Times[0], p.Times[len(p.Times)-1]))
}

// FormantSettings configures formant tracking.
type FormantSettings struct {
	MaxFormant   float64       `mapstructure:"max_formant" yaml:"max_formant" json:"max_formant" toml:"max_formant"`
	NumFormants  int           `mapstructure:"num_formants" yaml:"num_formants" json:"num_formants" toml:"num_formants"`
	WindowLength time.Duration `mapstructure:"window_length" yaml:"window_length" json:"window_length" toml:"window_length"`
	// TimeStep defaults to a quarter of the window length when zero.
	TimeStep time.Duration `mapstructure:"time_step" yaml:"time_step" json:"time_step" toml:"time_step"`
}

// Step returns the effective analysis step in seconds.
func (s FormantSettings) Step() float64 {
	if s.TimeStep > 0 {
		return s.TimeStep.Seconds()
	}
	return s.WindowLength.Seconds() / 4
}

// FormantTrack holds the formants found in each analysis frame, lowest first.
type FormantTrack struct {
	Times  []float64
	Frames [][]float64
}

// ValueAt returns formant n (1-based) at time t, linearly interpolated
// between neighbouring frames. NaN means undefined: t lies outside the
// analysed range or a neighbouring frame lacks formant n.
func (f *FormantTrack) ValueAt(n int, t float64) float64 {
	count := len(f.Times)
	if n < 1 || count == 0 {
		return math.NaN()
	}

	value := func(i int) float64 {
		if n > len(f.Frames[i]) {
			return math.NaN()
		}
		return f.Frames[i][n-1]
	}

	if count == 1 {
		return value(0)
	}

	step := f.Times[1] - f.Times[0]
	index := (t - f.Times[0]) / step
	if index < -0.5 || index > float64(count-1)+0.5 {
		return math.NaN()
	}
	if index <= 0 {
		return value(0)
	}
	if index >= float64(count-1) {
		return value(count - 1)
	}

	lo := int(math.Floor(index))
	hi := lo + 1
	frac := index - float64(lo)
	if frac == 0 {
		return value(lo)
	}
	return value(lo)*(1-frac) + value(hi)*frac
}

// Mean is the arithmetic mean of values, NaN when empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}
