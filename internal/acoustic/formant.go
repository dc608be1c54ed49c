package acoustic

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/algo-dsp/dsp/window"
	"gonum.org/v1/gonum/mat"
)

const (
	preEmphasisFrom = 50.0
	formantMargin   = 50.0
)

// Validate checks that the settings describe a usable analysis.
func (s FormantSettings) Validate() error {
	if s.MaxFormant <= 0 {
		return fmt.Errorf("maximum formant must be positive")
	}
	if s.NumFormants < 2 {
		return fmt.Errorf("at least two formants are required, got %d", s.NumFormants)
	}
	if s.WindowLength <= 0 {
		return fmt.Errorf("formant window length must be positive")
	}
	return nil
}

// LPCFormantTracker fits an all-pole model of 2*NumFormants poles to
// overlapping frames of a resampled, pre-emphasised copy of the signal and
// reads the formants off the roots of the prediction polynomial.
type LPCFormantTracker struct {
	logger logging.Logger
}

// NewFormantTracker creates a tracker.
func NewFormantTracker(logger logging.Logger) *LPCFormantTracker {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &LPCFormantTracker{logger: logger}
}

// Track estimates up to settings.NumFormants formants per frame.
func (f *LPCFormantTracker) Track(snd *Sound, settings FormantSettings) (*FormantTrack, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if snd == nil || len(snd.Samples) == 0 {
		return nil, fmt.Errorf("empty sound")
	}

	samples, rate, err := resampleFor(snd, 2*settings.MaxFormant)
	if err != nil {
		return nil, err
	}
	preEmphasize(samples, rate, preEmphasisFrom)

	duration := float64(len(samples)) / rate
	win := 2 * settings.WindowLength.Seconds()
	times := centeredFrames(duration, win, settings.Step())
	track := &FormantTrack{
		Times:  times,
		Frames: make([][]float64, len(times)),
	}

	frameLen := int(math.Round(win * rate))
	if len(times) == 0 || frameLen < 2 {
		return track, nil
	}

	order := 2 * settings.NumFormants
	if frameLen <= order {
		return nil, fmt.Errorf("formant frame of %d samples is too short for %d poles", frameLen, order)
	}
	coeffs := window.Generate(window.TypeHamming, frameLen)
	frame := make([]float64, frameLen)

	failed := 0
	for i, center := range times {
		fillFrame(frame, samples, int(math.Round((center-win/2)*rate)))
		if err := window.ApplyCoefficientsInPlace(frame, coeffs); err != nil {
			return nil, fmt.Errorf("failed to window formant frame: %w", err)
		}

		poly, ok := lpcPolynomial(frame, order)
		if !ok {
			failed++
			continue
		}
		freqs, err := polynomialFormants(poly, rate)
		if err != nil {
			failed++
			continue
		}
		track.Frames[i] = selectFormants(freqs, settings)
	}

	f.logger.Debug("Formants tracked", logging.Fields{
		"frames":        len(times),
		"failed_frames": failed,
		"analysis_rate": rate,
		"max_formant":   settings.MaxFormant,
	})

	if failed == len(times) {
		return nil, fmt.Errorf("no formant frame could be analysed (%d frames)", len(times))
	}
	return track, nil
}

// lpcPolynomial returns the prediction error filter 1 + a1 z^-1 + ... + ap z^-p
// of frame by the autocorrelation method. It reports false for a silent frame.
func lpcPolynomial(frame []float64, order int) ([]float64, bool) {
	r := make([]float64, order+1)
	for lag := range r {
		var sum float64
		for j := lag; j < len(frame); j++ {
			sum += frame[j] * frame[j-lag]
		}
		r[lag] = sum
	}
	if r[0] <= 0 {
		return nil, false
	}

	// Durbin's recursion
	a := make([]float64, order+1)
	prev := make([]float64, order+1)
	a[0] = 1
	e := r[0]
	for i := 1; i <= order; i++ {
		acc := r[i]
		for j := 1; j < i; j++ {
			acc += a[j] * r[i-j]
		}
		k := -acc / e
		copy(prev, a)
		for j := 1; j < i; j++ {
			a[j] = prev[j] + k*prev[i-j]
		}
		a[i] = k
		e *= 1 - k*k
		if e <= 0 {
			break
		}
	}
	return a, true
}

// polynomialFormants returns the resonance frequencies of the poles of 1/A(z),
// one per conjugate pair, from the eigenvalues of the companion matrix.
func polynomialFormants(poly []float64, rate float64) ([]float64, error) {
	p := len(poly) - 1
	if p < 1 {
		return nil, nil
	}

	comp := mat.NewDense(p, p, nil)
	for j := 0; j < p; j++ {
		comp.Set(0, j, -poly[j+1]/poly[0])
	}
	for i := 1; i < p; i++ {
		comp.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if !eig.Factorize(comp, mat.EigenNone) {
		return nil, fmt.Errorf("root finding did not converge")
	}

	var freqs []float64
	for _, z := range eig.Values(nil) {
		if imag(z) <= 0 {
			continue
		}
		freqs = append(freqs, cmplx.Phase(z)*rate/(2*math.Pi))
	}
	return freqs, nil
}

// selectFormants keeps the lowest NumFormants candidates that lie inside the
// analysis band.
func selectFormants(freqs []float64, settings FormantSettings) []float64 {
	kept := make([]float64, 0, len(freqs))
	for _, fr := range freqs {
		if math.IsNaN(fr) || fr <= formantMargin || fr >= settings.MaxFormant-formantMargin {
			continue
		}
		kept = append(kept, fr)
	}
	sort.Float64s(kept)
	if len(kept) > settings.NumFormants {
		kept = kept[:settings.NumFormants]
	}
	return kept
}

// resampleFor converts snd to target Hz, trimming the filter delay so frame
// times stay aligned with the original recording.
func resampleFor(snd *Sound, target float64) ([]float64, float64, error) {
	rate := float64(snd.SampleRate)
	if math.Abs(rate-target) < 1 {
		out := make([]float64, len(snd.Samples))
		copy(out, snd.Samples)
		return out, rate, nil
	}

	r, err := resample.NewForRates(rate, target)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create resampler: %w", err)
	}
	up, down := r.Ratio()
	outRate := rate * float64(up) / float64(down)

	out := r.Process(snd.Samples)
	delaySeconds := float64(len(r.Prototype())-1) / 2 / (rate * float64(up))
	if skip := int(math.Round(delaySeconds * outRate)); skip > 0 && skip < len(out) {
		out = out[skip:]
	}

	return out, outRate, nil
}

// preEmphasize applies a first order high-pass boosting energy above from Hz.
func preEmphasize(samples []float64, rate, from float64) {
	if len(samples) < 2 {
		return
	}
	alpha := math.Exp(-2 * math.Pi * from / rate)
	for i := len(samples) - 1; i > 0; i-- {
		samples[i] -= alpha * samples[i-1]
	}
}
