package acoustic

import (
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/sonido-sonar/algorithms/tonal"
	dsptime "github.com/cwbudde/algo-dsp/stats/time"
)

// PitchSettings configures the autocorrelation pitch tracker.
type PitchSettings struct {
	Floor            float64
	Ceiling          float64
	VoicingThreshold float64
	SilenceThreshold float64
	// TimeStep defaults to 0.75 / Floor when zero.
	TimeStep time.Duration
}

// Step returns the effective frame step in seconds.
func (s PitchSettings) Step() float64 {
	if s.TimeStep > 0 {
		return s.TimeStep.Seconds()
	}
	return 0.75 / s.Floor
}

// WindowLength covers three periods of the pitch floor.
func (s PitchSettings) WindowLength() float64 {
	return 3 / s.Floor
}

// Validate checks the pitch range.
func (s PitchSettings) Validate() error {
	if s.Floor <= 0 {
		return fmt.Errorf("pitch floor must be positive")
	}
	if s.Ceiling <= s.Floor {
		return fmt.Errorf("pitch ceiling must be above the floor")
	}
	if s.VoicingThreshold < 0 || s.VoicingThreshold > 1 {
		return fmt.Errorf("voicing threshold must be between 0 and 1")
	}
	return nil
}

// SonidoPitchTracker frames the signal the way a Praat AC pitch analysis
// does and runs sonido-sonar's YIN detector on each frame. It is safe for
// concurrent use.
type SonidoPitchTracker struct {
	settings PitchSettings
	logger   logging.Logger
}

// NewPitchTracker creates a tracker.
func NewPitchTracker(settings PitchSettings, logger logging.Logger) (*SonidoPitchTracker, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SonidoPitchTracker{settings: settings, logger: logger}, nil
}

// Track estimates F0 for every analysis frame of snd.
func (p *SonidoPitchTracker) Track(snd *Sound) (*PitchTrack, error) {
	if snd == nil || len(snd.Samples) == 0 {
		return nil, fmt.Errorf("empty sound")
	}

	sr := float64(snd.SampleRate)
	frames := centeredFrames(snd.Duration(), p.settings.WindowLength(), p.settings.Step())
	frameLen := int(math.Round(p.settings.WindowLength() * sr))

	track := &PitchTrack{
		Times: frames,
		F0:    make([]float64, len(frames)),
	}
	if len(frames) == 0 || frameLen < 2 {
		return track, nil
	}

	detector := p.detector(snd.SampleRate, frameLen)
	globalPeak := dsptime.Peak(snd.Samples)
	frame := make([]float64, frameLen)

	analysed, failed, voiced := 0, 0, 0
	for i, center := range frames {
		fillFrame(frame, snd.Samples, int(math.Round((center-p.settings.WindowLength()/2)*sr)))
		if dsptime.Peak(frame) < p.settings.SilenceThreshold*globalPeak {
			continue
		}

		analysed++
		result, err := detector.DetectPitch(frame)
		if err != nil {
			failed++
			continue
		}
		if result.Voicing < p.settings.VoicingThreshold {
			continue
		}
		if result.Pitch < p.settings.Floor || result.Pitch > p.settings.Ceiling {
			continue
		}
		track.F0[i] = result.Pitch
		voiced++
	}

	p.logger.Debug("Pitch tracked", logging.Fields{
		"frames":        len(frames),
		"voiced_frames": voiced,
		"failed_frames": failed,
	})

	if analysed > 0 && failed == analysed {
		return nil, fmt.Errorf("no pitch frame could be analysed (%d frames)", analysed)
	}
	return track, nil
}

// detector builds a YIN detector over frames of frameLen samples, searching
// the configured pitch range. Frames are judged independently, so the
// detector's own smoothing across frames is off.
func (p *SonidoPitchTracker) detector(sampleRate, frameLen int) *tonal.PitchDetector {
	params := tonal.NewPitchDetector(sampleRate).GetParameters()
	params.Method = tonal.AutocorrelationYin
	params.WindowSize = frameLen
	params.HopSize = max(1, int(math.Round(p.settings.Step()*float64(sampleRate))))
	params.MinFreq = p.settings.Floor
	params.MaxFreq = p.settings.Ceiling
	params.VoicingThreshold = p.settings.VoicingThreshold
	params.PreEmphasis = false
	params.WindowFunction = "rectangular"
	params.MedianFilter = 0
	params.TemporalSmoothing = false
	params.OctaveCorrection = false
	return tonal.NewPitchDetectorWithParams(params)
}

// centeredFrames returns the centre times of analysis frames of length win
// and hop step, placed symmetrically in a signal of the given duration.
func centeredFrames(duration, win, step float64) []float64 {
	if duration < win || step <= 0 {
		return nil
	}
	n := int(math.Floor((duration-win)/step+1e-9)) + 1
	first := (duration - float64(n-1)*step) / 2
	times := make([]float64, n)
	for i := range times {
		times[i] = first + float64(i)*step
	}
	return times
}

// fillFrame copies samples starting at offset into frame, zero padding
// beyond either end of the signal.
func fillFrame(frame, samples []float64, offset int) {
	for i := range frame {
		j := offset + i
		if j < 0 || j >= len(samples) {
			frame[i] = 0
			continue
		}
		frame[i] = samples[j]
	}
}
