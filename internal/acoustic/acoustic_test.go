package acoustic

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestCenteredFrames(t *testing.T) {
	times := centeredFrames(1.0, 0.04, 0.01)
	require.Len(t, times, 97)
	assert.InDelta(t, 0.02, times[0], 1e-9)
	assert.InDelta(t, 0.98, times[len(times)-1], 1e-9)

	// frames sit symmetrically when the step does not divide the duration
	times = centeredFrames(1.005, 0.04, 0.01)
	require.Len(t, times, 97)
	assert.InDelta(t, 1.005-times[len(times)-1], times[0], 1e-9)

	assert.Nil(t, centeredFrames(0.01, 0.04, 0.01))
	assert.Nil(t, centeredFrames(1, 0.04, 0))
}

func TestFillFrame(t *testing.T) {
	samples := []float64{1, 2, 3, 4}
	frame := make([]float64, 3)

	fillFrame(frame, samples, -1)
	assert.Equal(t, []float64{0, 1, 2}, frame)

	fillFrame(frame, samples, 2)
	assert.Equal(t, []float64{3, 4, 0}, frame)
}

func TestPitchTrack(t *testing.T) {
	track := &PitchTrack{
		Times: []float64{0.1, 0.2, 0.3, 0.4},
		F0:    []float64{0, 100, 200, 0},
	}

	assert.Equal(t, []float64{100, 200}, track.Voiced(0, 1))
	assert.Equal(t, []float64{100}, track.Voiced(0.15, 0.25))
	assert.Equal(t, []float64{0.2, 0.3}, track.FrameTimes(0.2, 0.3))
	assert.InDelta(t, 150, track.MeanVoiced(), 1e-9)

	silent := &PitchTrack{Times: []float64{0.1}, F0: []float64{0}}
	assert.True(t, math.IsNaN(silent.MeanVoiced()))
	assert.True(t, math.IsNaN((&PitchTrack{}).MeanVoiced()))
}

func TestPitchSettings(t *testing.T) {
	s := PitchSettings{Floor: 75, Ceiling: 500, VoicingThreshold: 0.45}
	require.NoError(t, s.Validate())
	assert.InDelta(t, 0.01, s.Step(), 1e-12)
	assert.InDelta(t, 0.04, s.WindowLength(), 1e-12)

	s.TimeStep = 5 * time.Millisecond
	assert.InDelta(t, 0.005, s.Step(), 1e-12)

	assert.Error(t, PitchSettings{Floor: 0, Ceiling: 500}.Validate())
	assert.Error(t, PitchSettings{Floor: 500, Ceiling: 75}.Validate())
	assert.Error(t, PitchSettings{Floor: 75, Ceiling: 500, VoicingThreshold: 2}.Validate())

	_, err := NewPitchTracker(PitchSettings{}, nil)
	assert.Error(t, err)
}

func TestFormantSettings(t *testing.T) {
	s := FormantSettings{MaxFormant: 5500, NumFormants: 5, WindowLength: 25 * time.Millisecond}
	require.NoError(t, s.Validate())
	assert.InDelta(t, 0.00625, s.Step(), 1e-12)

	assert.Error(t, FormantSettings{NumFormants: 5, WindowLength: time.Millisecond}.Validate())
	assert.Error(t, FormantSettings{MaxFormant: 5500, NumFormants: 1, WindowLength: time.Millisecond}.Validate())
	assert.Error(t, FormantSettings{MaxFormant: 5500, NumFormants: 5}.Validate())
}

func TestFormantTrackValueAt(t *testing.T) {
	track := &FormantTrack{
		Times: []float64{0.1, 0.2, 0.3},
		Frames: [][]float64{
			{500, 1500},
			{700, 1700},
			{900},
		},
	}

	tests := []struct {
		name string
		n    int
		t    float64
		want float64
	}{
		{"on frame", 1, 0.2, 700},
		{"between frames", 1, 0.15, 600},
		{"before first within half step", 2, 0.06, 1500},
		{"after last within half step", 1, 0.34, 900},
		{"second formant interpolated", 2, 0.125, 1550},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, track.ValueAt(tt.n, tt.t), 1e-6)
		})
	}

	assert.True(t, math.IsNaN(track.ValueAt(1, 0.0)))
	assert.True(t, math.IsNaN(track.ValueAt(1, 0.4)))
	assert.True(t, math.IsNaN(track.ValueAt(2, 0.25)), "missing neighbour formant")
	assert.True(t, math.IsNaN(track.ValueAt(0, 0.2)))
	assert.True(t, math.IsNaN((&FormantTrack{}).ValueAt(1, 0.2)))
}

func TestSelectFormants(t *testing.T) {
	settings := FormantSettings{MaxFormant: 4000, NumFormants: 3, WindowLength: 40 * time.Millisecond}
	got := selectFormants([]float64{2500, 30, 700, math.NaN(), 3990, 1200, 3100}, settings)
	assert.Equal(t, []float64{700, 1200, 2500}, got)
}

func TestPreEmphasize(t *testing.T) {
	samples := []float64{1, 1, 1}
	preEmphasize(samples, 10000, 50)

	alpha := math.Exp(-2 * math.Pi * 50 / 10000)
	assert.Equal(t, 1.0, samples[0])
	assert.InDelta(t, 1-alpha, samples[1], 1e-12)
	assert.InDelta(t, 1-alpha, samples[2], 1e-12)
}

func TestResampleForSameRate(t *testing.T) {
	snd := &Sound{Samples: []float64{1, 2, 3}, SampleRate: 8000}
	out, rate, err := resampleFor(snd, 8000)
	require.NoError(t, err)
	assert.Equal(t, 8000.0, rate)
	assert.Equal(t, snd.Samples, out)

	out[0] = 9
	assert.Equal(t, 1.0, snd.Samples[0], "input must not be modified")
}

func TestLPCPolynomialResonance(t *testing.T) {
	// impulse response of a single resonance at 1 kHz
	const rate, freq, radius = 10000.0, 1000.0, 0.99
	theta := 2 * math.Pi * freq / rate
	x := make([]float64, 2000)
	x[0] = 1
	x[1] = 2 * radius * math.Cos(theta)
	for n := 2; n < len(x); n++ {
		x[n] = 2*radius*math.Cos(theta)*x[n-1] - radius*radius*x[n-2]
	}

	poly, ok := lpcPolynomial(x, 2)
	require.True(t, ok)
	assert.InDelta(t, -2*radius*math.Cos(theta), poly[1], 1e-6)
	assert.InDelta(t, radius*radius, poly[2], 1e-6)

	freqs, err := polynomialFormants(poly, rate)
	require.NoError(t, err)
	require.Len(t, freqs, 1)
	assert.InDelta(t, freq, freqs[0], 1)

	_, ok = lpcPolynomial(make([]float64, 100), 4)
	assert.False(t, ok, "silent frame")
}

func TestTrackersOnVowel(t *testing.T) {
	for _, rate := range []int{16000, 48000} {
		t.Run(strconv.Itoa(rate), func(t *testing.T) {
			snd := &Sound{Samples: synthVowel(rate, 0.5, 150, 700, 1200, 2600, 3600), SampleRate: rate}

			pitch, err := NewPitchTracker(PitchSettings{Floor: 75, Ceiling: 500, VoicingThreshold: 0.45}, nil)
			require.NoError(t, err)
			pt, err := pitch.Track(snd)
			require.NoError(t, err)
			require.NotEmpty(t, pt.Times)

			voiced := pt.Voiced(pt.Times[0], pt.Times[len(pt.Times)-1])
			assert.Greater(t, len(voiced), len(pt.Times)/2, "most frames are voiced")
			sort.Float64s(voiced)
			assert.InDelta(t, 150, stat.Quantile(0.5, stat.Empirical, voiced, nil), 15)

			formants := NewFormantTracker(nil)
			ft, err := formants.Track(snd, FormantSettings{
				MaxFormant: 5000, NumFormants: 5, WindowLength: 25 * time.Millisecond,
			})
			require.NoError(t, err)

			f1, f2 := ft.ValueAt(1, 0.25), ft.ValueAt(2, 0.25)
			require.False(t, math.IsNaN(f1))
			require.False(t, math.IsNaN(f2))
			assert.InDelta(t, 700, f1, 300)
			assert.InDelta(t, 1200, f2, 400)
			assert.Less(t, f1, f2)
		})
	}
}

func TestFormantTrackerSilence(t *testing.T) {
	snd := &Sound{Samples: make([]float64, 8000), SampleRate: 16000}
	_, err := NewFormantTracker(nil).Track(snd, FormantSettings{
		MaxFormant: 5000, NumFormants: 5, WindowLength: 25 * time.Millisecond,
	})
	assert.Error(t, err)
}

func TestMixDown(t *testing.T) {
	assert.Equal(t, []float64{1, 2}, mixDown([]float64{1, 2}, 1))
	assert.Equal(t, []float64{0.5, 2}, mixDown([]float64{0, 1, 2, 2}, 2))
}

func TestFindSound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.wav"), nil, 0o644))

	path, ok := FindSound(dir, "clip", []string{".mp3", ".wav"})
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "clip.wav"), path)

	_, ok = FindSound(dir, "other", []string{".mp3", ".wav"})
	assert.False(t, ok)
}

func TestLoadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, os.WriteFile(path, pcm16WAV(16000, make([]int16, 1600)), 0o644))

	snd, err := NewFileLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16000, snd.SampleRate)
	assert.Len(t, snd.Samples, 1600)
	assert.InDelta(t, 0.1, snd.Duration(), 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewFileLoader(nil).Load(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

// synthVowel sums the harmonics of f0 below 5 kHz, shaped by resonances at
// the given formant frequencies and a falling source spectrum.
func synthVowel(rate int, dur, f0 float64, formants ...float64) []float64 {
	const bandwidth = 80.0
	out := make([]float64, int(dur*float64(rate)))
	for k := 1; float64(k)*f0 < 5000; k++ {
		f := float64(k) * f0
		amp := 1 / float64(k)
		for _, fc := range formants {
			amp *= fc * fc / math.Hypot(fc*fc-f*f, bandwidth*f)
		}
		w := 2 * math.Pi * f / float64(rate)
		for i := range out {
			out[i] += amp * math.Cos(w*float64(i))
		}
	}

	peak := 0.0
	for _, v := range out {
		peak = math.Max(peak, math.Abs(v))
	}
	for i := range out {
		out[i] *= 0.5 / peak
	}
	return out
}

// pcm16WAV builds a minimal mono 16 bit PCM WAV file.
func pcm16WAV(rate int, samples []int16) []byte {
	var buf bytes.Buffer
	dataLen := len(samples) * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}
