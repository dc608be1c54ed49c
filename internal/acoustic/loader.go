package acoustic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/latency-benchmark-common/stream/common"
	"github.com/RyanBlaney/sonido-sonar/transcode"
	"github.com/mjibson/go-dsp/wav"
)

const wavReadChunk = 1 << 14

// FileLoader decodes WAV files natively and everything else through the
// normalising transcoder.
type FileLoader struct {
	logger logging.Logger
}

// NewFileLoader creates a loader.
func NewFileLoader(logger logging.Logger) *FileLoader {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &FileLoader{logger: logger}
}

// Load decodes path into a mono Sound.
func (l *FileLoader) Load(path string) (*Sound, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		snd *Sound
		err error
	)
	if ext == ".wav" {
		snd, err = l.loadWAV(path)
	} else {
		snd, err = l.loadEncoded(path, strings.TrimPrefix(ext, "."))
	}
	if err != nil {
		return nil, err
	}
	if len(snd.Samples) == 0 || snd.SampleRate <= 0 {
		return nil, fmt.Errorf("decoded audio is empty: %s", path)
	}

	l.logger.Debug("Audio loaded", logging.Fields{
		"path":        path,
		"sample_rate": snd.SampleRate,
		"duration_s":  snd.Duration(),
	})

	return snd, nil
}

func (l *FileLoader) loadWAV(path string) (*Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	w, err := wav.New(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	var interleaved []float64
	for {
		chunk, err := w.ReadFloats(wavReadChunk)
		for _, v := range chunk {
			interleaved = append(interleaved, float64(v))
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || (err == nil && len(chunk) == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read WAV samples: %w", err)
		}
	}

	return &Sound{
		Samples:    mixDown(interleaved, int(w.Header.NumChannels)),
		SampleRate: int(w.Header.SampleRate),
	}, nil
}

func (l *FileLoader) loadEncoded(path, contentType string) (*Sound, error) {
	decoder := transcode.NewNormalizingDecoder(contentType)
	anyData, err := decoder.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio file: %w", err)
	}

	audioData := common.ConvertToAudioData(anyData)
	if audioData == nil {
		return nil, fmt.Errorf("decoder returned unexpected type: %T", anyData)
	}

	return &Sound{
		Samples:    mixDown(audioData.PCM, audioData.Channels),
		SampleRate: audioData.SampleRate,
	}, nil
}

// mixDown averages interleaved channels into one.
func mixDown(pcm []float64, channels int) []float64 {
	if channels <= 1 {
		return pcm
	}
	frames := len(pcm) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += pcm[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// FindSound returns the first existing recording named id in dir, trying
// extensions in order.
func FindSound(dir, id string, extensions []string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(dir, id+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
