package extract

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/vowelspace/internal/acoustic"
	"github.com/RyanBlaney/vowelspace/pkg/ipa"
	"github.com/RyanBlaney/vowelspace/pkg/textgrid"
)

// Engine measures the vowels of one aligned recording at a time.
type Engine struct {
	cfg      *Config
	loader   acoustic.Loader
	pitch    acoustic.PitchTracker
	formants acoustic.FormantTracker
	logger   logging.Logger
}

// EngineConfig wires the engine. Nil analysers fall back to the file loader
// and the sonido trackers.
type EngineConfig struct {
	Config         *Config
	Loader         acoustic.Loader
	PitchTracker   acoustic.PitchTracker
	FormantTracker acoustic.FormantTracker
	Logger         logging.Logger
}

// NewEngine creates an extraction engine.
func NewEngine(config *EngineConfig) (*Engine, error) {
	if config.Config == nil {
		return nil, fmt.Errorf("extraction config is required")
	}
	if err := config.Config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	e := &Engine{
		cfg:      config.Config,
		loader:   config.Loader,
		pitch:    config.PitchTracker,
		formants: config.FormantTracker,
		logger:   logger,
	}
	if e.loader == nil {
		e.loader = acoustic.NewFileLoader(logger)
	}
	if e.pitch == nil {
		tracker, err := acoustic.NewPitchTracker(config.Config.Pitch, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create pitch tracker: %w", err)
		}
		e.pitch = tracker
	}
	if e.formants == nil {
		e.formants = acoustic.NewFormantTracker(logger)
	}
	return e, nil
}

// utterance describes the labelled span of a segment tier.
type utterance struct {
	start    float64
	end      float64
	totalDur float64
	phones   int
}

func (u utterance) duration() float64 {
	return u.end - u.start
}

// ProcessFile measures every eligible vowel in the TextGrid at tgPath, whose
// recording is looked up in soundDir. Failures are reported on the result.
func (e *Engine) ProcessFile(ctx context.Context, lang, tgPath, soundDir string) *FileResult {
	start := time.Now()
	fileID := strings.TrimSuffix(filepath.Base(tgPath), filepath.Ext(tgPath))
	result := &FileResult{Path: tgPath, FileID: fileID}
	defer func() { result.Duration = time.Since(start) }()

	logger := e.logger.WithFields(logging.Fields{"file_id": fileID})

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	soundPath, ok := acoustic.FindSound(soundDir, fileID, e.cfg.SoundExtensions)
	if !ok {
		logger.Warn("Sound file does not exist, skipping", logging.Fields{
			"sound_dir":  soundDir,
			"extensions": e.cfg.SoundExtensions,
		})
		result.Skipped = true
		result.SkipReason = "missing sound file"
		return result
	}

	tg, err := textgrid.ParseFile(tgPath)
	if err != nil {
		result.Error = err
		logger.Error(err, "Failed to parse TextGrid")
		return result
	}
	words, segs, err := tg.WordsAndSegments()
	if err != nil {
		result.Error = err
		logger.Error(err, "Failed to read tiers")
		return result
	}

	if len(words.Intervals) < e.cfg.MinWords {
		result.Skipped = true
		result.SkipReason = "too few words"
		logger.Debug("Skipping short utterance", logging.Fields{"word_intervals": len(words.Intervals)})
		return result
	}

	utt, err := describeUtterance(segs.Intervals)
	if err != nil {
		result.Error = err
		logger.Error(err, "Failed to locate utterance")
		return result
	}

	snd, err := e.loader.Load(soundPath)
	if err != nil {
		result.Error = err
		logger.Error(err, "Failed to load sound", logging.Fields{"sound_path": soundPath})
		return result
	}

	pitch, err := e.pitch.Track(snd)
	if err != nil {
		result.Error = fmt.Errorf("failed to track pitch: %w", err)
		logger.Error(err, "Failed to track pitch")
		return result
	}

	pitchRange, settings := e.formantSettings(pitch.MeanVoiced())
	formants, err := e.formants.Track(snd, settings)
	if err != nil {
		result.Error = fmt.Errorf("failed to track formants: %w", err)
		logger.Error(err, "Failed to track formants")
		return result
	}

	base := Token{
		LangCode:   lang,
		FileID:     fileID,
		PitchRange: pitchRange,
		UttDur:     int(roundHalfEven(utt.totalDur * 1000)),
		NPhone:     utt.phones,
	}

	for i, seg := range segs.Intervals {
		if seg.Label == "" || !ipa.ContainsVowel(seg.Label) || !ipa.IsMonophthong(seg.Label) {
			continue
		}

		tok, ok, counted := e.measureSegment(base, segs.Intervals, i, words.Intervals, utt, pitch, formants, logger)
		if !counted {
			continue
		}
		if !ok {
			result.Failed++
			continue
		}
		result.Tokens = append(result.Tokens, tok)
		result.Processed++
	}

	logger.Debug("TextGrid processed", logging.Fields{
		"pitch_range": pitchRange,
		"processed":   result.Processed,
		"failed":      result.Failed,
	})

	return result
}

// formantSettings picks the low settings when the recording mean F0 is at or
// below the threshold. An undefined mean counts as high.
func (e *Engine) formantSettings(meanF0 float64) (PitchRange, acoustic.FormantSettings) {
	if meanF0 <= e.cfg.LowPitchThreshold {
		return PitchLow, e.cfg.LowFormants
	}
	return PitchHigh, e.cfg.HighFormants
}

// measureSegment measures segment i. counted is false when the segment is
// dropped without counting as a failure; ok is false for a failed token.
func (e *Engine) measureSegment(
	base Token,
	segs []textgrid.Interval,
	i int,
	words []textgrid.Interval,
	utt utterance,
	pitch *acoustic.PitchTrack,
	formants *acoustic.FormantTrack,
	logger logging.Logger,
) (tok Token, ok, counted bool) {
	seg := segs[i]
	segDur := int(roundHalfEven(seg.Duration() * 1000))
	if segDur < int(e.cfg.MinSegmentDuration.Milliseconds()) {
		return Token{}, false, true
	}

	wordIdx, found := findWord(words, seg)
	if !found {
		logger.Warn("No matching word found for segment", logging.Fields{
			"segment":  seg.Label,
			"interval": i,
		})
		return Token{}, false, false
	}
	word := words[wordIdx]

	d := seg.Duration()
	midFrom := seg.Start + d*e.cfg.MidWindowFraction
	midTo := seg.End - d*e.cfg.MidWindowFraction

	midF0 := pitch.Voiced(midFrom, midTo)
	var f1s, f2s []float64
	for _, t := range pitch.FrameTimes(midFrom, midTo) {
		if v := formants.ValueAt(1, t); !math.IsNaN(v) {
			f1s = append(f1s, v)
		}
		if v := formants.ValueAt(2, t); !math.IsNaN(v) {
			f2s = append(f2s, v)
		}
	}
	if len(midF0) == 0 || len(f1s) == 0 || len(f2s) == 0 {
		return Token{}, false, true
	}

	tok = base
	tok.PrevSeg = neighbourLabel(segs, i-1)
	tok.Seg = seg.Label
	tok.SegIntv = i
	tok.NextSeg = neighbourLabel(segs, i+1)
	tok.PrecededByCons = precededByConsonant(segs, i, word)
	tok.FollowedByCons = followedByConsonant(segs, i, word)
	tok.SegStart = seg.Start
	tok.SegStop = seg.End
	tok.SegDur = segDur
	tok.F0Mid = roundHalfEven(acoustic.Mean(midF0))
	tok.F0First10 = roundedMean(pitch.Voiced(seg.Start, seg.Start+d*e.cfg.OnsetFraction))
	tok.F0SegMean = roundedMean(pitch.Voiced(seg.Start, seg.End))
	tok.F1 = roundHalfEven(acoustic.Mean(f1s))
	tok.F2 = roundHalfEven(acoustic.Mean(f2s))
	tok.Word = word.Label
	tok.WordStart = word.Start
	tok.WordStop = word.End
	tok.WordDur = int(roundHalfEven(word.Duration() * 1000))
	tok.UttPerc = roundTo((seg.Start-utt.start)/utt.duration(), 2)
	tok.UttPos = classifyPosition(segs, i, words, wordIdx)

	return tok, true, true
}

// roundedMean is the rounded mean of values, NaN when empty.
func roundedMean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return roundHalfEven(acoustic.Mean(values))
}

func neighbourLabel(segs []textgrid.Interval, i int) string {
	if i < 0 || i >= len(segs) {
		return "NA"
	}
	return segs[i].Label
}

// describeUtterance finds the labelled span of the segment tier and totals
// the duration and count of labelled, non-spn segments.
func describeUtterance(segs []textgrid.Interval) (utterance, error) {
	var utt utterance
	found := false
	for _, s := range segs {
		if s.Label == "" {
			continue
		}
		if !found {
			utt.start = s.Start
			utt.end = s.End
			found = true
		}
		if s.End > utt.end {
			utt.end = s.End
		}
		if s.Label != "spn" {
			utt.totalDur += s.Duration()
			utt.phones++
		}
	}
	if !found {
		return utt, ErrNoLabeledSegments
	}
	if utt.duration() <= 0 {
		return utt, fmt.Errorf("utterance has zero duration")
	}
	return utt, nil
}
