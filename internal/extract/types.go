// Package extract measures duration, F0 and formants of monophthong vowel
// segments in force-aligned recordings.
package extract

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/vowelspace/internal/acoustic"
	"github.com/RyanBlaney/vowelspace/internal/dataset"
)

// ErrNoLabeledSegments is returned for a recording whose segment tier has no
// labelled interval.
var ErrNoLabeledSegments = errors.New("segment tier has no labelled intervals")

// Position locates a vowel inside its word and utterance.
type Position string

const (
	PositionUttInitial  Position = "utt-initial"
	PositionWordInitial Position = "word-initial"
	PositionWordMedial  Position = "word-medial"
	PositionWordFinal   Position = "word-final"
	PositionUttFinal    Position = "utt-final"
)

// PitchRange selects the formant settings for a recording.
type PitchRange string

const (
	PitchLow  PitchRange = "low"
	PitchHigh PitchRange = "high"
)

// Columns is the header of the extraction CSV.
var Columns = []string{
	"lang_code", "file_id", "mean_pitch_range", "prev_seg", "seg", "seg_intv",
	"next_seg", "preceded_by_cons", "followed_by_cons", "seg_start", "seg_stop",
	"seg_dur", "F0_mid10", "F0_first10", "F0_seg_mean", "F1", "F2",
	"word", "word_start", "word_stop", "word_dur", "utt_dur", "n_phone",
	"utt_perc", "utt_pos",
}

// Token is one measured vowel segment.
type Token struct {
	LangCode       string     `json:"lang_code"`
	FileID         string     `json:"file_id"`
	PitchRange     PitchRange `json:"mean_pitch_range"`
	PrevSeg        string     `json:"prev_seg"`
	Seg            string     `json:"seg"`
	SegIntv        int        `json:"seg_intv"`
	NextSeg        string     `json:"next_seg"`
	PrecededByCons bool       `json:"preceded_by_cons"`
	FollowedByCons bool       `json:"followed_by_cons"`
	SegStart       float64    `json:"seg_start"`
	SegStop        float64    `json:"seg_stop"`
	SegDur         int        `json:"seg_dur"`
	// F0 over the middle of the vowel.
	F0Mid      float64  `json:"F0_mid10"`
	F0First10  float64  `json:"F0_first10"`
	F0SegMean  float64  `json:"F0_seg_mean"`
	F1         float64  `json:"F1"`
	F2         float64  `json:"F2"`
	Word       string   `json:"word"`
	WordStart  float64  `json:"word_start"`
	WordStop   float64  `json:"word_stop"`
	WordDur    int      `json:"word_dur"`
	UttDur     int      `json:"utt_dur"`
	NPhone     int      `json:"n_phone"`
	UttPerc    float64  `json:"utt_perc"`
	UttPos     Position `json:"utt_pos"`
}

// Record renders the token in Columns order.
func (t Token) Record() []string {
	return []string{
		t.LangCode,
		t.FileID,
		string(t.PitchRange),
		t.PrevSeg,
		t.Seg,
		strconv.Itoa(t.SegIntv),
		t.NextSeg,
		dataset.FormatBool(t.PrecededByCons),
		dataset.FormatBool(t.FollowedByCons),
		dataset.FormatFloat(t.SegStart),
		dataset.FormatFloat(t.SegStop),
		strconv.Itoa(t.SegDur),
		dataset.FormatFloat(t.F0Mid),
		dataset.FormatFloat(t.F0First10),
		dataset.FormatFloat(t.F0SegMean),
		dataset.FormatFloat(t.F1),
		dataset.FormatFloat(t.F2),
		t.Word,
		dataset.FormatFloat(t.WordStart),
		dataset.FormatFloat(t.WordStop),
		strconv.Itoa(t.WordDur),
		strconv.Itoa(t.UttDur),
		strconv.Itoa(t.NPhone),
		dataset.FormatFloat(t.UttPerc),
		string(t.UttPos),
	}
}

// Table builds the extraction table for tokens.
func Table(tokens []Token) *dataset.Table {
	t := dataset.NewTable(Columns...)
	for _, tok := range tokens {
		t.Rows = append(t.Rows, tok.Record())
	}
	return t
}

// Config holds the extraction thresholds and analysis settings.
type Config struct {
	Pitch             acoustic.PitchSettings
	LowPitchThreshold float64
	LowFormants       acoustic.FormantSettings
	HighFormants      acoustic.FormantSettings
	// MinWords is the minimum number of word intervals, empty ones included.
	MinWords           int
	MinSegmentDuration time.Duration
	MidWindowFraction  float64
	OnsetFraction      float64
	SoundExtensions    []string
	Workers            int
	Logger             logging.Logger
}

// Validate checks the configuration for values that would make every
// measurement meaningless.
func (c *Config) Validate() error {
	if err := c.Pitch.Validate(); err != nil {
		return fmt.Errorf("invalid pitch settings: %w", err)
	}
	if err := c.LowFormants.Validate(); err != nil {
		return fmt.Errorf("invalid low formant settings: %w", err)
	}
	if err := c.HighFormants.Validate(); err != nil {
		return fmt.Errorf("invalid high formant settings: %w", err)
	}
	if c.MidWindowFraction < 0 || c.MidWindowFraction >= 0.5 {
		return fmt.Errorf("mid window fraction must be in [0, 0.5)")
	}
	if c.OnsetFraction <= 0 || c.OnsetFraction > 1 {
		return fmt.Errorf("onset fraction must be in (0, 1]")
	}
	if len(c.SoundExtensions) == 0 {
		return fmt.Errorf("at least one sound extension is required")
	}
	return nil
}

// Job names one corpus language to extract.
type Job struct {
	CorpusDir string
	Lang      string
	Version   string
	OutputDir string
}

// LangDir is <corpus>/<lang>_v<version>.
func (j Job) LangDir() string {
	return filepath.Join(j.CorpusDir, fmt.Sprintf("%s_v%s", j.Lang, j.Version))
}

// TextGridDir holds the alignments.
func (j Job) TextGridDir() string {
	return filepath.Join(j.LangDir(), "output")
}

// SoundDir holds the recordings.
func (j Job) SoundDir() string {
	return filepath.Join(j.LangDir(), "validated")
}

// OutputPath is the extraction CSV written for the job.
func (j Job) OutputPath() string {
	return filepath.Join(j.OutputDir, fmt.Sprintf("%s_v%s_dur_f0_formants.csv", j.Lang, j.Version))
}

// FileResult is the outcome of one TextGrid.
type FileResult struct {
	Path       string        `json:"path"`
	FileID     string        `json:"file_id"`
	Tokens     []Token       `json:"-"`
	Processed  int           `json:"processed"`
	Failed     int           `json:"failed"`
	Skipped    bool          `json:"skipped"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      error         `json:"error,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	RunID        string                    `json:"run_id"`
	Lang         string                    `json:"lang"`
	Version      string                    `json:"version"`
	OutputPath   string                    `json:"output_path"`
	Written      bool                      `json:"written"`
	Files        int                       `json:"files"`
	SkippedFiles int                       `json:"skipped_files"`
	FileErrors   int                       `json:"file_errors"`
	Processed    int                       `json:"processed"`
	Failed       int                       `json:"failed"`
	Tokens       int                       `json:"tokens"`
	VowelStats   map[string]*DurationStats `json:"vowel_stats,omitempty"`
	StartTime    time.Time                 `json:"start_time"`
	EndTime      time.Time                 `json:"end_time"`
	Runtime      time.Duration             `json:"runtime"`
}

// FormatRuntime renders d as HH:MM:SS.ss.
func FormatRuntime(d time.Duration) string {
	total := d.Seconds()
	hours := math.Floor(total / 3600)
	rem := total - hours*3600
	minutes := math.Floor(rem / 60)
	seconds := rem - minutes*60
	return fmt.Sprintf("%02d:%02d:%05.2f", int(hours), int(minutes), seconds)
}

// roundHalfEven rounds to the nearest integer, ties to even.
func roundHalfEven(v float64) float64 {
	return math.RoundToEven(v)
}

// roundTo rounds v to the given number of decimals, ties to even.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.RoundToEven(v*p) / p
}
