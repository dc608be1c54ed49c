package configs

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/vowelspace/internal/acoustic"
	"github.com/RyanBlaney/vowelspace/internal/extract"
	"github.com/RyanBlaney/vowelspace/internal/filter"
	"github.com/RyanBlaney/vowelspace/internal/inventory"
	"github.com/RyanBlaney/vowelspace/internal/lmm"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose" toml:"verbose"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level" json:"log_level" toml:"log_level"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format" json:"output_format" toml:"output_format"`
	ConfigDir    string `mapstructure:"config_dir" yaml:"config_dir" json:"config_dir" toml:"config_dir"`
	DataDir      string `mapstructure:"data_dir" yaml:"data_dir" json:"data_dir" toml:"data_dir"`

	Extract   ExtractConfig   `mapstructure:"extract" yaml:"extract" json:"extract" toml:"extract"`
	Filter    FilterConfig    `mapstructure:"filter" yaml:"filter" json:"filter" toml:"filter"`
	Inventory InventoryConfig `mapstructure:"inventory" yaml:"inventory" json:"inventory" toml:"inventory"`
	Model     ModelConfig     `mapstructure:"model" yaml:"model" json:"model" toml:"model"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output" toml:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics" json:"metrics" toml:"metrics"`
}

// ExtractConfig contains acoustic extraction settings
type ExtractConfig struct {
	PitchFloor         float64                  `mapstructure:"pitch_floor" yaml:"pitch_floor" json:"pitch_floor" toml:"pitch_floor"`
	PitchCeiling       float64                  `mapstructure:"pitch_ceiling" yaml:"pitch_ceiling" json:"pitch_ceiling" toml:"pitch_ceiling"`
	VoicingThreshold   float64                  `mapstructure:"voicing_threshold" yaml:"voicing_threshold" json:"voicing_threshold" toml:"voicing_threshold"`
	SilenceThreshold   float64                  `mapstructure:"silence_threshold" yaml:"silence_threshold" json:"silence_threshold" toml:"silence_threshold"`
	LowPitchThreshold  float64                  `mapstructure:"low_pitch_threshold" yaml:"low_pitch_threshold" json:"low_pitch_threshold" toml:"low_pitch_threshold"`
	LowFormants        acoustic.FormantSettings `mapstructure:"low_formants" yaml:"low_formants" json:"low_formants" toml:"low_formants"`
	HighFormants       acoustic.FormantSettings `mapstructure:"high_formants" yaml:"high_formants" json:"high_formants" toml:"high_formants"`
	MinWords           int                      `mapstructure:"min_words" yaml:"min_words" json:"min_words" toml:"min_words"`
	MinSegmentDuration time.Duration            `mapstructure:"min_segment_duration" yaml:"min_segment_duration" json:"min_segment_duration" toml:"min_segment_duration"`
	MidWindowFraction  float64                  `mapstructure:"mid_window_fraction" yaml:"mid_window_fraction" json:"mid_window_fraction" toml:"mid_window_fraction"`
	OnsetFraction      float64                  `mapstructure:"onset_fraction" yaml:"onset_fraction" json:"onset_fraction" toml:"onset_fraction"`
	SoundExtensions    []string                 `mapstructure:"sound_extensions" yaml:"sound_extensions" json:"sound_extensions" toml:"sound_extensions"`
	Workers            int                      `mapstructure:"workers" yaml:"workers" json:"workers" toml:"workers"`
}

// FilterConfig contains the token filtering thresholds
type FilterConfig struct {
	MinSegmentDuration   time.Duration `mapstructure:"min_segment_duration" yaml:"min_segment_duration" json:"min_segment_duration" toml:"min_segment_duration"`
	MinUtteranceDuration time.Duration `mapstructure:"min_utterance_duration" yaml:"min_utterance_duration" json:"min_utterance_duration" toml:"min_utterance_duration"`
	MinSpeakerTokens     int           `mapstructure:"min_speaker_tokens" yaml:"min_speaker_tokens" json:"min_speaker_tokens" toml:"min_speaker_tokens"`
	SDMultiplier         float64       `mapstructure:"sd_multiplier" yaml:"sd_multiplier" json:"sd_multiplier" toml:"sd_multiplier"`
	MinTokensPerVowel    int           `mapstructure:"min_tokens_per_vowel" yaml:"min_tokens_per_vowel" json:"min_tokens_per_vowel" toml:"min_tokens_per_vowel"`
	SimilarityFile       string        `mapstructure:"similarity_file" yaml:"similarity_file" json:"similarity_file" toml:"similarity_file"`
	MinSimilarity        float64       `mapstructure:"min_similarity" yaml:"min_similarity" json:"min_similarity" toml:"min_similarity"`
}

// InventoryConfig contains SD table settings
type InventoryConfig struct {
	Mode    string `mapstructure:"mode" yaml:"mode" json:"mode" toml:"mode"`
	MinRows int    `mapstructure:"min_rows" yaml:"min_rows" json:"min_rows" toml:"min_rows"`
}

// ModelConfig contains mixed model settings
type ModelConfig struct {
	Inventory string  `mapstructure:"inventory" yaml:"inventory" json:"inventory" toml:"inventory"`
	Alpha     float64 `mapstructure:"alpha" yaml:"alpha" json:"alpha" toml:"alpha"`
	Figures   bool    `mapstructure:"figures" yaml:"figures" json:"figures" toml:"figures"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Precision int  `mapstructure:"precision" yaml:"precision" json:"precision" toml:"precision"`
	Colors    bool `mapstructure:"colors" yaml:"colors" json:"colors" toml:"colors"`
	Progress  bool `mapstructure:"progress" yaml:"progress" json:"progress" toml:"progress"`
}

// MetricsConfig controls emission of run counters
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled" toml:"enabled"`
	File    string `mapstructure:"file" yaml:"file" json:"file" toml:"file"`
	Prefix  string `mapstructure:"prefix" yaml:"prefix" json:"prefix" toml:"prefix"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes the configuration held by v after filling in defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if err := config.ExtractSettings(nil).Validate(); err != nil {
		return fmt.Errorf("invalid extract settings: %w", err)
	}

	if err := config.FilterSettings(nil).Validate(); err != nil {
		return fmt.Errorf("invalid filter settings: %w", err)
	}

	if _, err := inventory.ParseMode(config.Inventory.Mode); err != nil {
		return err
	}

	if config.Inventory.MinRows < 0 {
		return fmt.Errorf("inventory min rows cannot be negative")
	}

	if config.Model.Alpha <= 0 || config.Model.Alpha >= 1 {
		return fmt.Errorf("model alpha must be between 0 and 1")
	}

	if config.Output.Precision < 0 {
		return fmt.Errorf("output precision cannot be negative")
	}

	return nil
}

// ExtractSettings builds the extraction configuration.
func (c *Config) ExtractSettings(logger logging.Logger) *extract.Config {
	e := c.Extract
	return &extract.Config{
		Pitch: acoustic.PitchSettings{
			Floor:            e.PitchFloor,
			Ceiling:          e.PitchCeiling,
			VoicingThreshold: e.VoicingThreshold,
			SilenceThreshold: e.SilenceThreshold,
		},
		LowPitchThreshold:  e.LowPitchThreshold,
		LowFormants:        e.LowFormants,
		HighFormants:       e.HighFormants,
		MinWords:           e.MinWords,
		MinSegmentDuration: e.MinSegmentDuration,
		MidWindowFraction:  e.MidWindowFraction,
		OnsetFraction:      e.OnsetFraction,
		SoundExtensions:    append([]string(nil), e.SoundExtensions...),
		Workers:            e.Workers,
		Logger:             logger,
	}
}

// FilterSettings builds the filter configuration.
func (c *Config) FilterSettings(logger logging.Logger) *filter.Config {
	f := c.Filter
	return &filter.Config{
		MinSegmentDuration:   f.MinSegmentDuration,
		MinUtteranceDuration: f.MinUtteranceDuration,
		MinSpeakerTokens:     f.MinSpeakerTokens,
		SDMultiplier:         f.SDMultiplier,
		MinTokensPerVowel:    f.MinTokensPerVowel,
		SimilarityFile:       f.SimilarityFile,
		MinSimilarity:        f.MinSimilarity,
		Logger:               logger,
	}
}

// InventorySettings builds the SD table configuration for the given
// documentation and raw extraction directories.
func (c *Config) InventorySettings(docsDir, rawDir string, logger logging.Logger) (*inventory.Config, error) {
	mode, err := inventory.ParseMode(c.Inventory.Mode)
	if err != nil {
		return nil, err
	}
	return &inventory.Config{
		Mode:    mode,
		DocsDir: docsDir,
		RawDir:  rawDir,
		Logger:  logger,
	}, nil
}

// ModelSettings builds the analysis configuration.
func (c *Config) ModelSettings(logger logging.Logger) *lmm.Config {
	return &lmm.Config{
		Inventory: c.Model.Inventory,
		Alpha:     c.Model.Alpha,
		MinRows:   c.Inventory.MinRows,
		Logger:    logger,
	}
}
