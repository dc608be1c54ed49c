package configs

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/RyanBlaney/vowelspace/internal/acoustic"
	"github.com/spf13/viper"
)

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	// Application defaults
	if !v.IsSet("verbose") {
		v.Set("verbose", false)
	}
	if !v.IsSet("log_level") {
		v.Set("log_level", "info")
	}
	if !v.IsSet("output_format") {
		v.Set("output_format", "table")
	}
	if !v.IsSet("config_dir") {
		v.Set("config_dir", filepath.Join(home, ".config", "vowelspace"))
	}
	if !v.IsSet("data_dir") {
		v.Set("data_dir", filepath.Join(home, ".local", "share", "vowelspace"))
	}

	setExtractDefaults(v)
	setFilterDefaults(v)

	// Inventory and model defaults
	if !v.IsSet("inventory.mode") {
		v.Set("inventory.mode", "base")
	}
	if !v.IsSet("inventory.min_rows") {
		v.Set("inventory.min_rows", 20)
	}
	if !v.IsSet("model.inventory") {
		v.Set("model.inventory", "base")
	}
	if !v.IsSet("model.alpha") {
		v.Set("model.alpha", 0.05)
	}
	if !v.IsSet("model.figures") {
		v.Set("model.figures", true)
	}

	// Output defaults
	if !v.IsSet("output.precision") {
		v.Set("output.precision", 3)
	}
	if !v.IsSet("output.colors") {
		v.Set("output.colors", true)
	}
	if !v.IsSet("output.progress") {
		v.Set("output.progress", true)
	}

	// Metrics defaults
	if !v.IsSet("metrics.enabled") {
		v.Set("metrics.enabled", false)
	}
	if !v.IsSet("metrics.prefix") {
		v.Set("metrics.prefix", "vowelspace")
	}
}

// setExtractDefaults sets the Praat-equivalent analysis defaults
func setExtractDefaults(v *viper.Viper) {
	d := GetDefaultExtractConfig()

	if !v.IsSet("extract.pitch_floor") {
		v.Set("extract.pitch_floor", d.PitchFloor)
	}
	if !v.IsSet("extract.pitch_ceiling") {
		v.Set("extract.pitch_ceiling", d.PitchCeiling)
	}
	if !v.IsSet("extract.voicing_threshold") {
		v.Set("extract.voicing_threshold", d.VoicingThreshold)
	}
	if !v.IsSet("extract.silence_threshold") {
		v.Set("extract.silence_threshold", d.SilenceThreshold)
	}
	if !v.IsSet("extract.low_pitch_threshold") {
		v.Set("extract.low_pitch_threshold", d.LowPitchThreshold)
	}
	if !v.IsSet("extract.low_formants.max_formant") {
		v.Set("extract.low_formants.max_formant", d.LowFormants.MaxFormant)
	}
	if !v.IsSet("extract.low_formants.num_formants") {
		v.Set("extract.low_formants.num_formants", d.LowFormants.NumFormants)
	}
	if !v.IsSet("extract.low_formants.window_length") {
		v.Set("extract.low_formants.window_length", d.LowFormants.WindowLength)
	}
	if !v.IsSet("extract.high_formants.max_formant") {
		v.Set("extract.high_formants.max_formant", d.HighFormants.MaxFormant)
	}
	if !v.IsSet("extract.high_formants.num_formants") {
		v.Set("extract.high_formants.num_formants", d.HighFormants.NumFormants)
	}
	if !v.IsSet("extract.high_formants.window_length") {
		v.Set("extract.high_formants.window_length", d.HighFormants.WindowLength)
	}
	if !v.IsSet("extract.min_words") {
		v.Set("extract.min_words", d.MinWords)
	}
	if !v.IsSet("extract.min_segment_duration") {
		v.Set("extract.min_segment_duration", d.MinSegmentDuration)
	}
	if !v.IsSet("extract.mid_window_fraction") {
		v.Set("extract.mid_window_fraction", d.MidWindowFraction)
	}
	if !v.IsSet("extract.onset_fraction") {
		v.Set("extract.onset_fraction", d.OnsetFraction)
	}
	if !v.IsSet("extract.sound_extensions") {
		v.Set("extract.sound_extensions", d.SoundExtensions)
	}
	if !v.IsSet("extract.workers") {
		v.Set("extract.workers", d.Workers)
	}
}

// setFilterDefaults sets the token filtering thresholds
func setFilterDefaults(v *viper.Viper) {
	d := GetDefaultFilterConfig()

	if !v.IsSet("filter.min_segment_duration") {
		v.Set("filter.min_segment_duration", d.MinSegmentDuration)
	}
	if !v.IsSet("filter.min_utterance_duration") {
		v.Set("filter.min_utterance_duration", d.MinUtteranceDuration)
	}
	if !v.IsSet("filter.min_speaker_tokens") {
		v.Set("filter.min_speaker_tokens", d.MinSpeakerTokens)
	}
	if !v.IsSet("filter.sd_multiplier") {
		v.Set("filter.sd_multiplier", d.SDMultiplier)
	}
	if !v.IsSet("filter.min_tokens_per_vowel") {
		v.Set("filter.min_tokens_per_vowel", d.MinTokensPerVowel)
	}
	if !v.IsSet("filter.similarity_file") {
		v.Set("filter.similarity_file", d.SimilarityFile)
	}
	if !v.IsSet("filter.min_similarity") {
		v.Set("filter.min_similarity", d.MinSimilarity)
	}
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "table",
		ConfigDir:    filepath.Join(home, ".config", "vowelspace"),
		DataDir:      filepath.Join(home, ".local", "share", "vowelspace"),

		Extract:   GetDefaultExtractConfig(),
		Filter:    GetDefaultFilterConfig(),
		Inventory: InventoryConfig{Mode: "base", MinRows: 20},
		Model:     ModelConfig{Inventory: "base", Alpha: 0.05, Figures: true},
		Output:    GetDefaultOutputConfig(),
		Metrics:   MetricsConfig{Prefix: "vowelspace"},
	}
}

// GetDefaultExtractConfig returns the extraction settings
func GetDefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		PitchFloor:        75,
		PitchCeiling:      500,
		VoicingThreshold:  0.45,
		SilenceThreshold:  0.03,
		LowPitchThreshold: 160,
		LowFormants: acoustic.FormantSettings{
			MaxFormant:   4000,
			NumFormants:  4,
			WindowLength: 40 * time.Millisecond,
		},
		HighFormants: acoustic.FormantSettings{
			MaxFormant:   5500,
			NumFormants:  5,
			WindowLength: 25 * time.Millisecond,
		},
		MinWords:           5,
		MinSegmentDuration: 30 * time.Millisecond,
		MidWindowFraction:  0.45,
		OnsetFraction:      0.10,
		SoundExtensions:    []string{".mp3", ".wav"},
		Workers:            min(10, runtime.NumCPU()),
	}
}

// GetDefaultFilterConfig returns the filtering thresholds
func GetDefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinSegmentDuration:   50 * time.Millisecond,
		MinUtteranceDuration: 500 * time.Millisecond,
		MinSpeakerTokens:     20,
		SDMultiplier:         2.5,
		MinTokensPerVowel:    20,
		MinSimilarity:        0.3,
	}
}

// GetDefaultOutputConfig returns default output formatting settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Precision: 3,
		Colors:    true,
		Progress:  true,
	}
}

// GetDefaultOutputConfigForFormat returns output settings suited to format.
// Machine readable formats never carry colours or progress bars.
func GetDefaultOutputConfigForFormat(format string) OutputConfig {
	cfg := GetDefaultOutputConfig()
	switch format {
	case "json", "yaml", "csv":
		cfg.Colors = false
		cfg.Progress = false
	}
	return cfg
}
