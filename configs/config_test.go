package configs

import (
	"testing"
	"time"

	"github.com/RyanBlaney/vowelspace/internal/inventory"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, 75.0, cfg.Extract.PitchFloor)
	assert.Equal(t, 40*time.Millisecond, cfg.Extract.LowFormants.WindowLength)
	assert.Equal(t, 5, cfg.Extract.HighFormants.NumFormants)
	assert.Equal(t, []string{".mp3", ".wav"}, cfg.Extract.SoundExtensions)
	assert.Equal(t, 2.5, cfg.Filter.SDMultiplier)
	assert.Equal(t, 500*time.Millisecond, cfg.Filter.MinUtteranceDuration)
	assert.Equal(t, 20, cfg.Inventory.MinRows)
	assert.Equal(t, 0.05, cfg.Model.Alpha)
	assert.Equal(t, "vowelspace", cfg.Metrics.Prefix)

	assert.Equal(t, GetDefaultExtractConfig().Workers, cfg.Extract.Workers)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("filter.sd_multiplier", 3.0)
	v.Set("extract.low_formants.window_length", "30ms")
	v.Set("inventory.mode", "full")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 3.0, cfg.Filter.SDMultiplier)
	assert.Equal(t, 30*time.Millisecond, cfg.Extract.LowFormants.WindowLength)
	assert.Equal(t, 4000.0, cfg.Extract.LowFormants.MaxFormant)

	inv, err := cfg.InventorySettings("docs", "raw", nil)
	require.NoError(t, err)
	assert.Equal(t, inventory.ModeFull, inv.Mode)
	assert.Equal(t, "docs", inv.DocsDir)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"pitch ceiling below floor", func(c *Config) { c.Extract.PitchCeiling = 50 }},
		{"zero sd multiplier", func(c *Config) { c.Filter.SDMultiplier = 0 }},
		{"unknown inventory", func(c *Config) { c.Inventory.Mode = "partial" }},
		{"alpha out of range", func(c *Config) { c.Model.Alpha = 1 }},
		{"negative precision", func(c *Config) { c.Output.Precision = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			require.NoError(t, ValidateConfig(cfg))
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestSettingsConversion(t *testing.T) {
	cfg := GetDefaultConfig()

	ext := cfg.ExtractSettings(nil)
	assert.Equal(t, 500.0, ext.Pitch.Ceiling)
	assert.Equal(t, 160.0, ext.LowPitchThreshold)

	f := cfg.FilterSettings(nil)
	assert.Equal(t, 20, f.MinTokensPerVowel)

	m := cfg.ModelSettings(nil)
	assert.Equal(t, "base", m.Inventory)
	assert.Equal(t, 20, m.MinRows)

	out := GetDefaultOutputConfigForFormat("json")
	assert.False(t, out.Colors)
	assert.False(t, out.Progress)
}
