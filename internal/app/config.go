package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/vowelspace/configs"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// loadRunConfigFromFile overlays the settings of a run file onto cfg. Keys
// missing from the file keep their current values.
func loadRunConfigFromFile(filePath string, cfg *configs.Config) error {
	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("configuration file does not exist: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Determine file format
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return decodeYAML(data, cfg)
	case ".json":
		return decodeJSON(data, cfg)
	case ".toml":
		return decodeTOML(data, cfg)
	default:
		// Try YAML first, then JSON
		if err := decodeYAML(data, cfg); err == nil {
			return nil
		}
		return decodeJSON(data, cfg)
	}
}

func decodeYAML(data []byte, cfg *configs.Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func decodeJSON(data []byte, cfg *configs.Config) error {
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse JSON config: %w", err)
	}
	return nil
}

func decodeTOML(data []byte, cfg *configs.Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return nil
}

// mergeRunConfig applies CLI overrides on top of the file configuration
func mergeRunConfig(cfg *configs.Config, ctx *Context) {
	if ctx.Workers > 0 {
		cfg.Extract.Workers = ctx.Workers
	}
	if ctx.InventoryMode != "" {
		cfg.Inventory.Mode = ctx.InventoryMode
		cfg.Model.Inventory = ctx.InventoryMode
	}
	if ctx.SimilarityFile != "" {
		cfg.Filter.SimilarityFile = ctx.SimilarityFile
	}
	if ctx.NoFigures {
		cfg.Model.Figures = false
	}
	if ctx.OutputFormat != "" {
		cfg.OutputFormat = ctx.OutputFormat
	}
	if ctx.Verbose {
		cfg.Verbose = true
	}
	if ctx.NoColor {
		cfg.Output.Colors = false
	}
	if ctx.Quiet {
		cfg.Output.Progress = false
	}
}

// GenerateExampleConfig writes the default configuration to outputFile in
// the format given by its extension.
func GenerateExampleConfig(outputFile string) error {
	cfg := configs.GetDefaultConfig()

	data, err := encodeConfig(cfg, filepath.Ext(outputFile))
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func encodeConfig(cfg *configs.Config, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return json.MarshalIndent(cfg, "", "  ")
	case ".toml":
		return toml.Marshal(cfg)
	default:
		return yaml.Marshal(cfg)
	}
}

// ValidateConfigFile loads a run file over the defaults and validates it.
func ValidateConfigFile(configFile string) (*configs.Config, error) {
	cfg := configs.GetDefaultConfig()
	if err := loadRunConfigFromFile(configFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := configs.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
