package app

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/latency-benchmark-common/output"
	"github.com/RyanBlaney/vowelspace/configs"
	"github.com/google/uuid"
	"github.com/tunein/go-logging/v7/pkg/logger"
	"github.com/tunein/go-logging/v7/pkg/logger/logtypes"
	"github.com/tunein/go-logging/v7/pkg/rootcollector"
	"github.com/tunein/go-logging/v7/pkg/rootlogger"
	"golang.org/x/sys/unix"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile     string // Run configuration file (optional)
	OutputFile     string
	OutputFormat   string
	Workers        int
	InventoryMode  string
	SimilarityFile string
	NoFigures      bool
	Verbose        bool
	Quiet          bool
	NoColor        bool

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
	RunID  string
}

// App handles the pipeline application lifecycle
type App struct {
	ctx    *Context
	config *configs.Config
	logger logging.Logger
	runID  string

	metricsOnce sync.Once
	metricsErr  error
}

// NewApp creates a new application from the CLI context
func NewApp(ctx *Context) (*App, error) {
	ctx.RunID = uuid.NewString()

	// Load configuration
	config, err := loadAndMergeConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx.Config = config

	// Set up logging
	logger, err := setupLogging(ctx, config)
	if err != nil {
		return nil, err
	}
	ctx.Logger = logger

	logger.Debug("Application initialized", logging.Fields{
		"config_file":   ctx.ConfigFile,
		"output_format": config.OutputFormat,
		"workers":       config.Extract.Workers,
		"inventory":     config.Inventory.Mode,
	})

	return &App{
		ctx:    ctx,
		config: config,
		logger: logger,
		runID:  ctx.RunID,
	}, nil
}

// Config returns the merged configuration.
func (app *App) Config() *configs.Config {
	return app.config
}

// Logger returns the run logger.
func (app *App) Logger() logging.Logger {
	return app.logger
}

// RunID identifies this invocation in logs and metrics.
func (app *App) RunID() string {
	return app.runID
}

// setupLogging configures logging based on the merged configuration
func setupLogging(ctx *Context, cfg *configs.Config) (logging.Logger, error) {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		level = logging.DebugLevel
	}

	var logger *logging.DefaultLogger
	if cfg.Output.Colors {
		logger = logging.NewDefaultLogger()
	} else {
		logger = logging.NewDefaultLoggerNoColor()
	}
	logger.SetLevel(level)

	return logger.WithFields(logging.Fields{
		"run_id": ctx.RunID,
	}), nil
}

// parseLogLevel maps a configured level name to a logging level. An empty
// name is info.
func parseLogLevel(name string) (logging.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return logging.DebugLevel, nil
	case "", "info":
		return logging.InfoLevel, nil
	case "warn", "warning":
		return logging.WarnLevel, nil
	case "error":
		return logging.ErrorLevel, nil
	case "fatal":
		return logging.FatalLevel, nil
	default:
		return logging.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// loadAndMergeConfig loads configuration from viper and the run file and
// merges CLI flags on top
func loadAndMergeConfig(ctx *Context) (*configs.Config, error) {
	// Load base configuration
	cfg, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load base configuration: %w", err)
	}

	// Overlay the run file
	if ctx.ConfigFile != "" {
		if err := loadRunConfigFromFile(ctx.ConfigFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load run configuration: %w", err)
		}
	}

	mergeRunConfig(cfg, ctx)

	if err := configs.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Structured reports whether results go through a machine readable
// formatter rather than the terminal tables.
func (app *App) Structured() bool {
	return app.ctx.OutputFile != "" || app.config.OutputFormat != "table"
}

// Output formats data with the configured formatter and writes it to the
// output file or stdout
func (app *App) Output(data any) error {
	// Create formatter
	var formatter output.Formatter
	switch app.config.OutputFormat {
	case "json":
		formatter = &output.JSONFormatter{}
	case "yaml":
		formatter = &output.YAMLFormatter{}
	case "csv":
		formatter = &output.CSVFormatter{}
	case "table":
		formatter = &output.TableFormatter{}
	default:
		formatter = &output.JSONFormatter{}
	}

	outputData := map[string]any{
		"run_id":    app.runID,
		"timestamp": time.Now(),
		"result":    sanitizeForJSON(data),
	}

	formattedData, err := formatter.Format(outputData, true)
	if err != nil {
		return fmt.Errorf("failed to format output data: %w", err)
	}

	// Write to file or stdout
	if app.ctx.OutputFile != "" {
		return app.writeToFile(formattedData)
	}

	_, err = os.Stdout.Write(formattedData)
	return err
}

// EmitMetrics sends run counters to the metrics collector when enabled.
// Names are <prefix>.<stage>.<counter>.
func (app *App) EmitMetrics(stage string, counters map[string]int64, tags ...string) {
	if !app.config.Metrics.Enabled || len(counters) == 0 {
		return
	}

	app.metricsOnce.Do(func() {
		out := app.config.Metrics.File
		if out == "" {
			out = filepath.Join(os.TempDir(), "vowelspace-metrics.log")
		}
		app.metricsErr = rootlogger.Configure(logger.LogOptions{
			Out:          out,
			ReopenSignal: unix.SIGHUP,
			Level:        logtypes.InfoLevel,
		})
		if app.metricsErr != nil {
			app.logger.Error(app.metricsErr, "Failed configuring metrics writer")
		}
	})
	if app.metricsErr != nil {
		return
	}

	baseTags := append([]string{"run_id:" + app.runID, "stage:" + stage}, tags...)
	for name, value := range counters {
		rootcollector.Metric(MetricName(app.config.Metrics.Prefix, stage, name), value, baseTags)
	}
}

// MetricName joins the non-empty parts of a metric name with dots.
func MetricName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

// writeToFile writes data to the specified output file
func (app *App) writeToFile(data []byte) error {
	// Ensure directory exists
	dir := filepath.Dir(app.ctx.OutputFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(app.ctx.OutputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"size_bytes":  len(data),
	})

	return nil
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// sanitizeForJSON recursively replaces infinite and NaN values with nil and
// errors with their message
func sanitizeForJSON(data any) any {
	switch v := data.(type) {
	case nil:
		return nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil
		}
		return v
	case error:
		return v.Error()
	case time.Time:
		return v
	case time.Duration:
		return v.Seconds()
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = sanitizeForJSON(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = sanitizeForJSON(val)
		}
		return result
	default:
		// Use reflection to handle structs and other complex types
		return sanitizeWithReflection(data)
	}
}

// sanitizeWithReflection uses reflection to sanitize struct fields
func sanitizeWithReflection(data any) any {
	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch {
	case val.Type() == timeType:
		return val.Interface()
	case val.Type() == durationType:
		return time.Duration(val.Int()).Seconds()
	}

	switch val.Kind() {
	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := val.Field(i)
			fieldType := typ.Field(i)

			// Skip unexported fields
			if !field.CanInterface() {
				continue
			}

			// Get JSON tag name or use field name
			jsonTag := fieldType.Tag.Get("json")
			if jsonTag == "-" {
				continue
			}
			fieldName := fieldType.Name
			if name, _, _ := strings.Cut(jsonTag, ","); name != "" {
				fieldName = name
			}

			result[fieldName] = sanitizeForJSON(field.Interface())
		}
		return result
	case reflect.Slice, reflect.Array:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			result[i] = sanitizeForJSON(val.Index(i).Interface())
		}
		return result
	case reflect.Map:
		result := make(map[string]any)
		for _, key := range val.MapKeys() {
			keyStr := fmt.Sprintf("%v", key.Interface())
			result[keyStr] = sanitizeForJSON(val.MapIndex(key).Interface())
		}
		return result
	case reflect.Float64, reflect.Float32:
		f := val.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil
		}
		return f
	default:
		return val.Interface()
	}
}
