package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile    string
	runConfigFile string
	verbose       bool
	quiet         bool
	noColor       bool
	logLevel      string
	outputFormat  string
	outputFile    string
	configDir     string
	dataDir       string
	metrics       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vowelspace",
	Short: "Cross-linguistic vowel dispersion pipeline",
	Long: `A data pipeline that measures vowel formants in aligned speech corpora and
tests the vowel dispersion hypothesis across languages.

Stages:
- extract: duration, F0 and formants of every monophthong in a corpus language
- filter: corner vowel selection, duration and outlier filtering per speaker
- lexicon: phoneme overviews of pronunciation lexicons
- inventory: per-speaker SD tables and inventory summaries
- model: random intercept models of F1/F2 spread against inventory size
- plot: vowel space figures
- export: SQLite copies of any pipeline table`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"config directory (default is $HOME/.config/vowelspace)")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/vowelspace/vowelspace.yaml)")

	rootCmd.PersistentFlags().StringVar(&runConfigFile, "run-config", "",
		"run settings overlaid on the configuration (yaml, json or toml)")

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"data directory (default is $HOME/.local/share/vowelspace)")

	// Output and logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"no progress bars")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (json, table, csv, yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFile, "output-file", "",
		"write the run result to a file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&metrics, "metrics", false,
		"emit run counters to the metrics log")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("config_dir", rootCmd.PersistentFlags().Lookup("config-dir"))
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("metrics.enabled", rootCmd.PersistentFlags().Lookup("metrics"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(configFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "vowelspace"))
		viper.AddConfigPath("/etc/vowelspace")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("vowelspace")
		viper.SetConfigType("yaml")
	}

	// Environment variable support
	viper.SetEnvPrefix("VOWELSPACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if configFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", configFile, err)
		os.Exit(1)
	}
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds the environment variable of each local cobra flag and
// applies configured values to flags left unset
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		// Environment variable name
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if err := v.BindEnv(f.Name, "VOWELSPACE_"+envVarSuffix); err != nil {
			lastErr = err
		}

		// Apply the viper value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}
	})

	return lastErr
}

// GetConfig returns the current viper instance
func GetConfig() *viper.Viper {
	return viper.GetViper()
}
