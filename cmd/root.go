package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tidyreport-cli/internal/config"
	"github.com/KaramelBytes/tidyreport-cli/internal/utils"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// HTTP flag (overrides config if set)
	flagHTTPTimeoutSec int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "tidyreport",
	Short: "tidyreport: reproducible reports from public CSV datasets",
	Long: `tidyreport fetches public CSV datasets (the JHU CSSE COVID-19 time series and the
NYPD shooting incident history), reshapes and aggregates them, fits a regression model
and writes a Markdown report, optionally with an Excel workbook.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tidyreport/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
}

func loadConfig() {
	utils.Debug = debug
	// .env in the working directory feeds TIDYREPORT_* variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.Warnf("failed to load .env: %v", err)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		utils.Warnf("failed to load config: %v", err)
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	utils.Debugf("config: output_dir=%s timeout=%ds", cfg.OutputDir, cfg.HTTPTimeoutSec)
}

// loadedConfig returns the loaded configuration, loading it on demand when the
// initializer failed or has not run.
func loadedConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
