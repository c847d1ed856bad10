package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tidyreport-cli/internal/config"
	"github.com/KaramelBytes/tidyreport-cli/internal/covid"
	"github.com/KaramelBytes/tidyreport-cli/internal/loader"
	"github.com/KaramelBytes/tidyreport-cli/internal/nypd"
	"github.com/KaramelBytes/tidyreport-cli/internal/pipeline"
	"github.com/KaramelBytes/tidyreport-cli/internal/report"
	"github.com/KaramelBytes/tidyreport-cli/internal/utils"
)

var (
	runOutputDir    string
	runXLSX         bool
	runStdout       bool
	runTopN         int
	runWindow       int
	runConfirmedURL string
	runDeathsURL    string
	runNYPDURL      string
)

var runCmd = &cobra.Command{
	Use:   "run <report>... | all",
	Short: "Fetch data and render one or more reports",
	Long: `Run fetches the sources of each named report, builds it and writes <name>.md
(and <name>.xlsx with --xlsx) into the output directory, then refreshes index.md.
Available reports: ` + strings.Join(pipeline.Names(), ", ") + `.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		names, err := resolveReports(args)
		if err != nil {
			return err
		}
		opt := runOptions(cmd, c)
		outDir := c.OutputDir
		if runOutputDir != "" {
			outDir = runOutputDir
		}
		if outDir, err = utils.ExpandHome(outDir); err != nil {
			return err
		}
		xlsx := c.WriteXLSX
		if cmd.Flags().Changed("xlsx") {
			xlsx = runXLSX
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		for _, name := range names {
			p, err := pipeline.Get(name, opt)
			if err != nil {
				return err
			}
			start := time.Now()
			rep, err := p.Run(ctx)
			if err != nil {
				return fmt.Errorf("%s report: %w", name, err)
			}
			utils.Debugf("%s built in %s", name, time.Since(start).Round(time.Millisecond))
			if runStdout {
				fmt.Fprintln(cmd.OutOrStdout(), rep.Markdown())
				continue
			}
			e, err := rep.WriteFiles(outDir, xlsx)
			if err != nil {
				return err
			}
			utils.Successf("Wrote %s report to %s", name, e.File)
			if e.Workbook != "" {
				utils.Successf("Wrote %s workbook to %s", name, e.Workbook)
			}
			for _, n := range rep.Notes {
				utils.Debugf("%s note: %s", name, n)
			}
		}
		if runStdout {
			return nil
		}
		entries, err := report.WriteIndex(outDir)
		if err != nil {
			return err
		}
		utils.Successf("Updated index with %d reports in %s", len(entries), outDir)
		return nil
	},
}

// resolveReports expands "all" and rejects unknown names before anything is fetched.
func resolveReports(args []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	known := pipeline.Names()
	for _, a := range args {
		a = strings.ToLower(strings.TrimSpace(a))
		batch := []string{a}
		if a == "all" {
			batch = known
		} else if !slices.Contains(known, a) {
			return nil, fmt.Errorf("unknown report %q (available: %s, all)", a, strings.Join(known, ", "))
		}
		for _, n := range batch {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// runOptions merges config and flags into pipeline options.
func runOptions(cmd *cobra.Command, c *cfgpkg.Global) pipeline.Options {
	sources := map[string]string{
		covid.SourceConfirmed: c.CovidConfirmedURL,
		covid.SourceDeaths:    c.CovidDeathsURL,
		nypd.SourceIncidents:  c.NYPDURL,
	}
	if runConfirmedURL != "" {
		sources[covid.SourceConfirmed] = runConfirmedURL
	}
	if runDeathsURL != "" {
		sources[covid.SourceDeaths] = runDeathsURL
	}
	if runNYPDURL != "" {
		sources[nypd.SourceIncidents] = runNYPDURL
	}
	topN, window := c.TopN, c.RollingWindow
	if cmd.Flags().Changed("top") && runTopN > 0 {
		topN = runTopN
	}
	if cmd.Flags().Changed("window") && runWindow > 0 {
		window = runWindow
	}
	markers := c.NullMarkers
	if len(markers) == 0 {
		markers = loader.DefaultNullMarkers
	}
	return pipeline.Options{
		Loader:        loader.New(time.Duration(c.HTTPTimeoutSec)*time.Second, markers),
		Sources:       sources,
		TopN:          topN,
		RollingWindow: window,
		Logf:          utils.Debugf,
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "output directory (overrides config output_dir)")
	runCmd.Flags().BoolVar(&runXLSX, "xlsx", false, "also write an Excel workbook per report")
	runCmd.Flags().BoolVar(&runStdout, "stdout", false, "print reports to stdout instead of writing files")
	runCmd.Flags().IntVar(&runTopN, "top", 0, "rows kept in top-N sections (overrides config top_n)")
	runCmd.Flags().IntVar(&runWindow, "window", 0, "rolling average window in days (overrides config rolling_window)")
	runCmd.Flags().StringVar(&runConfirmedURL, "covid-confirmed", "", "URL or path of the JHU confirmed-cases CSV")
	runCmd.Flags().StringVar(&runDeathsURL, "covid-deaths", "", "URL or path of the JHU deaths CSV")
	runCmd.Flags().StringVar(&runNYPDURL, "nypd", "", "URL or path of the NYPD shooting incident CSV")
}
