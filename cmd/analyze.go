package cmd

import (
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyreport-cli/internal/analysis"
	"github.com/KaramelBytes/tidyreport-cli/internal/loader"
	"github.com/KaramelBytes/tidyreport-cli/internal/utils"
)

var (
	anaOutputPath string
	anaTopValues  int
	anaMaxCats    int
	anaSamples    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file-or-url>",
	Short: "Profile a CSV and produce a concise data-quality summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		if anaTopValues > 0 {
			opt.TopValues = anaTopValues
		}
		if anaMaxCats > 0 {
			opt.MaxCategories = anaMaxCats
		}
		if anaSamples >= 0 {
			opt.Samples = anaSamples
		}
		markers := c.NullMarkers
		if len(markers) == 0 {
			markers = loader.DefaultNullMarkers
		}
		t, err := loader.New(time.Duration(c.HTTPTimeoutSec)*time.Second, markers).Fetch(cmd.Context(), src)
		if err != nil {
			return err
		}
		md := analysis.ProfileTable(path.Base(src), t, opt).Markdown()

		if anaOutputPath == "" {
			fmt.Fprintln(cmd.OutOrStdout(), md)
			return nil
		}
		out, err := utils.ExpandHome(anaOutputPath)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(out, []byte(md)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		utils.Successf("Wrote analysis to %s", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().IntVar(&anaTopValues, "top-values", 0, "frequent values kept per categorical column")
	analyzeCmd.Flags().IntVar(&anaMaxCats, "max-categories", 0, "unique-value ceiling for categorical columns")
	analyzeCmd.Flags().IntVar(&anaSamples, "samples", -1, "example values kept per free-text column")
}
