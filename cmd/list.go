package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyreport-cli/internal/pipeline"
	"github.com/KaramelBytes/tidyreport-cli/internal/report"
	"github.com/KaramelBytes/tidyreport-cli/internal/utils"
)

var (
	listReports bool
	listDir     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available reports or rendered reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !listReports {
			for _, name := range pipeline.Names() {
				p, err := pipeline.Get(name, pipeline.Options{})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "- %s: %s\n", name, p.Title())
			}
			return nil
		}
		dir, err := outputDir(listDir)
		if err != nil {
			return err
		}
		entries, err := report.ScanIndex(dir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "(no reports)")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "- %s: %s (%s, id %s)\n", e.Name, e.File, e.Generated.Format("2006-01-02 15:04"), e.ID)
		}
		return nil
	},
}

// outputDir resolves flag, then config output_dir.
func outputDir(flag string) (string, error) {
	dir := flag
	if dir == "" {
		c, err := loadedConfig()
		if err != nil {
			return "", err
		}
		dir = c.OutputDir
	}
	return utils.ExpandHome(dir)
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listReports, "reports", false, "list rendered reports in the output directory")
	listCmd.Flags().StringVarP(&listDir, "dir", "d", "", "output directory (default from config)")
}
