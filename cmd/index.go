package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyreport-cli/internal/report"
	"github.com/KaramelBytes/tidyreport-cli/internal/utils"
)

var indexDir string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild index.md from the reports in the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := outputDir(indexDir)
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
		entries, err := report.WriteIndex(dir)
		if err != nil {
			return err
		}
		utils.Successf("Indexed %d reports in %s", len(entries), dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVarP(&indexDir, "dir", "d", "", "output directory (default from config)")
}
