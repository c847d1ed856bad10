package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tidyreport-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tidyreport configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "covid_confirmed_url: %s\n", orDefault(c.CovidConfirmedURL))
		fmt.Fprintf(out, "covid_deaths_url: %s\n", orDefault(c.CovidDeathsURL))
		fmt.Fprintf(out, "nypd_url: %s\n", orDefault(c.NYPDURL))
		fmt.Fprintf(out, "output_dir: %s\n", c.OutputDir)
		fmt.Fprintf(out, "write_xlsx: %t\n", c.WriteXLSX)
		fmt.Fprintf(out, "top_n: %d\n", c.TopN)
		fmt.Fprintf(out, "rolling_window: %d\n", c.RollingWindow)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(out, "null_markers: %q\n", c.NullMarkers)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "covid_confirmed_url":
		c.CovidConfirmedURL = val
	case "covid_deaths_url":
		c.CovidDeathsURL = val
	case "nypd_url":
		c.NYPDURL = val
	case "output_dir":
		c.OutputDir = val
	case "write_xlsx":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for write_xlsx: %v", val)
		}
		c.WriteXLSX = b
	case "top_n", "rolling_window", "http_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		switch key {
		case "top_n":
			c.TopN = i
		case "rolling_window":
			c.RollingWindow = i
		default:
			c.HTTPTimeoutSec = i
		}
	case "null_markers":
		// comma-separated; a leading comma keeps the empty string as a marker
		c.NullMarkers = strings.Split(val, ",")
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
