package main

import (
	"os"

	"stockticker/src/chart"
	"stockticker/src/common"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dir        string
	out        string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chart",
		Short: "Render recorded samples into an HTML history chart",
		RunE:  run,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file (default: built-in defaults)")
	rootCmd.Flags().StringVar(&dir, "dir", "", "Sample log directory, overrides history.dir")
	rootCmd.Flags().StringVarP(&out, "output", "o", "", "Output HTML file (default: <dir>/history.html)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.History.Dir
	}

	components := []common.Component{
		chart.NewHistoryChart(dir, out, cfg.Chart.Title+" History"),
	}
	for _, component := range components {
		if err = component.Run(cmd.Context()); err != nil {
			common.Logger.Sugar().Errorf("Failed to run component: %v", err)
			return err
		}
	}
	return nil
}
