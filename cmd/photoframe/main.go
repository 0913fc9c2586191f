package main

import (
	"fmt"
	"os"

	"photoframe/internal/config"
	"photoframe/internal/frame"

	"github.com/spf13/cobra"
)

var (
	configFlag   string
	storageFlag  string
	listenFlag   string
	headlessFlag bool
	intervalFlag int
)

// NewRootCmd builds the CLI. The run function is injected so tests can
// exercise flag handling without starting the frame.
func NewRootCmd(run func(cfg *config.Config) error) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "photoframe",
		Short: "PhotoFrame - slideshow with web control and audio playback",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFlag)
			if err != nil {
				return err
			}
			if storageFlag != "" {
				cfg.Storage.Dir = storageFlag
			}
			if listenFlag != "" {
				cfg.Web.Listen = listenFlag
			}
			if headlessFlag {
				cfg.Display.Headless = true
			}
			if intervalFlag > 0 {
				cfg.Slideshow.IntervalSeconds = intervalFlag
			}
			return run(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&storageFlag, "storage-dir", "", "Storage directory holding the images")
	rootCmd.PersistentFlags().StringVar(&listenFlag, "listen", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVar(&headlessFlag, "headless", false, "Run without a display window")
	rootCmd.PersistentFlags().IntVar(&intervalFlag, "interval", 0, "Seconds between slides")
	return rootCmd
}

func main() {
	rootCmd := NewRootCmd(frame.Run)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
