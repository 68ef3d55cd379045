package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chazu/qcircuits/pkg/config"
	"github.com/chazu/qcircuits/pkg/kernel"
	"github.com/chazu/qcircuits/pkg/route"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Set by the root command before any subcommand runs.
	cfg    config.Config
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "qcroute",
	Short: "Composite coplanar waveguide router",
	Long: `Route coplanar waveguides through a sequence of nodes, inserting bends,
tapers, airbridges and flip-chip connectors, and export the mask layers.

Examples:
  qcroute route feedline.nodes --dxf feedline.dxf     # Route a node listing
  qcroute route chip.zy --svg chip.svg                # Route every waveguide in a script
  qcroute solve --from 0,0 --from-corner 0,100 \
      --to 300,0 --to-corner 300,100 --length 1000    # Fixed-length U bend
  qcroute layers                                      # List mask layers`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		logger = c.Log.Logger(cmd.ErrOrStderr(), verbose)
		logger.Debug("configuration loaded", "file", cfgFile, "face", c.Route.Face, "r", c.Route.R)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (yaml, toml or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"debug logging on stderr")
}

// newRouter returns a router over a fresh cell library.
func newRouter() *route.Router {
	return route.New(cfg.Route, kernel.NewLibrary(), logger)
}
