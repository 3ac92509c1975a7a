// irprobe-sim runs the probe firmware core on a simulated board. The run
// command drives it in real time through a distance and temperature sweep;
// the sweep commands step it deterministically and print what the probe
// reports at each point.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/itohio/irprobe/pkg/config"
)

var version = "dev"

type options struct {
	configPath string
	verbose    bool

	cfg *config.Config
	log *slog.Logger
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "irprobe-sim",
		Short: "Simulate the IR proximity probe and its fan controller",
		Long: `irprobe-sim runs the probe firmware core against a simulated plant:
a reflecting surface at a configurable distance, ambient light and an NTC
thermistor. Settings and the plant model are read from the same YAML file
the bench application uses.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Configuration file path")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log probe level and fan transitions")

	cmd.AddCommand(newRunCommand(opts), newSweepCommand(opts))
	return cmd
}

func (o *options) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	o.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}
