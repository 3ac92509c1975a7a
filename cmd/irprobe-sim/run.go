package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/itohio/irprobe/pkg/probe"
	"github.com/itohio/irprobe/pkg/sim"
)

type runOptions struct {
	duration time.Duration
	status   time.Duration
	simple   bool
}

func newRunCommand(opts *options) *cobra.Command {
	ro := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the probe in real time through the configured sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), opts, ro)
		},
	}

	cmd.Flags().DurationVarP(&ro.duration, "duration", "d", 0, "Stop after this long (0 = until interrupted)")
	cmd.Flags().DurationVar(&ro.status, "status", time.Second, "Status log interval")
	cmd.Flags().BoolVar(&ro.simple, "simple", false, "Start with the mode-select line low")
	return cmd
}

func runProbe(ctx context.Context, opts *options, ro *runOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if ro.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, ro.duration)
		defer cancel()
	}

	settings := opts.cfg.Settings()
	mock := opts.cfg.Mock

	plant := mock.Plant
	if ro.simple {
		plant.Simple = true
	}

	board := sim.NewBoard(plant, uint32(settings.TimerFrequency/2))
	dev, err := probe.New(board.Hardware(), settings, probe.WithLogger(opts.log))
	if err != nil {
		return fmt.Errorf("failed to start probe: %w", err)
	}
	opts.log.Info("probe powered up", "fan_mode", dev.FanMode(), "simple", plant.Simple,
		"timer_hz", settings.TimerFrequency)

	var g run.Group
	g.Add(func() error {
		<-ctx.Done()
		return nil
	}, func(error) { cancel() })
	g.Add(func() error {
		return sim.RunTimer(ctx, int(settings.TimerFrequency), mock.TimerPeriod, func() {
			board.Interrupt(dev.Tick)
		})
	}, func(error) { cancel() })
	g.Add(func() error {
		dev.Run(ctx)
		return nil
	}, func(error) { cancel() })
	g.Add(func() error {
		return report(ctx, opts, ro, board, dev, mock.Sweep)
	}, func(error) { cancel() })

	err = g.Run()
	opts.log.Info("probe stopped", "ticks", board.Ticks(), "watchdog_updates", board.Watchdog.Updates())
	return err
}

// report applies the sweep to the plant and logs the probe state every
// status interval. A watchdog expiry ends the run.
func report(ctx context.Context, opts *options, ro *runOptions, board *sim.Board, dev *probe.Device, sweep sim.Sweep) error {
	const sweepPeriod = 10 * time.Millisecond

	ticker := time.NewTicker(sweepPeriod)
	defer ticker.Stop()

	start := time.Now()
	lastStatus := start
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			sweep.Apply(board.Plant, elapsed)

			if board.Watchdog.Expired() {
				return fmt.Errorf("watchdog expired after %s", elapsed.Round(time.Millisecond))
			}

			if ro.status > 0 && now.Sub(lastStatus) >= ro.status {
				lastStatus = now
				distance, temperature := sweep.At(elapsed)
				snap := dev.Snapshot()
				opts.log.Info("status",
					"elapsed", elapsed.Round(time.Millisecond),
					"distance_mm", distance,
					"temperature_c", temperature,
					"level", dev.Level(),
					"output", board.Output(),
					"fan", dev.FanOn(),
					"near", snap.Sums.Near,
					"far", snap.Sums.Far,
					"ambient", snap.Sums.Ambient,
					"fan_signal", snap.Sums.FanSignal,
					"fan_reference", snap.Sums.FanReference,
				)
			}
		}
	}
}
