package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itohio/irprobe/pkg/probe"
	"github.com/itohio/irprobe/pkg/proximity"
	"github.com/itohio/irprobe/pkg/schedule"
	"github.com/itohio/irprobe/pkg/sim"
)

var errStep = errors.New("step must be positive")

type sweepOptions struct {
	from, to, step float32
	ticks          int
	simple         bool
	standard       bool
}

func newSweepCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Step the probe through distances or temperatures and print what it reports",
	}
	cmd.AddCommand(newDistanceCommand(opts), newTemperatureCommand(opts))
	return cmd
}

func newDistanceCommand(opts *options) *cobra.Command {
	so := &sweepOptions{}

	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Move the surface and print the output level at each distance",
		RunE: func(cmd *cobra.Command, args []string) error {
			distances, err := steps(so.from, so.to, so.step)
			if err != nil {
				return err
			}
			plant := opts.cfg.Mock.Plant
			if so.simple {
				plant.Simple = true
			}
			points, err := sweepDistance(opts.cfg.Settings(), plant, distances, so.ticks)
			if err != nil {
				return err
			}
			return printPoints(cmd.OutOrStdout(), points)
		},
	}

	cmd.Flags().Float32Var(&so.from, "from", 0, "First distance, mm")
	cmd.Flags().Float32Var(&so.to, "to", 10, "Last distance, mm")
	cmd.Flags().Float32Var(&so.step, "step", 0.5, "Distance step, mm")
	cmd.Flags().IntVar(&so.ticks, "ticks", 1000, "Interrupts to run at each distance")
	cmd.Flags().BoolVar(&so.simple, "simple", false, "Hold the mode-select line low")
	return cmd
}

func newTemperatureCommand(opts *options) *cobra.Command {
	so := &sweepOptions{}

	cmd := &cobra.Command{
		Use:   "temperature",
		Short: "Heat the thermistor up and back down and print the fan state at each step",
		RunE: func(cmd *cobra.Command, args []string) error {
			up, err := steps(so.from, so.to, so.step)
			if err != nil {
				return err
			}
			plant := opts.cfg.Mock.Plant
			if so.standard {
				plant.HighSensitivity = false
			}
			points, err := sweepTemperature(opts.cfg.Settings(), plant, pingPong(up), so.ticks)
			if err != nil {
				return err
			}
			return printPoints(cmd.OutOrStdout(), points)
		},
	}

	cmd.Flags().Float32Var(&so.from, "from", 20, "First temperature, C")
	cmd.Flags().Float32Var(&so.to, "to", 70, "Highest temperature, C")
	cmd.Flags().Float32Var(&so.step, "step", 5, "Temperature step, C")
	cmd.Flags().IntVar(&so.ticks, "ticks", 8000, "Interrupts to run at each temperature")
	cmd.Flags().BoolVar(&so.standard, "standard", false, "Ground the strap: standard fan profile")
	return cmd
}

// point is the probe state at the end of one sweep step.
type point struct {
	Distance    float32
	Temperature float32
	Level       proximity.Level
	Output      proximity.Level // level decoded from the host input
	Fan         bool
	Sums        schedule.Sums
}

// stepper runs the probe interrupt and main loop in lockstep.
type stepper struct {
	board *sim.Board
	dev   *probe.Device
}

func newStepper(settings probe.Settings, plant sim.PlantConfig) (*stepper, error) {
	board := sim.NewBoard(plant, 0)
	dev, err := probe.New(board.Hardware(), settings)
	if err != nil {
		return nil, fmt.Errorf("failed to start probe: %w", err)
	}
	return &stepper{board: board, dev: dev}, nil
}

func (s *stepper) advance(ticks int) {
	for rep := 0; rep < ticks; rep++ {
		s.board.Interrupt(s.dev.Tick)
		s.dev.Step()
	}
}

func (s *stepper) point() point {
	plant := s.board.Plant.Config()
	return point{
		Distance:    plant.Distance,
		Temperature: plant.Temperature,
		Level:       s.dev.Level(),
		Output:      s.board.Output(),
		Fan:         s.dev.FanOn(),
		Sums:        s.dev.Snapshot().Sums,
	}
}

// sweepDistance moves the surface through distances, running ticks
// interrupts at each one.
func sweepDistance(settings probe.Settings, plant sim.PlantConfig, distances []float32, ticks int) ([]point, error) {
	s, err := newStepper(settings, plant)
	if err != nil {
		return nil, err
	}

	points := make([]point, 0, len(distances))
	for _, d := range distances {
		s.board.Plant.SetDistance(d)
		s.advance(ticks)
		points = append(points, s.point())
	}
	return points, nil
}

// sweepTemperature heats the thermistor through temperatures without
// restarting the probe, so the fan hysteresis and minimum run time show.
func sweepTemperature(settings probe.Settings, plant sim.PlantConfig, temperatures []float32, ticks int) ([]point, error) {
	s, err := newStepper(settings, plant)
	if err != nil {
		return nil, err
	}

	points := make([]point, 0, len(temperatures))
	for _, c := range temperatures {
		s.board.Plant.SetTemperature(c)
		s.advance(ticks)
		points = append(points, s.point())
	}
	return points, nil
}

// steps returns from, from+step, ... up to and including to. The sequence
// descends when to < from.
func steps(from, to, step float32) ([]float32, error) {
	if step <= 0 {
		return nil, errStep
	}
	n := int((abs32(to-from) + step/2) / step)
	dir := float32(1)
	if to < from {
		dir = -1
	}

	values := make([]float32, 0, n+1)
	for i := 0; i <= n; i++ {
		values = append(values, from+dir*step*float32(i))
	}
	return values, nil
}

// pingPong appends values in reverse without repeating the turning point.
func pingPong(values []float32) []float32 {
	out := append([]float32(nil), values...)
	for i := len(values) - 2; i >= 0; i-- {
		out = append(out, values[i])
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func printPoints(w io.Writer, points []point) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "distance\ttemperature\tlevel\toutput\tfan\tnear\tfar\tambient\tfan_signal\tfan_reference\t")
	for _, p := range points {
		fan := "off"
		if p.Fan {
			fan = "on"
		}
		fmt.Fprintf(tw, "%.2f\t%.1f\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t\n",
			p.Distance, p.Temperature, p.Level, p.Output, fan,
			p.Sums.Near, p.Sums.Far, p.Sums.Ambient, p.Sums.FanSignal, p.Sums.FanReference)
	}
	return tw.Flush()
}
