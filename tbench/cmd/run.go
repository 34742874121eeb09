package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/rtltb/datarecording"
	"github.com/sarchlab/rtltb/device"
	"github.com/sarchlab/rtltb/report"
	"github.com/sarchlab/rtltb/scoreboard"
	"github.com/sarchlab/rtltb/sim"
	"github.com/sarchlab/rtltb/simulation"
	"github.com/sarchlab/rtltb/tb"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the FIFO testbench.",
	Long: "`run` resets the FIFO, drives random traffic for the given " +
		"number of cycles, drains it, and prints the verdict.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTestbench(cmd.Flags())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
}

func addRunFlags(f *pflag.FlagSet) {
	d := tb.DefaultConfig()

	f.String("name", d.Name, "Name of the test")
	f.String("half-period", d.ClockHalfPeriod.String(),
		"Half period of the clock, such as 5ns")
	f.Int("reset-cycles", d.ResetCycles, "Clock cycles to hold the reset")
	f.Int("settle-cycles", d.SettleCycles,
		"Clock cycles to wait after the reset is released")
	f.Int("cycles", d.Cycles, "Clock cycles of random stimulus")
	f.Float64("valid-prob", d.ValidProbability,
		"Probability of offering a word in a cycle")
	f.Float64("ready-prob", d.ReadyProbability,
		"Probability of accepting a word in a cycle")
	f.String("drain", d.Drain.String(),
		"Time to wait after the stimulus, such as 1us")
	f.Int64("seed", d.Seed, "Seed of the random stimulus")
	f.Int("mem-depth", d.MemDepth, "Words of the memory model")
	f.Int("data-width", d.DataWidth, "Width of the data pins in bits")
	f.String("drain-policy", d.DrainPolicy.String(),
		"Scoreboard comparisons per transaction: all or one")
	f.Bool("assertions", d.Assertions,
		"Check that every accepted word leaves the FIFO in time")
	f.Int("assertion-window", d.AssertionWindow,
		"Cycles within which an accepted word must leave the FIFO")

	f.String("pin-style", device.AXIStream.String(),
		"Pin style of the FIFO: axis or native")
	f.Int("capacity", 16, "Words the FIFO holds")
	f.Int("address-bits", 4, "Width of the FIFO's memory address pins")
	f.Bool("reset-active-low", false, "Reset the FIFO while rst is 0")

	f.Bool("record", true, "Record the run into a database")
	f.String("output", "", "Recording file name, without the extension")
	f.Bool("record-matches", false, "Record every scoreboard comparison")
	f.String("clickhouse-host", "", "Record into this ClickHouse server")
	f.Int("clickhouse-port", 9000, "Port of the ClickHouse server")
	f.String("clickhouse-db", "default", "ClickHouse database")
	f.String("clickhouse-user", "default", "ClickHouse user")
	f.String("clickhouse-password", "", "ClickHouse password")

	f.Bool("monitor", false, "Serve the monitoring web page during the run")
	f.Int("monitor-port", 0, "Port of the monitoring server")
	f.Bool("open-monitor", false, "Open the monitoring page in a browser")

	f.String("junit", report.DefaultFile,
		"JUnit report file, empty to skip the report")
	f.BoolP("verbose", "v", false, "Log the progress of the test")
	f.Bool("log-events", false, "Log every simulation event")
}

// configFromFlags reads the testbench configuration.
func configFromFlags(f *pflag.FlagSet) (tb.Config, error) {
	cfg := tb.DefaultConfig()

	var err error

	cfg.Name, _ = f.GetString("name")
	cfg.ResetCycles, _ = f.GetInt("reset-cycles")
	cfg.SettleCycles, _ = f.GetInt("settle-cycles")
	cfg.Cycles, _ = f.GetInt("cycles")
	cfg.ValidProbability, _ = f.GetFloat64("valid-prob")
	cfg.ReadyProbability, _ = f.GetFloat64("ready-prob")
	cfg.Seed, _ = f.GetInt64("seed")
	cfg.MemDepth, _ = f.GetInt("mem-depth")
	cfg.DataWidth, _ = f.GetInt("data-width")
	cfg.Assertions, _ = f.GetBool("assertions")
	cfg.AssertionWindow, _ = f.GetInt("assertion-window")
	cfg.Pins.ResetActiveLow, _ = f.GetBool("reset-active-low")

	halfPeriod, _ := f.GetString("half-period")
	cfg.ClockHalfPeriod, err = sim.ParseVTime(halfPeriod)
	if err != nil {
		return cfg, errors.Wrap(err, "--half-period")
	}

	drain, _ := f.GetString("drain")
	cfg.Drain, err = sim.ParseVTime(drain)
	if err != nil {
		return cfg, errors.Wrap(err, "--drain")
	}

	policy, _ := f.GetString("drain-policy")
	switch policy {
	case scoreboard.DrainAll.String():
		cfg.DrainPolicy = scoreboard.DrainAll
	case scoreboard.DrainOne.String():
		cfg.DrainPolicy = scoreboard.DrainOne
	default:
		return cfg, errors.Errorf("--drain-policy: unknown policy %q", policy)
	}

	return cfg, cfg.Validate()
}

// builderFromFlags configures the simulation.
func builderFromFlags(f *pflag.FlagSet) (simulation.Builder, error) {
	b := simulation.MakeBuilder()

	cfg, err := configFromFlags(f)
	if err != nil {
		return b, err
	}

	b = b.WithConfig(cfg)

	style, _ := f.GetString("pin-style")
	pinStyle, err := device.ParsePinStyle(style)
	if err != nil {
		return b, errors.Wrap(err, "--pin-style")
	}

	capacity, _ := f.GetInt("capacity")
	addressBits, _ := f.GetInt("address-bits")
	b = b.WithPinStyle(pinStyle).
		WithCapacity(capacity).
		WithAddressBits(addressBits)

	b = recordingFromFlags(b, f)
	b = monitoringFromFlags(b, f)

	verbose, _ := f.GetBool("verbose")
	logEvents, _ := f.GetBool("log-events")

	if verbose || logEvents {
		b = b.WithLogger(log.New(os.Stderr, "", 0))
	}

	if logEvents {
		b = b.WithEventLogging()
	}

	return b, nil
}

func recordingFromFlags(b simulation.Builder, f *pflag.FlagSet) simulation.Builder {
	record, _ := f.GetBool("record")
	if !record {
		return b.WithoutRecording()
	}

	if output, _ := f.GetString("output"); output != "" {
		b = b.WithOutputFileName(output)
	}

	if matches, _ := f.GetBool("record-matches"); matches {
		b = b.WithMatchRecording()
	}

	host, _ := f.GetString("clickhouse-host")
	if host != "" {
		opts := datarecording.ClickHouseOptions{Host: host}
		opts.Port, _ = f.GetInt("clickhouse-port")
		opts.Database, _ = f.GetString("clickhouse-db")
		opts.Username, _ = f.GetString("clickhouse-user")
		opts.Password, _ = f.GetString("clickhouse-password")
		b = b.WithClickHouse(opts)
	}

	return b
}

func monitoringFromFlags(b simulation.Builder, f *pflag.FlagSet) simulation.Builder {
	monitor, _ := f.GetBool("monitor")
	open, _ := f.GetBool("open-monitor")

	if !monitor && !open {
		return b.WithoutMonitoring()
	}

	if port, _ := f.GetInt("monitor-port"); port != 0 {
		b = b.WithMonitorPort(port)
	}

	return b
}

func runTestbench(f *pflag.FlagSet) error {
	b, err := builderFromFlags(f)
	if err != nil {
		return err
	}

	s, err := b.Build()
	if err != nil {
		return err
	}

	if open, _ := f.GetBool("open-monitor"); open {
		err = browser.OpenURL(s.GetMonitor().URL())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open the browser: %v\n", err)
		}
	}

	v, runErr := s.Run()

	err = s.Terminate()
	if err != nil {
		return errors.Wrap(err, "close recording")
	}

	fmt.Println(v)

	if path, _ := f.GetString("junit"); path != "" {
		junit := report.NewJUnit("rtltb")
		junit.Add(v, runErr)

		err = junit.WriteFile(path)
		if err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}

	if !v.Passed {
		return errTestFailed
	}

	return nil
}
