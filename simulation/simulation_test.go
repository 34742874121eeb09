package simulation

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rtltb/datarecording"
	"github.com/sarchlab/rtltb/device"
	"github.com/sarchlab/rtltb/mem"
	"github.com/sarchlab/rtltb/sim"
	"github.com/sarchlab/rtltb/tb"
)

func shortConfig() tb.Config {
	cfg := tb.DefaultConfig()
	cfg.Cycles = 200

	return cfg
}

var _ = Describe("Simulation", func() {
	var (
		outputPath string
		simulation *Simulation
	)

	BeforeEach(func() {
		outputPath = filepath.Join(GinkgoT().TempDir(), "run")
	})

	AfterEach(func() {
		if simulation != nil {
			Expect(simulation.Terminate()).To(Succeed())
			simulation = nil
		}
	})

	It("should run the testbench and record the verdict", func() {
		var err error
		simulation, err = MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(outputPath).
			WithConfig(shortConfig()).
			Build()
		Expect(err).ToNot(HaveOccurred())

		v, err := simulation.Run()
		Expect(err).ToNot(HaveOccurred())
		Expect(v.Passed).To(BeTrue(), v.String())

		Expect(simulation.Terminate()).To(Succeed())
		id := simulation.ID()
		simulation = nil

		reader, err := datarecording.NewReader(outputPath + ".sqlite3")
		Expect(err).ToNot(HaveOccurred())
		defer reader.Close()

		datarecording.MapTables(reader)

		verdicts, total, err := reader.Query(context.Background(), "verdicts",
			datarecording.QueryParams{})
		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(1))

		row := verdicts[0].(*datarecording.VerdictEntry)
		Expect(row.RunID).To(Equal(id))
		Expect(row.Passed).To(BeTrue())
		Expect(row.Matched).To(Equal(v.Stats.Matched))

		_, seeds, err := reader.Query(context.Background(), "run_info",
			datarecording.QueryParams{
				Where: "Property = ? AND Value = ?",
				Args:  []any{"Seed", "1"},
			})
		Expect(err).ToNot(HaveOccurred())
		Expect(seeds).To(Equal(1))

		_, mismatches, err := reader.Query(context.Background(),
			"scoreboard_comparisons", datarecording.QueryParams{})
		Expect(err).ToNot(HaveOccurred())
		Expect(mismatches).To(Equal(0))
	})

	It("should record every comparison when asked", func() {
		var err error
		simulation, err = MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(outputPath).
			WithMatchRecording().
			WithConfig(shortConfig()).
			Build()
		Expect(err).ToNot(HaveOccurred())

		v, err := simulation.Run()
		Expect(err).ToNot(HaveOccurred())

		Expect(simulation.Terminate()).To(Succeed())
		simulation = nil

		reader, err := datarecording.NewReader(outputPath + ".sqlite3")
		Expect(err).ToNot(HaveOccurred())
		defer reader.Close()

		datarecording.MapTables(reader)

		_, total, err := reader.Query(context.Background(),
			"scoreboard_comparisons", datarecording.QueryParams{})
		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(int(v.Stats.Matched)))
	})

	It("should test a native FIFO", func() {
		var err error
		simulation, err = MakeBuilder().
			WithoutMonitoring().
			WithoutRecording().
			WithPinStyle(device.Native).
			WithConfig(shortConfig()).
			Build()
		Expect(err).ToNot(HaveOccurred())

		Expect(simulation.GetTestbench().Config().Pins).
			To(Equal(tb.NativePins()))

		v, err := simulation.Run()
		Expect(err).ToNot(HaveOccurred())
		Expect(v.Passed).To(BeTrue(), v.String())
	})

	It("should abort when the memory is smaller than the address space", func() {
		cfg := shortConfig()
		cfg.MemDepth = 8

		var err error
		simulation, err = MakeBuilder().
			WithoutMonitoring().
			WithoutRecording().
			WithConfig(cfg).
			Build()
		Expect(err).ToNot(HaveOccurred())

		_, err = simulation.Run()

		var rangeErr *mem.AddressRangeError
		Expect(errors.As(err, &rangeErr)).To(BeTrue())
		Expect(rangeErr.Address).To(Equal(uint64(8)))
	})

	It("should report progress to the monitor", func() {
		var err error
		simulation, err = MakeBuilder().
			WithoutRecording().
			WithConfig(shortConfig()).
			Build()
		Expect(err).ToNot(HaveOccurred())

		Expect(simulation.GetMonitor()).ToNot(BeNil())
		Expect(simulation.GetMonitor().URL()).ToNot(BeEmpty())
		Expect(simulation.progress.Total).To(Equal(uint64(200)))

		_, err = simulation.Run()
		Expect(err).ToNot(HaveOccurred())
		Expect(simulation.progress.Finished).To(Equal(uint64(200)))
	})

	It("should reject an invalid configuration", func() {
		cfg := shortConfig()
		cfg.ValidProbability = 2

		_, err := MakeBuilder().
			WithoutMonitoring().
			WithoutRecording().
			WithConfig(cfg).
			Build()
		Expect(errors.Is(err, tb.ErrInvalidConfig)).To(BeTrue())
	})

	It("should reject contradicting options", func() {
		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithMonitorPort(8080).Build()
		}).To(Panic())

		Expect(func() {
			MakeBuilder().WithoutRecording().WithOutputFileName("x").Build()
		}).To(Panic())

		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithEventLogging().Build()
		}).To(Panic())
	})

	It("should map device pins to testbench pins", func() {
		f := device.MakeBuilder().
			WithEngine(sim.NewSerialEngine()).
			Build("DUT")

		pins := TestbenchPins(f, false)
		Expect(pins).To(Equal(tb.AXIStreamPins()))

		pins = TestbenchPins(f, true)
		Expect(pins.ResetActiveLow).To(BeTrue())
	})
})
