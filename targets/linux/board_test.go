package main

import (
	"testing"
	"time"

	"go.uber.org/atomic"
	"go.viam.com/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"gyroled/config"
	"gyroled/core"
	"gyroled/logging"
)

func edgePin(name string, num int) *gpiotest.Pin {
	return &gpiotest.Pin{N: name, Num: num, EdgesChan: make(chan gpio.Level, 4)}
}

func waitFor(tb testing.TB, cond func() bool) {
	tb.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			tb.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPeriphGPIO(t *testing.T) {
	g := NewPeriphGPIO()
	out := &gpiotest.Pin{N: "OUT", Num: 1, L: gpio.High}
	in := &gpiotest.Pin{N: "IN", Num: 2}

	test.That(t, g.ConfigureOutput(config.SlotSignalA, out), test.ShouldBeNil)
	test.That(t, out.Read(), test.ShouldEqual, gpio.Low)
	test.That(t, g.ConfigureInput(config.SlotButton, in), test.ShouldBeNil)

	g.WritePin(config.SlotSignalA, true)
	test.That(t, out.Read(), test.ShouldEqual, gpio.High)
	g.WritePin(config.SlotSignalA, false)
	test.That(t, out.Read(), test.ShouldEqual, gpio.Low)

	test.That(t, g.ReadPin(config.SlotButton), test.ShouldBeFalse)
	test.That(t, in.Out(gpio.High), test.ShouldBeNil)
	test.That(t, g.ReadPin(config.SlotButton), test.ShouldBeTrue)

	t.Run("unmapped slots", func(t *testing.T) {
		test.That(t, g.ReadPin(config.SlotDataReady), test.ShouldBeFalse)
		g.WritePin(config.SlotSignalB, true)
		test.That(t, g.WriteErrors(), test.ShouldEqual, uint32(1))
	})

	t.Run("nil pin", func(t *testing.T) {
		test.That(t, g.ConfigureOutput(config.SlotSignalB, nil), test.ShouldNotBeNil)
		test.That(t, g.ConfigureInput(config.SlotDataReady, nil), test.ShouldNotBeNil)
	})
}

func TestEdgeControllerLatchesWhileMasked(t *testing.T) {
	ctrl := NewEdgeController(logging.NewTestLogger(t))
	pin := edgePin("DRDY", 3)

	var calls atomic.Int32
	test.That(t, ctrl.Attach(2, pin, gpio.PullDown, gpio.RisingEdge, func() { calls.Inc() }), test.ShouldBeNil)
	ctrl.Start()
	defer ctrl.Stop()

	pin.EdgesChan <- gpio.High
	waitFor(t, func() bool { return ctrl.Latched() == 1 })
	test.That(t, ctrl.Delivered(), test.ShouldEqual, uint32(0))

	// The latched edge is delivered once the source is unmasked.
	ctrl.Enable(2)
	waitFor(t, func() bool { return ctrl.Delivered() == 1 })
	test.That(t, calls.Load(), test.ShouldEqual, int32(1))
}

func TestEdgeControllerClearPendingDropsLatchedEdge(t *testing.T) {
	ctrl := NewEdgeController(logging.NewTestLogger(t))
	pin := edgePin("DRDY", 3)

	var calls atomic.Int32
	test.That(t, ctrl.Attach(2, pin, gpio.PullDown, gpio.RisingEdge, func() { calls.Inc() }), test.ShouldBeNil)
	ctrl.Start()
	defer ctrl.Stop()

	pin.EdgesChan <- gpio.High
	waitFor(t, func() bool { return ctrl.Latched() == 1 })

	ctrl.ClearPending(2)
	ctrl.Enable(2)

	// Only the edge raised after Enable reaches the handler.
	pin.EdgesChan <- gpio.High
	waitFor(t, func() bool { return ctrl.Delivered() == 1 })
	test.That(t, calls.Load(), test.ShouldEqual, int32(1))
}

// reenteringIRQ pushes one more edge through pin just before the handler
// unmasks its own source, so the edge is latched in the ClearPending to
// Enable window.
type reenteringIRQ struct {
	*EdgeController
	pin    *gpiotest.Pin
	pushed atomic.Bool
}

func (r *reenteringIRQ) Enable(src core.IRQSource) {
	if !r.pushed.Swap(true) {
		latched := r.Latched()
		r.pin.EdgesChan <- gpio.High
		deadline := time.Now().Add(2 * time.Second)
		for r.Latched() == latched && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}
	r.EdgeController.Enable(src)
}

func TestEdgeControllerEdgeLatchedWhileHandlerUnmasks(t *testing.T) {
	ctrl := NewEdgeController(logging.NewTestLogger(t))
	pin := edgePin("DRDY", 3)
	irq := &reenteringIRQ{EdgeController: ctrl, pin: pin}

	state := core.NewState(false)
	handler := core.NewDataReadyHandler(state, irq, 2)
	test.That(t, ctrl.Attach(2, pin, gpio.PullDown, gpio.RisingEdge, handler.HandleInterrupt), test.ShouldBeNil)
	ctrl.Start()
	defer ctrl.Stop()

	// An edge before the source is enabled, as at boot.
	pin.EdgesChan <- gpio.High
	waitFor(t, func() bool { return ctrl.Latched() == 1 })

	done := make(chan struct{})
	go func() {
		ctrl.Enable(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enable did not return")
	}

	waitFor(t, func() bool { return ctrl.Delivered() == 2 })
	test.That(t, ctrl.Latched(), test.ShouldEqual, uint32(2))

	// The critical section was released, so a snapshot can still be taken.
	test.That(t, state.Snapshot().Readiness, test.ShouldEqual, core.Ready)
}

func TestEdgeControllerDrivesDataReadyHandler(t *testing.T) {
	ctrl := NewEdgeController(logging.NewTestLogger(t))
	pin := edgePin("DRDY", 3)

	state := core.NewState(false)
	handler := core.NewDataReadyHandler(state, ctrl, 2)
	test.That(t, ctrl.Attach(2, pin, gpio.PullDown, gpio.RisingEdge, handler.HandleInterrupt), test.ShouldBeNil)
	ctrl.Enable(2)
	ctrl.Start()
	defer ctrl.Stop()

	pin.EdgesChan <- gpio.High
	waitFor(t, func() bool { return state.Readiness() == core.Ready })

	// The handler re-enables its own source, so the next edge is delivered.
	state.ConsumeReady()
	pin.EdgesChan <- gpio.High
	waitFor(t, func() bool { return ctrl.Delivered() == 2 })
	test.That(t, state.Readiness(), test.ShouldEqual, core.Ready)
	test.That(t, ctrl.Latched(), test.ShouldEqual, uint32(0))
}

func TestEdgeControllerStop(t *testing.T) {
	ctrl := NewEdgeController(logging.NewTestLogger(t))
	test.That(t, ctrl.Attach(1, edgePin("BTN", 4), gpio.PullUp, gpio.BothEdges, func() {}), test.ShouldBeNil)

	// Stop before Start and a second Stop are no-ops.
	ctrl.Stop()
	ctrl.Start()
	ctrl.Stop()
	ctrl.Stop()
}

func TestEdgeControllerAttachRequiresEdgeSupport(t *testing.T) {
	ctrl := NewEdgeController(logging.NewTestLogger(t))
	pin := &gpiotest.Pin{N: "NOEDGE", Num: 5}
	test.That(t, ctrl.Attach(1, pin, gpio.PullUp, gpio.BothEdges, func() {}), test.ShouldNotBeNil)
}

func registerPins(t *testing.T, pins ...*gpiotest.Pin) {
	t.Helper()
	for _, p := range pins {
		test.That(t, gpioreg.Register(p), test.ShouldBeNil)
		name := p.N
		t.Cleanup(func() { _ = gpioreg.Unregister(name) })
	}
}

func testBoardConfig(prefix string) *config.BoardConfig {
	cfg := config.DefaultRaspberryPiConfig()
	cfg.Pins = config.PinsConfig{
		Button:    prefix + "_BTN",
		DataReady: prefix + "_DRDY",
		SignalA:   prefix + "_A",
		SignalB:   prefix + "_B",
	}
	return cfg
}

func TestNewLinuxBoard(t *testing.T) {
	button := edgePin("NLB_BTN", 100)
	dataReady := edgePin("NLB_DRDY", 101)
	a := &gpiotest.Pin{N: "NLB_A", Num: 102, L: gpio.High}
	b := &gpiotest.Pin{N: "NLB_B", Num: 103, L: gpio.High}
	registerPins(t, button, dataReady, a, b)

	board, err := newLinuxBoard(testBoardConfig("NLB"), &i2ctest.Playback{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Read(), test.ShouldEqual, gpio.Low)
	test.That(t, b.Read(), test.ShouldEqual, gpio.Low)
	test.That(t, board.pull, test.ShouldEqual, gpio.PullDown)

	cfg := testBoardConfig("NLB")
	cfg.ButtonActiveLow = true
	board, err = newLinuxBoard(cfg, &i2ctest.Playback{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, board.pull, test.ShouldEqual, gpio.PullUp)
}

func TestNewLinuxBoardUnknownPin(t *testing.T) {
	_, err := newLinuxBoard(testBoardConfig("MISSING"), &i2ctest.Playback{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no GPIO named")
}

func TestLinuxBoardButtonEdgeReachesApp(t *testing.T) {
	button := edgePin("LBA_BTN", 110)
	dataReady := edgePin("LBA_DRDY", 111)
	registerPins(t, button, dataReady,
		&gpiotest.Pin{N: "LBA_A", Num: 112},
		&gpiotest.Pin{N: "LBA_B", Num: 113},
	)

	boardCfg := testBoardConfig("LBA")
	board, err := newLinuxBoard(boardCfg, &i2ctest.Playback{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	cfg := boardCfg.CoreConfig()
	app, err := core.NewApp(cfg, board.platform())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, board.attach(cfg, app), test.ShouldBeNil)

	board.irq.Enable(cfg.ButtonIRQ)
	board.irq.Enable(cfg.DataReadyIRQ)
	board.irq.Start()
	defer board.irq.Stop()

	button.EdgesChan <- gpio.High
	waitFor(t, func() bool { return app.State().ButtonLevel() == core.Pressed })

	button.EdgesChan <- gpio.Low
	waitFor(t, func() bool { return app.State().ButtonLevel() == core.Released })

	app.State().ConsumeReady()
	dataReady.EdgesChan <- gpio.High
	waitFor(t, func() bool { return app.State().Readiness() == core.Ready })
}
