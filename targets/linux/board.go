package main

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"periph.io/x/conn/v3/gpio"

	"gyroled/core"
	"gyroled/logging"
)

// edgePollTimeout bounds how long a watcher blocks before checking for Stop.
const edgePollTimeout = 50 * time.Millisecond

// PeriphGPIO implements core.GPIODriver on periph.io pins mapped to logical
// pin slots.
type PeriphGPIO struct {
	pins        map[core.GPIOPin]gpio.PinIO
	writeErrors atomic.Uint32
}

func NewPeriphGPIO() *PeriphGPIO {
	return &PeriphGPIO{pins: make(map[core.GPIOPin]gpio.PinIO)}
}

// ConfigureOutput maps slot onto pin and drives it low.
func (g *PeriphGPIO) ConfigureOutput(slot core.GPIOPin, pin gpio.PinIO) error {
	if pin == nil {
		return errors.Errorf("output slot %d: no pin", slot)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return errors.Wrapf(err, "configuring %s as output", pin)
	}
	g.pins[slot] = pin
	return nil
}

// ConfigureInput maps slot onto pin. Edge detection is set up by the
// EdgeController that watches it.
func (g *PeriphGPIO) ConfigureInput(slot core.GPIOPin, pin gpio.PinIO) error {
	if pin == nil {
		return errors.Errorf("input slot %d: no pin", slot)
	}
	g.pins[slot] = pin
	return nil
}

// ReadPin implements core.GPIODriver. Unmapped slots read low.
func (g *PeriphGPIO) ReadPin(slot core.GPIOPin) bool {
	pin, ok := g.pins[slot]
	if !ok {
		return false
	}
	return pin.Read() == gpio.High
}

// WritePin implements core.GPIODriver.
func (g *PeriphGPIO) WritePin(slot core.GPIOPin, value bool) {
	pin, ok := g.pins[slot]
	if !ok {
		g.writeErrors.Inc()
		return
	}
	if err := pin.Out(gpio.Level(value)); err != nil {
		g.writeErrors.Inc()
	}
}

// WriteErrors returns how many output writes failed
func (g *PeriphGPIO) WriteErrors() uint32 {
	return g.writeErrors.Load()
}

type edgeLine struct {
	pin     gpio.PinIn
	handler func()
	enabled bool
	pending bool
	wake    chan struct{}
}

// signal wakes the line's dispatcher without blocking.
func (l *edgeLine) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// EdgeController implements core.InterruptController with periph.io edge
// detection. Each source has a watcher goroutine that sets its pending bit and
// a dispatcher goroutine that runs its handler while the source is enabled
// and pending. Handlers run only on dispatchers and through core.Critical, so
// handlers of different sources never overlap and a handler that re-enables
// its own source is never re-entered.
type EdgeController struct {
	logger logging.Logger

	mu    sync.Mutex
	lines map[core.IRQSource]*edgeLine

	delivered atomic.Uint32
	latched   atomic.Uint32

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

func NewEdgeController(logger logging.Logger) *EdgeController {
	return &EdgeController{
		logger: logger,
		lines:  make(map[core.IRQSource]*edgeLine),
		stop:   make(chan struct{}),
	}
}

// Attach configures pin for edge detection and routes its edges to handler
// as src. The source starts masked. Attach must be called before Start.
func (c *EdgeController) Attach(src core.IRQSource, pin gpio.PinIn, pull gpio.Pull, edge gpio.Edge, handler func()) error {
	if err := pin.In(pull, edge); err != nil {
		return errors.Wrapf(err, "configuring %s for %s edges", pin, edge)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines[src] = &edgeLine{pin: pin, handler: handler, wake: make(chan struct{}, 1)}
	return nil
}

// Start launches the watchers and dispatchers. A source enabled with an edge
// already pending is serviced as soon as its dispatcher starts.
func (c *EdgeController) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	for src, line := range c.lines {
		c.wg.Add(2)
		go c.watch(src, line)
		go c.serve(line)
	}
}

// Stop ends the goroutines and waits for them to return.
func (c *EdgeController) Stop() {
	c.mu.Lock()
	started := c.started
	c.started = false
	c.mu.Unlock()
	if !started {
		return
	}
	close(c.stop)
	c.wg.Wait()
}

func (c *EdgeController) watch(src core.IRQSource, line *edgeLine) {
	defer c.wg.Done()
	c.logger.Debugw("watching edges", "source", src, "pin", line.pin.String())
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		if line.pin.WaitForEdge(edgePollTimeout) {
			c.raise(line)
		}
	}
}

func (c *EdgeController) raise(line *edgeLine) {
	c.mu.Lock()
	line.pending = true
	enabled := line.enabled
	c.mu.Unlock()
	if !enabled {
		c.latched.Inc()
		return
	}
	line.signal()
}

func (c *EdgeController) serve(line *edgeLine) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case <-line.wake:
			c.dispatch(line)
		}
	}
}

func (c *EdgeController) dispatch(line *edgeLine) {
	c.mu.Lock()
	if !line.enabled || !line.pending {
		c.mu.Unlock()
		return
	}
	line.pending = false
	handler := line.handler
	c.mu.Unlock()

	core.Critical(handler)
	c.delivered.Inc()
}

// Enable unmasks src. A latched edge is handed to the source's dispatcher;
// Enable never runs the handler itself.
func (c *EdgeController) Enable(src core.IRQSource) {
	c.mu.Lock()
	line, ok := c.lines[src]
	if !ok {
		c.mu.Unlock()
		return
	}
	line.enabled = true
	pending := line.pending
	c.mu.Unlock()
	if pending {
		line.signal()
	}
}

func (c *EdgeController) Disable(src core.IRQSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[src]; ok {
		line.enabled = false
	}
}

func (c *EdgeController) ClearPending(src core.IRQSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[src]; ok {
		line.pending = false
	}
}

// Delivered returns how many handler runs have completed
func (c *EdgeController) Delivered() uint32 {
	return c.delivered.Load()
}

// Latched returns how many edges arrived while their source was masked
func (c *EdgeController) Latched() uint32 {
	return c.latched.Load()
}
