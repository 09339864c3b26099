package sim

import (
	"strconv"

	"gyroled/core"
)

// Gyro is a simulated rate gyro. The velocity it reports is set directly by
// the scenario; a data-ready edge is raised separately.
type Gyro struct {
	Velocity int16
	InitErr  error

	Inits int
	Reads int
}

func (g *Gyro) Init() error {
	g.Inits++
	return g.InitErr
}

func (g *Gyro) ReadVelocity() int16 {
	g.Reads++
	return g.Velocity
}

// PinWrite is one output write observed by the simulated GPIO.
type PinWrite struct {
	Tick  uint32
	Pin   core.GPIOPin
	Value bool
}

// GPIO is a simulated GPIO bank. Inputs are set by the scenario; every
// output write is logged with the tick it happened at.
type GPIO struct {
	now     func() uint32
	inputs  map[core.GPIOPin]bool
	outputs map[core.GPIOPin]bool
	Writes  []PinWrite
}

func NewGPIO(now func() uint32) *GPIO {
	return &GPIO{
		now:     now,
		inputs:  make(map[core.GPIOPin]bool),
		outputs: make(map[core.GPIOPin]bool),
	}
}

// SetInput drives an input pin from outside the board.
func (g *GPIO) SetInput(pin core.GPIOPin, level bool) {
	g.inputs[pin] = level
}

func (g *GPIO) ReadPin(pin core.GPIOPin) bool {
	return g.inputs[pin]
}

func (g *GPIO) WritePin(pin core.GPIOPin, value bool) {
	g.outputs[pin] = value
	g.Writes = append(g.Writes, PinWrite{Tick: g.now(), Pin: pin, Value: value})
}

// Output returns the level last written to pin
func (g *GPIO) Output(pin core.GPIOPin) bool {
	return g.outputs[pin]
}

type irqLine struct {
	handler func()
	enabled bool
	pending bool
}

// NVIC is a simulated interrupt controller. An edge raised on a masked line
// is latched and delivered when the line is enabled again, unless it is
// cleared first. Handlers run through core.Critical and never nest.
type NVIC struct {
	lines  map[core.IRQSource]*irqLine
	queue  []core.IRQSource
	active bool

	// Ops logs every controller call, e.g. "disable 8".
	Ops []string

	Delivered int
	Latched   int
}

func NewNVIC() *NVIC {
	return &NVIC{lines: make(map[core.IRQSource]*irqLine)}
}

func (n *NVIC) line(src core.IRQSource) *irqLine {
	l, ok := n.lines[src]
	if !ok {
		l = &irqLine{}
		n.lines[src] = l
	}
	return l
}

// Attach installs the handler for src. The line starts masked.
func (n *NVIC) Attach(src core.IRQSource, handler func()) {
	n.line(src).handler = handler
}

// Raise signals an edge on src.
func (n *NVIC) Raise(src core.IRQSource) {
	l := n.line(src)
	if !l.enabled {
		l.pending = true
		n.Latched++
		return
	}
	n.dispatch(src)
}

func (n *NVIC) dispatch(src core.IRQSource) {
	n.queue = append(n.queue, src)
	if n.active {
		return
	}
	n.active = true
	for len(n.queue) > 0 {
		next := n.queue[0]
		n.queue = n.queue[1:]
		if h := n.lines[next].handler; h != nil {
			n.Delivered++
			core.Critical(h)
		}
	}
	n.active = false
}

func (n *NVIC) Enable(src core.IRQSource) {
	n.log("enable", src)
	l := n.line(src)
	l.enabled = true
	if l.pending {
		l.pending = false
		n.dispatch(src)
	}
}

func (n *NVIC) Disable(src core.IRQSource) {
	n.log("disable", src)
	n.line(src).enabled = false
}

func (n *NVIC) ClearPending(src core.IRQSource) {
	n.log("clear", src)
	n.line(src).pending = false
}

// Enabled reports whether src is unmasked
func (n *NVIC) Enabled(src core.IRQSource) bool {
	return n.line(src).enabled
}

func (n *NVIC) log(op string, src core.IRQSource) {
	n.Ops = append(n.Ops, op+" "+strconv.Itoa(int(src)))
}

// Board is a simulated board with everything the application needs.
type Board struct {
	Kernel *Kernel
	GPIO   *GPIO
	NVIC   *NVIC
	Gyro   *Gyro
}

func NewBoard(kernel *Kernel) *Board {
	return &Board{
		Kernel: kernel,
		GPIO:   NewGPIO(kernel.Now),
		NVIC:   NewNVIC(),
		Gyro:   &Gyro{},
	}
}

// Platform returns the board as a core.Platform.
func (b *Board) Platform() core.Platform {
	return core.Platform{
		GPIO:   b.GPIO,
		IRQ:    b.NVIC,
		Gyro:   b.Gyro,
		Kernel: b.Kernel,
	}
}
