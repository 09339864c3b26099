package core

// DataReadyHandler services the gyro's data-ready edge. It only marks that a
// fresh sample exists; the sampling cycle decides when to read it.
type DataReadyHandler struct {
	state *State
	irq   InterruptController
	src   IRQSource
}

func NewDataReadyHandler(state *State, irq InterruptController, src IRQSource) *DataReadyHandler {
	return &DataReadyHandler{state: state, irq: irq, src: src}
}

// HandleInterrupt is the ISR body. Safe to run at any instruction boundary
// of the sampling cycle.
func (h *DataReadyHandler) HandleInterrupt() {
	h.irq.Disable(h.src)

	h.state.MarkReady()

	h.irq.ClearPending(h.src)
	h.irq.Enable(h.src)
}

// Source returns the interrupt line this handler services
func (h *DataReadyHandler) Source() IRQSource {
	return h.src
}
