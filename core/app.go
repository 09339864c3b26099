package core

// CycleReport describes one completed sampling cycle.
type CycleReport struct {
	Cycle     uint32
	Velocity  int16
	Fresh     bool
	Direction Direction
	Button    ButtonLevel
	Signals   Signals
}

// CycleObserver is called from the sampling context after every cycle. It
// must not block.
type CycleObserver func(CycleReport)

// App wires the interrupt handlers, the sampling step and the actuation step
// onto a platform.
type App struct {
	cfg      Config
	platform Platform

	state     *State
	tracker   *Tracker
	button    *ButtonSampler
	dataReady *DataReadyHandler
	actuator  *Actuator
	scheduler Scheduler

	observers []CycleObserver
	cycles    uint32
}

// NewApp builds the application. Nothing touches hardware until Init.
func NewApp(cfg Config, platform Platform) (*App, error) {
	if err := platform.validate(); err != nil {
		return nil, err
	}
	sched, err := NewScheduler(cfg, platform.Kernel)
	if err != nil {
		return nil, err
	}

	state := NewState(cfg.BootReady)
	return &App{
		cfg:       cfg,
		platform:  platform,
		state:     state,
		tracker:   NewTracker(state, platform.Gyro, cfg.Threshold),
		button:    NewButtonSampler(state, platform.GPIO, platform.IRQ, cfg.ButtonIRQ, cfg.ButtonPin, cfg.ButtonActiveHigh),
		dataReady: NewDataReadyHandler(state, platform.IRQ, cfg.DataReadyIRQ),
		actuator:  NewActuator(platform.GPIO, cfg.SignalAPin, cfg.SignalBPin),
		scheduler: sched,
	}, nil
}

func (a *App) Config() Config                { return a.cfg }
func (a *App) State() *State                 { return a.state }
func (a *App) Scheduler() Scheduler          { return a.scheduler }
func (a *App) DataReady() *DataReadyHandler  { return a.dataReady }
func (a *App) ButtonSampler() *ButtonSampler { return a.button }

// OnCycle registers an observer. Call before Init.
func (a *App) OnCycle(o CycleObserver) {
	a.observers = append(a.observers, o)
}

// RunCycle performs one sampling step followed by one actuation step.
func (a *App) RunCycle() CycleReport {
	velocity, fresh := a.tracker.Sample()

	// The report carries the same inputs the outputs were computed from,
	// even if the button changes during the writes.
	dir := a.state.Direction()
	button := a.state.ButtonLevel()
	signals := a.actuator.Actuate(button, dir)

	a.cycles++
	r := CycleReport{
		Cycle:     a.cycles,
		Velocity:  velocity,
		Fresh:     fresh,
		Direction: dir,
		Button:    button,
		Signals:   signals,
	}
	RecordCycle(r)
	for _, o := range a.observers {
		o(r)
	}
	return r
}

// Cycles returns the number of completed cycles
func (a *App) Cycles() uint32 {
	return a.cycles
}

// Init brings the application up: outputs low, sensor configured, button and
// data-ready interrupts enabled, scheduler started. Any failure is fatal.
// Init returns the failure after calling Fatal in case the handler returns.
func (a *App) Init() error {
	a.actuator.Apply(Signals{})

	if err := a.platform.Gyro.Init(); err != nil {
		Fatal("gyro init: " + err.Error())
		return err
	}

	a.platform.IRQ.Enable(a.cfg.ButtonIRQ)
	a.platform.IRQ.Enable(a.cfg.DataReadyIRQ)

	if err := a.scheduler.Start(func() { a.RunCycle() }); err != nil {
		Fatal(a.scheduler.Mode().String() + " start: " + err.Error())
		return err
	}
	DebugPrintln("[APP] started in " + a.scheduler.Mode().String() + " mode")
	return nil
}
