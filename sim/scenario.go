package sim

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"gyroled/core"
	"gyroled/rtos"
)

// Button actions in a scenario event.
const (
	ButtonPress   = "press"
	ButtonRelease = "release"
)

// Event is one external stimulus on the timeline. Fields combine: an event
// may change the gyro velocity, raise data-ready and move the button at the
// same instant, in that order.
type Event struct {
	At        time.Duration `yaml:"at"`
	Velocity  *int16        `yaml:"velocity,omitempty"`
	DataReady bool          `yaml:"data_ready,omitempty"`
	Button    string        `yaml:"button,omitempty"`
}

// Expectation pins the outputs of one cycle.
type Expectation struct {
	Cycle uint32 `yaml:"cycle"`
	A     bool   `yaml:"a"`
	B     bool   `yaml:"b"`
}

// Scenario is a timeline of edges and sensor values to replay against the
// application.
type Scenario struct {
	Name            string        `yaml:"name"`
	Period          time.Duration `yaml:"period"`
	Duration        time.Duration `yaml:"duration"`
	BootReady       *bool         `yaml:"boot_ready,omitempty"`
	InitialVelocity int16         `yaml:"initial_velocity"`
	Events          []Event       `yaml:"events"`
	Expect          []Expectation `yaml:"expect,omitempty"`
}

// LoadScenario decodes a scenario and fills in defaults.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, errors.Wrap(err, "decoding scenario")
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadScenarioFile reads a scenario from path.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening scenario")
	}
	defer f.Close()
	sc, err := LoadScenario(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Period == 0 {
		sc.Period = core.DefaultPeriod
	}
	if sc.Duration == 0 {
		sc.Duration = 10 * sc.Period
	}
	if sc.BootReady == nil {
		ready := true
		sc.BootReady = &ready
	}
}

// Validate checks the timeline is well formed.
func (sc *Scenario) Validate() error {
	if sc.Period < rtos.Tick {
		return errors.Errorf("scenario %q: period %v shorter than one tick", sc.Name, sc.Period)
	}
	if sc.Duration < 0 {
		return errors.Errorf("scenario %q: negative duration", sc.Name)
	}
	for i, ev := range sc.Events {
		if ev.At < 0 || ev.At > sc.Duration {
			return errors.Errorf("scenario %q: event %d at %v outside [0, %v]", sc.Name, i, ev.At, sc.Duration)
		}
		switch ev.Button {
		case "", ButtonPress, ButtonRelease:
		default:
			return errors.Errorf("scenario %q: event %d: unknown button action %q", sc.Name, i, ev.Button)
		}
	}
	return nil
}

// Ready returns the boot readiness the scenario asks for
func (sc *Scenario) Ready() bool {
	return sc.BootReady == nil || *sc.BootReady
}
