package core

// Classify maps a velocity onto a rotation direction. The comparison is
// strict: a velocity equal to the threshold is counter-clockwise.
func Classify(velocity, threshold int16) Direction {
	if velocity > threshold {
		return Clockwise
	}
	return CounterClockwise
}

// Tracker is the sampling step. It reads the gyro only when a data-ready edge
// arrived since the previous step and otherwise reuses the cached velocity.
type Tracker struct {
	state     *State
	gyro      GyroSensor
	threshold int16
}

func NewTracker(state *State, gyro GyroSensor, threshold int16) *Tracker {
	return &Tracker{state: state, gyro: gyro, threshold: threshold}
}

// Sample runs one sampling step and returns the velocity it classified and
// whether it came from the sensor. Several data-ready edges between two steps
// collapse into a single read.
func (t *Tracker) Sample() (velocity int16, fresh bool) {
	// Read and clear in one step: an edge arriving from here on is kept for
	// the next cycle instead of being overwritten.
	fresh = t.state.ConsumeReady()
	if fresh {
		velocity = t.gyro.ReadVelocity()
	} else {
		velocity = t.state.CachedVelocity()
	}

	t.state.storeSample(velocity, Classify(velocity, t.threshold))
	return velocity, fresh
}

// Threshold returns the classification threshold in raw counts
func (t *Tracker) Threshold() int16 {
	return t.threshold
}
