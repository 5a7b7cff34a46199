package robot

import (
	"context"
	"maps"
	"sync"
)

// SimArm is an in-memory arm. While torque is enabled each read moves every
// joint toward its target by at most Slew; with torque off joints stay where
// they were put, as if held by hand.
type SimArm struct {
	name string
	// Slew is the largest change per read, in normalized units.
	Slew float64

	mu       sync.Mutex
	enabled  bool
	current  Positions
	target   Positions
	readErr  error
	writeErr error
}

// NewSimArm returns a relaxed arm with every joint at 0.
func NewSimArm(name string, slew float64) *SimArm {
	a := &SimArm{
		name:    name,
		Slew:    slew,
		current: make(Positions),
		target:  make(Positions),
	}
	for _, m := range AllMotors() {
		a.current[m] = 0
	}
	return a
}

func (a *SimArm) Name() string { return a.name }

func (a *SimArm) String() string { return a.name }

func (a *SimArm) Enable(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = true
	return nil
}

func (a *SimArm) Disable(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = false
	return nil
}

// Enabled reports whether torque is on.
func (a *SimArm) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Place moves joints directly, the way a hand moves a relaxed leader.
func (a *SimArm) Place(p Positions) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for name, v := range p {
		a.current[name] = Clamp(v)
	}
}

// Fail makes subsequent reads or writes return err. Nil clears it.
func (a *SimArm) Fail(readErr, writeErr error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.readErr, a.writeErr = readErr, writeErr
}

func (a *SimArm) ReadPositions(context.Context) (Positions, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.readErr != nil {
		return nil, a.readErr
	}
	if a.enabled {
		for name, want := range a.target {
			a.current[name] = approach(a.current[name], want, a.Slew)
		}
	}
	return maps.Clone(a.current), nil
}

// ReadRaw reports positions in raw steps using DefaultCalibration.
func (a *SimArm) ReadRaw(ctx context.Context) (map[MotorName]int, error) {
	p, err := a.ReadPositions(ctx)
	if err != nil {
		return nil, err
	}
	cal := DefaultCalibration()
	raw := make(map[MotorName]int, len(p))
	for name, v := range p {
		raw[name] = cal[name].Denormalize(v)
	}
	return raw, nil
}

func (a *SimArm) WritePositions(_ context.Context, p Positions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.writeErr != nil {
		return a.writeErr
	}
	for name, v := range p {
		a.target[name] = Clamp(v)
	}
	return nil
}

func approach(from, to, step float64) float64 {
	if step <= 0 {
		return to
	}
	switch {
	case to > from+step:
		return from + step
	case to < from-step:
		return from - step
	default:
		return to
	}
}
