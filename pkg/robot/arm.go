package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Joints is an arm that commands can drive. Each arm is its own subsystem, so
// two commands moving the same arm never run at once.
type Joints interface {
	Name() string
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	ReadPositions(ctx context.Context) (Positions, error)
	WritePositions(ctx context.Context, positions Positions) error
}

// RawJoints is an arm that also exposes raw servo steps, used while
// recording calibration ranges.
type RawJoints interface {
	Joints
	ReadRaw(ctx context.Context) (map[MotorName]int, error)
}

// Arm is a physical SO-101 arm on a Feetech STS bus.
type Arm struct {
	name        string
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// NewArm opens the bus on port. An empty calibration falls back to
// DefaultCalibration, which is enough to read raw positions.
func NewArm(name, port string, cal Calibration) (*Arm, error) {
	if len(cal) == 0 {
		cal = DefaultCalibration()
	}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", port, err)
	}

	return &Arm{
		name:        name,
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, cal.MotorIDs()...),
		calibration: cal,
	}, nil
}

// Name returns the arm name, e.g. "leader".
func (a *Arm) Name() string { return a.name }

func (a *Arm) String() string { return a.name }

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	if err := a.group.EnableAll(ctx); err != nil {
		return fmt.Errorf("%s: enable torque: %w", a.name, err)
	}
	return nil
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	if err := a.group.DisableAll(ctx); err != nil {
		return fmt.Errorf("%s: disable torque: %w", a.name, err)
	}
	return nil
}

// ReadRaw reads raw servo steps keyed by motor name.
func (a *Arm) ReadRaw(ctx context.Context) (map[MotorName]int, error) {
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: read positions: %w", a.name, err)
	}
	raw := make(map[MotorName]int, len(rawPositions))
	for id, pos := range rawPositions {
		if name, _, ok := a.calibration.ByID(id); ok {
			raw[name] = pos
		}
	}
	return raw, nil
}

// ReadPositions reads normalized positions in the range [-100, 100].
func (a *Arm) ReadPositions(ctx context.Context) (Positions, error) {
	raw, err := a.ReadRaw(ctx)
	if err != nil {
		return nil, err
	}
	positions := make(Positions, len(raw))
	for name, pos := range raw {
		positions[name] = a.calibration[name].Normalize(pos)
	}
	return positions, nil
}

// WritePositions writes normalized target positions with a single sync write.
// Motors without calibration are skipped.
func (a *Arm) WritePositions(ctx context.Context, positions Positions) error {
	rawPositions := make(feetech.PositionMap, len(positions))
	for name, norm := range positions {
		cal, ok := a.calibration[name]
		if !ok {
			continue
		}
		rawPositions[cal.ID] = cal.Denormalize(norm)
	}

	if err := a.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("%s: write positions: %w", a.name, err)
	}
	return nil
}
