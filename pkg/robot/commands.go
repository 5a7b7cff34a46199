package robot

import (
	"context"

	"github.com/gwillem/robocmd/pkg/command"
)

// Torque switches torque on or off once.
func Torque(ctx context.Context, arm Joints, on bool) *command.Command {
	return command.Setter("Torque "+arm.Name(), on, func(on bool) error {
		if on {
			return arm.Enable(ctx)
		}
		return arm.Disable(ctx)
	}, arm)
}

// Relax turns torque off so the arm can be moved by hand.
func Relax(ctx context.Context, arm Joints) *command.Command {
	return Torque(ctx, arm, false).WithName("Relax " + arm.Name())
}

// Hold keeps torque on while it runs and turns it off when it ends.
func Hold(ctx context.Context, arm Joints) *command.Command {
	return command.StartEnd("Hold "+arm.Name(),
		func() error { return arm.Enable(ctx) },
		func() error { return arm.Disable(ctx) },
		arm)
}

// MoveTo enables torque, writes target once and finishes when every joint
// in target is within tolerance. Torque stays on afterwards.
func MoveTo(ctx context.Context, arm Joints, target Positions, tolerance float64) *command.Command {
	var reached bool
	return command.NewBuilder("Move "+arm.Name(), arm).
		OnInitialize(func() error {
			reached = false
			if err := arm.Enable(ctx); err != nil {
				return err
			}
			return arm.WritePositions(ctx, target)
		}).
		OnExecute(func() error {
			p, err := arm.ReadPositions(ctx)
			if err != nil {
				return err
			}
			reached = p.Within(target, tolerance)
			return nil
		}).
		Until(func() bool { return reached }).
		Build()
}

// FollowOptions configures Follow.
type FollowOptions struct {
	// Mirror inverts shoulder_pan and wrist_roll on the follower.
	Mirror bool
	// OnStep receives every leader reading. When set, read and write errors
	// go to OnStep and the command keeps running.
	OnStep func(Positions, error)
}

// Follow copies leader positions to follower every cycle until interrupted.
// It requires only the follower; the leader is read, never driven.
func Follow(ctx context.Context, leader, follower Joints, opts FollowOptions) *command.Command {
	step := func() error {
		p, err := leader.ReadPositions(ctx)
		if err == nil {
			target := p
			if opts.Mirror {
				target = p.Mirrored()
			}
			err = follower.WritePositions(ctx, target)
		}
		if opts.OnStep != nil {
			opts.OnStep(p, err)
			return nil
		}
		return err
	}

	return command.NewBuilder("Follow "+leader.Name(), follower).
		OnInitialize(func() error { return follower.Enable(ctx) }).
		OnExecute(step).
		OnEnd(func(bool) error { return follower.Disable(ctx) }).
		Until(func() bool { return false }).
		Build()
}

// RecordRange relaxes arm and widens rec with every raw reading until
// interrupted.
func RecordRange(ctx context.Context, arm RawJoints, rec *RangeRecorder) *command.Command {
	return command.NewBuilder("Record range "+arm.Name(), arm).
		OnInitialize(func() error { return arm.Disable(ctx) }).
		OnExecute(func() error {
			raw, err := arm.ReadRaw(ctx)
			if err != nil {
				return err
			}
			rec.Observe(raw)
			return nil
		}).
		Until(func() bool { return false }).
		Build()
}
