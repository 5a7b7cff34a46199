package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gwillem/robocmd/pkg/command"
	"github.com/gwillem/robocmd/pkg/robot"
	"github.com/gwillem/robocmd/pkg/teleop"
)

type DemoCommand struct {
	Hz      int     `long:"hz" default:"50" description:"Control loop frequency"`
	Routine string  `long:"routine" default:"wave" choice:"wave" choice:"nod" choice:"reach" description:"Routine the simulated hand performs"`
	Mirror  bool    `long:"mirror" description:"Mirror mode: invert shoulder_pan and wrist_roll positions"`
	Slew    float64 `long:"slew" default:"4" description:"Follower speed in normalized units per cycle"`
}

var (
	homePose  = robot.Positions{robot.ShoulderPan: 0, robot.ShoulderLift: 0, robot.ElbowFlex: 0, robot.WristFlex: 0, robot.WristRoll: 0, robot.Gripper: 0}
	waveLeft  = robot.Positions{robot.ShoulderPan: -40, robot.ElbowFlex: 30, robot.WristRoll: -60}
	waveRight = robot.Positions{robot.ShoulderPan: 40, robot.ElbowFlex: 30, robot.WristRoll: 60}
	nodDown   = robot.Positions{robot.ShoulderLift: 20, robot.WristFlex: -70}
	nodUp     = robot.Positions{robot.ShoulderLift: 20, robot.WristFlex: 50}
	reachOut  = robot.Positions{robot.ShoulderLift: 70, robot.ElbowFlex: -60, robot.Gripper: 90}
)

// glide moves a relaxed arm by hand from wherever it is to pose over d.
func glide(arm *robot.SimArm, hand command.Subsystem, pose robot.Positions, d time.Duration) *command.Command {
	var from robot.Positions
	var start time.Time
	var done bool
	return command.NewBuilder("Glide", hand).
		OnInitialize(func() error {
			p, err := arm.ReadPositions(context.Background())
			from, start, done = p, time.Now(), false
			return err
		}).
		OnExecute(func() error {
			f := min(1, float64(time.Since(start))/float64(d))
			p := make(robot.Positions, len(pose))
			for name, v := range pose {
				p[name] = from[name] + (v-from[name])*f
			}
			arm.Place(p)
			done = f >= 1
			return nil
		}).
		Until(func() bool { return done }).
		Build()
}

func routines(arm *robot.SimArm, hand command.Subsystem) map[string]*command.Command {
	wave := command.Must(command.Repeat("Wave", 3, func() *command.Command {
		return command.Must(command.Sequence("Wave once",
			glide(arm, hand, waveLeft, 600*time.Millisecond),
			glide(arm, hand, waveRight, 600*time.Millisecond),
		))
	}))
	nod := command.Must(command.Repeat("Nod", 4, func() *command.Command {
		return command.Must(command.Sequence("Nod once",
			glide(arm, hand, nodDown, 300*time.Millisecond),
			glide(arm, hand, nodUp, 300*time.Millisecond),
		))
	}))
	// Reaching is cut short if it takes longer than the pause.
	reach := command.Must(command.Race("Reach",
		glide(arm, hand, reachOut, 2*time.Second),
		command.Wait(1500*time.Millisecond),
	))
	return map[string]*command.Command{"wave": wave, "nod": nod, "reach": reach}
}

func logOnce(log *slog.Logger, msg string, args ...any) *command.Command {
	return command.RunWhenDisabled(command.RunOnce(msg, func() error {
		log.Info(msg, args...)
		return nil
	}))
}

func (c *DemoCommand) Execute(args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := newLogSink()
	log := newLogger(sink, logLevel())

	leader := robot.NewSimArm("leader", 0)
	follower := robot.NewSimArm("follower", c.Slew)
	ctrl, err := teleop.NewController(teleop.Config{
		Leader:   leader,
		Follower: follower,
		Hz:       c.Hz,
		Mirror:   c.Mirror,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	sched := ctrl.Scheduler()
	hand := command.NewSubsystem("hand")

	var routine atomic.Value
	routine.Store(c.Routine)
	pick, err := command.Select("Routine", routines(leader, hand), func() string { return routine.Load().(string) })
	if err != nil {
		return err
	}
	performance := command.RepeatWhile("Demo",
		command.Must(command.Sequence("Perform",
			pick,
			glide(leader, hand, homePose, time.Second),
			command.Wait(time.Second),
		)),
		func() bool { return true },
	)

	// The hand keeps moving the leader while the robot is disabled.
	if err := sched.SetDefault(hand, command.RunWhenDisabled(performance)); err != nil {
		return err
	}
	if err := sched.SetDefault(follower, ctrl.Command(ctx)); err != nil {
		return err
	}

	gripperOpen := func() bool {
		p, err := leader.ReadPositions(ctx)
		return err == nil && p[robot.Gripper] > 80
	}
	sched.OnTrue(gripperOpen, logOnce(log, "gripper open"))
	sched.OnFalse(gripperOpen, logOnce(log, "gripper closed"))

	home := command.Must(command.DoIfTimedOut("Home",
		robot.MoveTo(ctx, follower, homePose, robot.DefaultTolerance),
		3*time.Second,
		logOnce(log, "follower did not reach home"),
		logOnce(log, "follower home"),
	))
	homeUnlessGripping := command.Must(command.Conditional("Home unless gripping",
		command.Negate(gripperOpen),
		home,
		logOnce(log, "gripper open, not homing"),
	))

	enabled := true
	dash := newDashboard("LeRobot Demo", sched, ctrl.States(), sink.Lines())
	dash.help = "1 wave  2 nod  3 reach  h home  space enable/disable  q quit"
	for key, name := range map[string]string{"1": "wave", "2": "nod", "3": "reach"} {
		dash.keys[key] = func() {
			routine.Store(name)
			log.Info("next routine", "routine", name)
		}
	}
	dash.keys["h"] = func() { sched.Schedule(homeUnlessGripping) }
	dash.keys[" "] = func() {
		enabled = !enabled
		sched.SetEnabled(enabled)
	}

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	_, runErr := tea.NewProgram(dash, tea.WithAltScreen()).Run()
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler: %w", err)
	}
	return runErr
}
