// Package teleop provides teleoperation control for robot arms.
package teleop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/gwillem/robocmd/pkg/command"
	"github.com/gwillem/robocmd/pkg/robot"
	"github.com/gwillem/robocmd/pkg/scheduler"
)

// StatsInterval is how often the controller logs loop statistics.
const StatsInterval = 5 * time.Second

// State represents the current state of teleoperation.
type State struct {
	Positions robot.Positions
	Timestamp time.Time
	Error     error
}

// Controller runs a leader/follower pair as a single command group: the
// follower copies the leader, the leader is relaxed once at start, and loop
// statistics are logged periodically.
type Controller struct {
	leader   robot.Joints
	follower robot.Joints
	sched    *scheduler.Scheduler
	clock    clock.WithTicker
	log      *slog.Logger
	mirror   bool

	mu      sync.Mutex
	running bool
	steps   int
	errors  int
	stateCh chan State
}

// Config holds configuration for the controller.
type Config struct {
	Leader   robot.Joints
	Follower robot.Joints
	Hz       int
	Mirror   bool // Invert positions for shoulder_pan (servo 1) and wrist_roll (servo 5)
	Logger   *slog.Logger
	Clock    clock.WithTicker
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Leader == nil || cfg.Follower == nil {
		return nil, errors.New("leader and follower are required")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = robot.DefaultHz
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}

	return &Controller{
		leader:   cfg.Leader,
		follower: cfg.Follower,
		sched: scheduler.New(scheduler.Config{
			Hz:     cfg.Hz,
			Logger: cfg.Logger,
			Clock:  cfg.Clock,
		}),
		clock:   cfg.Clock,
		log:     cfg.Logger,
		mirror:  cfg.Mirror,
		stateCh: make(chan State, 1),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Scheduler returns the scheduler the controller runs on.
func (c *Controller) Scheduler() *scheduler.Scheduler {
	return c.sched
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.sched.Hz()
}

// Command builds the teleoperation group. It runs until interrupted.
func (c *Controller) Command(ctx context.Context) *command.Command {
	follow := robot.Follow(ctx, c.leader, c.follower, robot.FollowOptions{
		Mirror: c.mirror,
		OnStep: c.observe,
	})
	stats := command.Every(StatsInterval, c.logStats,
		command.Named("Stats"), command.WithClock(c.clock))

	return command.Must(command.Deadline("Teleoperate",
		follow,
		robot.Relax(ctx, c.leader),
		stats,
	))
}

// Start schedules the teleoperation group and runs the control loop until
// ctx is done. The follower is relaxed on the way out.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("already running")
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.log.Info("teleoperation started", "leader", c.leader.Name(), "follower", c.follower.Name(),
		"hz", c.Hz(), "mirror", c.mirror)
	c.sched.Schedule(c.Command(ctx))
	err := c.sched.Run(ctx)
	c.log.Info("teleoperation stopped")
	return err
}

func (c *Controller) observe(p robot.Positions, err error) {
	c.mu.Lock()
	c.steps++
	if err != nil {
		c.errors++
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("follow step failed", "err", err)
	}
	c.sendState(State{Positions: p, Timestamp: c.clock.Now(), Error: err})
}

func (c *Controller) logStats() error {
	c.mu.Lock()
	steps, errs := c.steps, c.errors
	c.steps, c.errors = 0, 0
	c.mu.Unlock()
	c.log.Info("teleoperation stats", "steps", steps, "errors", errs)
	return nil
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}
