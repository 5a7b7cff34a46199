package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gwillem/robocmd/pkg/robot"
	"github.com/gwillem/robocmd/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz     int  `long:"hz" description:"Control loop frequency (default from config)"`
	Mirror bool `long:"mirror" description:"Mirror mode: invert shoulder_pan and wrist_roll positions"`
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "No configuration found. Run 'lerobot setup' first.")
		os.Exit(1)
	}
	if cfg.Leader.Port == "" || cfg.Follower.Port == "" {
		fmt.Fprintln(os.Stderr, "Arms not configured. Run 'lerobot setup' first.")
		os.Exit(1)
	}
	if !cfg.Leader.IsCalibrated() || !cfg.Follower.IsCalibrated() {
		fmt.Fprintln(os.Stderr, "Arms not calibrated. Run 'lerobot setup' first.")
		os.Exit(1)
	}
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}

	leader, err := robot.NewArm("leader", cfg.Leader.Port, cfg.Leader.Calibration)
	if err != nil {
		return fmt.Errorf("connect leader: %w", err)
	}
	defer leader.Close()

	follower, err := robot.NewArm("follower", cfg.Follower.Port, cfg.Follower.Calibration)
	if err != nil {
		return fmt.Errorf("connect follower: %w", err)
	}
	defer follower.Close()

	sink := newLogSink()
	log := newLogger(sink, logLevel())

	ctrl, err := teleop.NewController(teleop.Config{
		Leader:   leader,
		Follower: follower,
		Hz:       cfg.Hz,
		Mirror:   c.Mirror || cfg.Mirror,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Start(ctx) }()

	dash := newDashboard("LeRobot Teleoperate", ctrl.Scheduler(), ctrl.States(), sink.Lines())
	_, runErr := tea.NewProgram(dash, tea.WithAltScreen()).Run()

	// The follower is relaxed before the buses close.
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("controller: %w", err)
	}
	return runErr
}
