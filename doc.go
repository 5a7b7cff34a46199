// Package robocmd is a command-based control framework for robots, with
// bindings for SO-101 arms.
//
// Robot behavior is written as commands: small units of work with an
// Initialize/Execute/IsFinished/End lifecycle that declare the subsystems
// they drive. Commands compose into sequences, parallel groups, races and
// deadlines, and are run by a scheduler once per control cycle.
//
// # Installation
//
//	go install github.com/gwillem/robocmd/cmd/lerobot@latest
//
// # Usage
//
// Detect and calibrate your robot arms, then start teleoperation:
//
//	lerobot setup
//	lerobot teleoperate
//
// Without hardware, watch simulated arms run a scripted routine:
//
//	lerobot demo --routine wave
//
// # Packages
//
//   - pkg/command: Command type, builder, groups, selection and decorators
//   - pkg/scheduler: Control loop, requirements, default commands and triggers
//   - pkg/robot: Arm control, simulation, calibration, configuration and arm commands
//   - pkg/teleop: Leader-follower controller built from commands
//   - cmd/lerobot: CLI with setup, teleoperate and demo commands
package robocmd
