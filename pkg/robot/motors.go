// Package robot provides SO-101 arm bindings and the commands that drive them.
package robot

import (
	"maps"
	"math"
)

// MotorName identifies a motor in the arm.
type MotorName string

// Motor names for the SO-101 arm.
const (
	ShoulderPan  MotorName = "shoulder_pan"
	ShoulderLift MotorName = "shoulder_lift"
	ElbowFlex    MotorName = "elbow_flex"
	WristFlex    MotorName = "wrist_flex"
	WristRoll    MotorName = "wrist_roll"
	Gripper      MotorName = "gripper"
)

// AllMotors returns all motor names in order (matching servo IDs 1-6).
func AllMotors() []MotorName {
	return []MotorName{
		ShoulderPan,
		ShoulderLift,
		ElbowFlex,
		WristFlex,
		WristRoll,
		Gripper,
	}
}

// Positions maps motors to normalized positions in the range [-100, 100].
type Positions map[MotorName]float64

// Within reports whether every motor in target is within tolerance of p.
// Motors missing from p count as out of range.
func (p Positions) Within(target Positions, tolerance float64) bool {
	for name, want := range target {
		got, ok := p[name]
		if !ok || math.Abs(got-want) > tolerance {
			return false
		}
	}
	return true
}

// Mirrored returns a copy with shoulder_pan and wrist_roll inverted, for a
// follower facing the leader.
func (p Positions) Mirrored() Positions {
	out := maps.Clone(p)
	for _, name := range []MotorName{ShoulderPan, WristRoll} {
		if v, ok := out[name]; ok {
			out[name] = -v
		}
	}
	return out
}
