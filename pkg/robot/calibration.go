package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

// RawRange is the span of raw servo steps.
const RawRange = 4096

// MotorCalibration holds calibration data for a single motor.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// DefaultCalibration maps motors to servo IDs 1-6 over the full raw range.
// It is what an arm uses before it has been calibrated.
func DefaultCalibration() Calibration {
	cal := make(Calibration, 6)
	for i, name := range AllMotors() {
		cal[name] = MotorCalibration{ID: i + 1, RangeMin: 0, RangeMax: RawRange - 1}
	}
	return cal
}

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}
	return cal, nil
}

// Normalize converts a raw servo position to a normalized value, clamped to
// [-100, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return Clamp((float64(raw-c.RangeMin)/rangeSize)*200 - 100)
}

// Denormalize converts a normalized value to a raw servo position. Values
// outside [-100, 100] are clamped first, so the servo never leaves its range.
func (c MotorCalibration) Denormalize(norm float64) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((Clamp(norm)+100)/200*rangeSize) + c.RangeMin
}

// Clamp limits a normalized position to [-100, 100].
func Clamp(norm float64) float64 {
	return max(-100, min(100, norm))
}

// MotorIDs returns the servo IDs for all motors in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// AllMotors gives a stable order
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}

// RangeRecorder tracks the raw extremes each motor reaches while a user moves
// the arm through its range.
type RangeRecorder struct {
	Last map[MotorName]int
	Min  map[MotorName]int
	Max  map[MotorName]int
}

// NewRangeRecorder returns an empty recorder.
func NewRangeRecorder() *RangeRecorder {
	return &RangeRecorder{
		Last: make(map[MotorName]int),
		Min:  make(map[MotorName]int),
		Max:  make(map[MotorName]int),
	}
}

// Observe widens the recorded ranges to include raw.
func (r *RangeRecorder) Observe(raw map[MotorName]int) {
	for name, v := range raw {
		r.Last[name] = v
		if lo, ok := r.Min[name]; !ok || v < lo {
			r.Min[name] = v
		}
		if hi, ok := r.Max[name]; !ok || v > hi {
			r.Max[name] = v
		}
	}
}

// Calibration returns a calibration with the recorded ranges and the servo
// IDs from ids. Motors that were never observed are left out.
func (r *RangeRecorder) Calibration(ids Calibration) Calibration {
	cal := make(Calibration, len(r.Min))
	for name, lo := range r.Min {
		mc := ids[name]
		mc.RangeMin = lo
		mc.RangeMax = r.Max[name]
		cal[name] = mc
	}
	return cal
}
