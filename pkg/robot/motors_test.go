package robot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPositionsWithin(t *testing.T) {
	t.Parallel()
	p := Positions{ShoulderPan: 10, Gripper: -4}

	tests := []struct {
		name   string
		target Positions
		tol    float64
		want   bool
	}{
		{"exact", Positions{ShoulderPan: 10}, 0, true},
		{"inside", Positions{ShoulderPan: 12, Gripper: -5}, 2, true},
		{"outside", Positions{ShoulderPan: 13}, 2, false},
		{"missing motor", Positions{ElbowFlex: 0}, 100, false},
		{"empty target", Positions{}, 0, true},
	}
	for _, tt := range tests {
		if got := p.Within(tt.target, tt.tol); got != tt.want {
			t.Errorf("%s: Within() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPositionsMirrored(t *testing.T) {
	t.Parallel()
	p := Positions{ShoulderPan: 30, ShoulderLift: 20, WristRoll: -15}
	want := Positions{ShoulderPan: -30, ShoulderLift: 20, WristRoll: 15}
	if diff := cmp.Diff(want, p.Mirrored()); diff != "" {
		t.Errorf("Mirrored() mismatch (-want +got):\n%s", diff)
	}
	if p[ShoulderPan] != 30 {
		t.Error("Mirrored() modified its receiver")
	}
}
