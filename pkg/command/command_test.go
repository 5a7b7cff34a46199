package command

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type trace struct {
	calls []string
}

func (tr *trace) add(s string) { tr.calls = append(tr.calls, s) }

func (tr *trace) reset() { tr.calls = nil }

// probe returns a command that records its hooks and finishes on its n-th
// Execute since start. n <= 0 never finishes.
func (tr *trace) probe(name string, n int, reqs ...Subsystem) *Command {
	var ticks int
	return NewBuilder(name, reqs...).
		OnInitialize(func() error {
			ticks = 0
			tr.add(name + ".init")
			return nil
		}).
		OnExecute(func() error {
			ticks++
			tr.add(name + ".exec")
			return nil
		}).
		OnEnd(func(interrupted bool) error {
			tr.add(fmt.Sprintf("%s.end(%t)", name, interrupted))
			return nil
		}).
		Until(func() bool { return n > 0 && ticks >= n }).
		Build()
}

// drive runs c the way a scheduler does for at most limit cycles and returns
// the cycle it finished on, or 0.
func drive(t *testing.T, c *Command, limit int) int {
	t.Helper()
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	for cycle := 1; cycle <= limit; cycle++ {
		if err := c.Execute(); err != nil {
			t.Fatalf("Execute (cycle %d): %v", cycle, err)
		}
		if c.IsFinished() {
			if err := c.End(false); err != nil {
				t.Fatalf("End: %v", err)
			}
			return cycle
		}
	}
	return 0
}

func diffCalls(t *testing.T, got, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSubsystemDistinct(t *testing.T) {
	t.Parallel()
	a := NewSubsystem("arm")
	b := NewSubsystem("arm")
	if a == b {
		t.Fatal("subsystems with the same name should be distinct tokens")
	}
	if a.Name() != "arm" {
		t.Errorf("Name() = %q, want arm", a.Name())
	}
}

func TestCommandWithName(t *testing.T) {
	t.Parallel()
	arm := NewSubsystem("arm")
	c := RunOnce("original", nil, arm)
	renamed := c.WithName("renamed")
	if c.Name() != "original" {
		t.Errorf("original renamed to %q", c.Name())
	}
	if renamed.Name() != "renamed" {
		t.Errorf("Name() = %q, want renamed", renamed.Name())
	}
	if !renamed.HasRequirement(arm) {
		t.Error("renamed command lost its requirement")
	}
}

func TestRunWhenDisabled(t *testing.T) {
	t.Parallel()
	c := RunOnce("x", nil)
	if c.RunsWhenDisabled() {
		t.Fatal("RunOnce should not run when disabled by default")
	}
	if !RunWhenDisabled(c).RunsWhenDisabled() {
		t.Error("RunWhenDisabled copy should run when disabled")
	}
	if c.RunsWhenDisabled() {
		t.Error("RunWhenDisabled modified the original")
	}
}
