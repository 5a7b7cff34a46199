package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/gwillem/robocmd/pkg/command"
)

type trace struct {
	calls []string
}

func (tr *trace) add(s string) { tr.calls = append(tr.calls, s) }

// probe finishes on its n-th Execute; n <= 0 never finishes.
func (tr *trace) probe(name string, n int, reqs ...command.Subsystem) *command.Command {
	var ticks int
	return command.NewBuilder(name, reqs...).
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

func diffCalls(t *testing.T, got, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func names(s *Scheduler) []string {
	var out []string
	for _, st := range s.Snapshot() {
		out = append(out, st.Name)
	}
	return out
}

func TestScheduleRunsToCompletion(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	s := New(Config{})
	c := tr.probe("a", 2)
	s.Schedule(c)

	s.Step()
	if !s.IsScheduled(c) {
		t.Fatal("command not running after first cycle")
	}
	s.Step()
	if s.IsScheduled(c) {
		t.Fatal("command still running after finishing")
	}
	diffCalls(t, tr.calls, []string{"a.init", "a.exec", "a.exec", "a.end(false)"})
}

func TestScheduleTwiceIsNoop(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	s := New(Config{})
	c := tr.probe("a", 0)
	s.Schedule(c)
	s.Step()
	s.Schedule(c)
	s.Step()
	diffCalls(t, tr.calls, []string{"a.init", "a.exec", "a.exec"})
}

func TestRequirementInterrupts(t *testing.T) {
	t.Parallel()
	arm := command.NewSubsystem("arm")
	tr := &trace{}
	s := New(Config{})
	first := tr.probe("first", 0, arm)
	second := tr.probe("second", 0, arm)

	s.Schedule(first)
	s.Step()
	s.Schedule(second)
	s.Step()

	diffCalls(t, tr.calls, []string{
		"first.init", "first.exec",
		"first.end(true)",
		"second.init", "second.exec",
	})
	diffCalls(t, names(s), []string{"second"})
}

func TestDisjointRequirementsRunTogether(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	s := New(Config{})
	s.Schedule(tr.probe("a", 0, command.NewSubsystem("arm")), tr.probe("b", 0, command.NewSubsystem("wrist")))
	s.Step()
	diffCalls(t, names(s), []string{"a", "b"})
}

func TestDefaultCommand(t *testing.T) {
	t.Parallel()
	arm := command.NewSubsystem("arm")
	tr := &trace{}
	s := New(Config{})
	idle := tr.probe("idle", 0, arm)
	if err := s.SetDefault(arm, idle); err != nil {
		t.Fatal(err)
	}

	s.Step()
	diffCalls(t, names(s), []string{"idle"})

	s.Schedule(tr.probe("move", 1, arm))
	s.Step() // move starts, runs once and finishes; idle comes back
	diffCalls(t, names(s), []string{"idle"})
	diffCalls(t, tr.calls, []string{
		"idle.init",
		"idle.end(true)",
		"move.init", "move.exec", "move.end(false)",
		"idle.init",
	})
}

func TestSetDefaultValidatesRequirement(t *testing.T) {
	t.Parallel()
	s := New(Config{})
	arm := command.NewSubsystem("arm")
	err := s.SetDefault(arm, command.Run("free", nil))
	if !errors.Is(err, ErrDefaultRequirement) {
		t.Errorf("err = %v, want %v", err, ErrDefaultRequirement)
	}
}

func TestDisabledCancelsActuatorCommands(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	s := New(Config{})
	drive := tr.probe("drive", 0)
	s.Schedule(drive, command.Wait(time.Hour))
	s.Step()

	s.SetEnabled(false)
	s.Step()
	diffCalls(t, names(s), []string{"Wait"})
	if tr.calls[len(tr.calls)-1] != "drive.end(true)" {
		t.Errorf("last call = %s, want drive.end(true)", tr.calls[len(tr.calls)-1])
	}

	s.Schedule(drive)
	s.Step()
	if s.IsScheduled(drive) {
		t.Error("scheduled an actuator command while disabled")
	}
}

func TestHookErrorsInterrupt(t *testing.T) {
	t.Parallel()
	errFault := errors.New("fault")
	var ended []bool
	onEnd := func(interrupted bool) error {
		ended = append(ended, interrupted)
		return nil
	}
	s := New(Config{})
	failInit := command.NewBuilder("init").
		OnInitialize(func() error { return errFault }).
		OnEnd(onEnd).
		Build()
	failExec := command.NewBuilder("exec").
		OnExecute(func() error { return errFault }).
		OnEnd(onEnd).
		Build()

	s.Schedule(failInit, failExec)
	s.Step()

	if len(s.Snapshot()) != 0 {
		t.Errorf("failed commands still running: %v", names(s))
	}
	if diff := cmp.Diff([]bool{true, true}, ended); diff != "" {
		t.Errorf("End flags mismatch (-want +got):\n%s", diff)
	}
}

func TestHooksMayScheduleCommands(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	s := New(Config{})
	next := tr.probe("next", 1)
	first := command.RunOnce("first", func() error {
		s.Schedule(next)
		return nil
	})
	s.Schedule(first)
	s.Step()
	s.Step()
	diffCalls(t, tr.calls, []string{"next.init", "next.exec", "next.end(false)"})
}

func TestTriggers(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	s := New(Config{})
	pressed := false
	button := func() bool { return pressed }
	tap := tr.probe("tap", 1)
	hold := tr.probe("hold", 0)
	release := tr.probe("release", 1)
	s.OnTrue(button, tap)
	s.WhileTrue(button, hold)
	s.OnFalse(button, release)

	s.Step()
	if len(tr.calls) != 0 {
		t.Fatalf("triggers fired without an edge: %v", tr.calls)
	}

	pressed = true
	s.Step()
	diffCalls(t, names(s), []string{"hold"})

	pressed = false
	s.Step()
	diffCalls(t, tr.calls, []string{
		"tap.init", "hold.init", "tap.exec", "tap.end(false)", "hold.exec",
		"hold.end(true)", "release.init", "release.exec", "release.end(false)",
	})
}

func TestCancelAndCancelAll(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	s := New(Config{})
	a, b, c := tr.probe("a", 0), tr.probe("b", 0), tr.probe("c", 0)
	s.Schedule(a, b, c)
	s.Step()

	s.Cancel(b)
	s.Step()
	diffCalls(t, names(s), []string{"a", "c"})

	s.CancelAll()
	s.Step()
	if len(s.Snapshot()) != 0 {
		t.Errorf("still running: %v", names(s))
	}
}

func TestSnapshotCycles(t *testing.T) {
	t.Parallel()
	clk := clocktesting.NewFakeClock(time.Unix(50, 0))
	s := New(Config{Clock: clk})
	s.Schedule(command.Run("loop", nil))
	for range 3 {
		s.Step()
	}
	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot() has %d entries, want 1", len(snap))
	}
	if snap[0].Cycles != 3 {
		t.Errorf("Cycles = %d, want 3", snap[0].Cycles)
	}
	if !snap[0].StartedAt.Equal(time.Unix(50, 0)) {
		t.Errorf("StartedAt = %v, want %v", snap[0].StartedAt, time.Unix(50, 0))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	s := New(Config{Hz: 200})
	if s.Period() != 5*time.Millisecond {
		t.Fatalf("Period() = %v, want 5ms", s.Period())
	}

	started := make(chan struct{})
	var interrupted bool
	forever := command.NewBuilder("forever").
		OnInitialize(func() error {
			close(started)
			return nil
		}).
		OnEnd(func(i bool) error {
			interrupted = i
			return nil
		}).
		Until(func() bool { return false }).
		Build()
	s.Schedule(forever)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("command never started")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want %v", err, context.Canceled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !interrupted {
		t.Error("running command was not interrupted on shutdown")
	}
	if len(s.Snapshot()) != 0 {
		t.Errorf("still running after Run returned: %v", names(s))
	}
}
