package command

import (
	"errors"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"
)

func TestWithTimeout(t *testing.T) {
	t.Parallel()
	clk := clocktesting.NewFakeClock(time.Unix(0, 0))
	tr := &trace{}
	c := WithTimeout(tr.probe("slow", 0), time.Second, WithClock(clk))
	if c.Name() != "slow" {
		t.Errorf("Name() = %q, want slow", c.Name())
	}

	if err := c.Initialize(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		clk.Step(400 * time.Millisecond)
		if err := c.Execute(); err != nil {
			t.Fatal(err)
		}
	}
	if !c.IsFinished() {
		t.Fatal("not finished after timeout")
	}
	diffCalls(t, tr.calls[len(tr.calls)-1:], []string{"slow.end(true)"})
}

func TestFinallyDo(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	c := FinallyDo(tr.probe("a", 1), func(interrupted bool) error {
		tr.add("finally")
		return nil
	})
	drive(t, c, 5)
	diffCalls(t, tr.calls, []string{"a.init", "a.exec", "a.end(false)", "finally"})
}

func TestRepeat(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	c := Must(Repeat("thrice", 3, func() *Command { return tr.probe("step", 2) }))
	if cycle := drive(t, c, 20); cycle != 6 {
		t.Errorf("finished on cycle %d, want 6", cycle)
	}
	var inits int
	for _, call := range tr.calls {
		if call == "step.init" {
			inits++
		}
	}
	if inits != 3 {
		t.Errorf("started %d times, want 3", inits)
	}

	if _, err := Repeat("never", 0, func() *Command { return None() }); !errors.Is(err, ErrEmptyGroup) {
		t.Errorf("Repeat(0) err = %v, want %v", err, ErrEmptyGroup)
	}
}

func TestRepeatWhile(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	rounds := 0
	c := RepeatWhile("", tr.probe("lap", 1), func() bool {
		rounds++
		return rounds < 3
	})
	if cycle := drive(t, c, 20); cycle != 3 {
		t.Errorf("finished on cycle %d, want 3", cycle)
	}
	diffCalls(t, tr.calls, []string{
		"lap.init", "lap.exec", "lap.end(false)",
		"lap.init", "lap.exec", "lap.end(false)",
		"lap.init", "lap.exec", "lap.end(false)",
	})
}

func TestRepeatWhileInterrupted(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	c := RepeatWhile("forever", tr.probe("lap", 0), func() bool { return true })
	drive(t, c, 2)
	tr.reset()
	if err := c.End(true); err != nil {
		t.Fatal(err)
	}
	diffCalls(t, tr.calls, []string{"lap.end(true)"})
}

func TestDoIfTimedOut(t *testing.T) {
	t.Parallel()
	clk := clocktesting.NewFakeClock(time.Unix(0, 0))
	tr := &trace{}

	tests := []struct {
		name  string
		ticks int
		want  string
	}{
		{"finishes in time", 1, "finished.init"},
		{"times out", 0, "timedout.init"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr.reset()
			c := Must(DoIfTimedOut("guarded", tr.probe("work", tt.ticks), time.Second,
				tr.probe("timedout", 1), tr.probe("finished", 1), WithClock(clk)))

			if err := c.Initialize(); err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 10 && !c.IsFinished(); i++ {
				clk.Step(600 * time.Millisecond)
				if err := c.Execute(); err != nil {
					t.Fatal(err)
				}
			}
			if !c.IsFinished() {
				t.Fatal("did not finish")
			}
			found := false
			for _, call := range tr.calls {
				if call == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("calls %v missing %s", tr.calls, tt.want)
			}
		})
	}
}

func TestDoIfInterruptedFollowsInnerFlag(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	// The race interrupts "work" from inside the tree when "stop" wins.
	inner := Must(DoIfInterrupted("", tr.probe("work", 0), tr.probe("cleanup", 1), tr.probe("done", 1)))
	c := Must(Race("outer", inner, tr.probe("stop", 1)))
	drive(t, c, 5)
	for _, call := range tr.calls {
		if call == "cleanup.init" || call == "done.init" {
			t.Errorf("branch ran although the whole group was interrupted: %v", tr.calls)
		}
	}

	if _, err := DoIfInterrupted("", nil, None(), None()); !errors.Is(err, ErrNilCommand) {
		t.Errorf("err = %v, want %v", err, ErrNilCommand)
	}
}
