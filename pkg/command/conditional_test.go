package command

import (
	"errors"
	"slices"
	"testing"
)

func TestConditionalEvaluatedAtStart(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	cond := true
	c := Must(Conditional("pick", func() bool { return cond }, tr.probe("yes", 2), tr.probe("no", 2)))

	if err := c.Initialize(); err != nil {
		t.Fatal(err)
	}
	cond = false
	for !c.IsFinished() {
		if err := c.Execute(); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.End(false); err != nil {
		t.Fatal(err)
	}
	diffCalls(t, tr.calls, []string{"yes.init", "yes.exec", "yes.exec", "yes.end(false)"})

	tr.reset()
	drive(t, c, 5)
	if slices.Contains(tr.calls, "yes.init") {
		t.Error("second run should pick the false branch")
	}
}

func TestConditionalRequirements(t *testing.T) {
	t.Parallel()
	arm, wrist := NewSubsystem("arm"), NewSubsystem("wrist")
	tr := &trace{}
	c := Must(Conditional("pick", func() bool { return true }, tr.probe("a", 1, arm), tr.probe("b", 1, arm, wrist)))
	if got := c.Requirements(); !slices.Equal(got, []Subsystem{arm, wrist}) {
		t.Errorf("Requirements() = %v, want [arm wrist]", got)
	}
}

func TestRunIf(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	allowed := false
	c := Must(RunIf(func() bool { return allowed }, tr.probe("act", 3)))

	if cycle := drive(t, c, 10); cycle != 1 {
		t.Errorf("skipped run finished on cycle %d, want 1", cycle)
	}
	if len(tr.calls) != 0 {
		t.Errorf("skipped run produced calls %v", tr.calls)
	}

	allowed = true
	if cycle := drive(t, c, 10); cycle != 3 {
		t.Errorf("allowed run finished on cycle %d, want 3", cycle)
	}
}

func TestSelectByKey(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	key := "y"
	c := Must(Select("mode", map[string]*Command{
		"x": tr.probe("x", 1),
		"y": tr.probe("y", 1),
	}, func() string { return key }))

	drive(t, c, 5)
	diffCalls(t, tr.calls, []string{"y.init", "y.exec", "y.end(false)"})
}

func TestSelectUnknownKey(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	c := Must(Select("mode", map[string]*Command{
		"x": tr.probe("x", 1),
		"y": tr.probe("y", 1),
	}, func() string { return "z" }))

	err := c.Initialize()
	if !errors.Is(err, ErrUnknownSelection) {
		t.Fatalf("Initialize() = %v, want %v", err, ErrUnknownSelection)
	}
	if err := c.End(true); err != nil {
		t.Fatalf("End after failed selection: %v", err)
	}
	if len(tr.calls) != 0 {
		t.Errorf("children received calls %v", tr.calls)
	}
}

func TestSelectNilCommand(t *testing.T) {
	t.Parallel()
	_, err := Select("mode", map[int]*Command{1: nil}, func() int { return 1 })
	if !errors.Is(err, ErrNilCommand) {
		t.Errorf("err = %v, want %v", err, ErrNilCommand)
	}
}

func TestSelectFuncFreshCommandPerRun(t *testing.T) {
	t.Parallel()
	tr := &trace{}
	var built int
	c := SelectFunc("fresh", func() *Command {
		built++
		return tr.probe("gen", built)
	})

	if cycle := drive(t, c, 10); cycle != 1 {
		t.Errorf("first run finished on cycle %d, want 1", cycle)
	}
	if cycle := drive(t, c, 10); cycle != 2 {
		t.Errorf("second run finished on cycle %d, want 2", cycle)
	}
	if built != 2 {
		t.Errorf("factory called %d times, want 2", built)
	}
}

func TestSelectFuncNil(t *testing.T) {
	t.Parallel()
	c := SelectFunc("nothing", func() *Command { return nil })
	if err := c.Initialize(); !errors.Is(err, ErrUnknownSelection) {
		t.Errorf("Initialize() = %v, want %v", err, ErrUnknownSelection)
	}
}
