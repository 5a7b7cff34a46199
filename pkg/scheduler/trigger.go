package scheduler

import (
	"github.com/gwillem/robocmd/pkg/command"
)

type edge int

const (
	onTrue edge = iota
	onFalse
	whileTrue
)

type trigger struct {
	cond command.Predicate
	cmd  *command.Command
	kind edge
	last bool
}

// OnTrue schedules cmd each time cond changes from false to true.
func (s *Scheduler) OnTrue(cond command.Predicate, cmd *command.Command) {
	s.bind(cond, cmd, onTrue)
}

// OnFalse schedules cmd each time cond changes from true to false.
func (s *Scheduler) OnFalse(cond command.Predicate, cmd *command.Command) {
	s.bind(cond, cmd, onFalse)
}

// WhileTrue schedules cmd when cond becomes true and cancels it when cond
// becomes false.
func (s *Scheduler) WhileTrue(cond command.Predicate, cmd *command.Command) {
	s.bind(cond, cmd, whileTrue)
}

// bind samples cond once when the binding takes effect, so a condition that
// is already true does not fire.
func (s *Scheduler) bind(cond command.Predicate, cmd *command.Command, kind edge) {
	s.enqueue(func() {
		s.triggers = append(s.triggers, &trigger{
			cond: cond,
			cmd:  cmd,
			kind: kind,
			last: cond(),
		})
	})
}

func (s *Scheduler) pollTriggers() {
	for _, t := range s.triggers {
		now := t.cond()
		rising := now && !t.last
		falling := !now && t.last
		t.last = now

		switch {
		case t.kind == onTrue && rising, t.kind == onFalse && falling, t.kind == whileTrue && rising:
			s.schedule(t.cmd)
		case t.kind == whileTrue && falling:
			if e := s.find(t.cmd); e != nil {
				s.finish(e, true)
			}
		}
	}
}
