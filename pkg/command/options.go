package command

import (
	"k8s.io/utils/clock"
)

// Option configures the timed and wrapper constructors.
type Option func(*options)

type options struct {
	name         string
	requirements []Subsystem
	clock        clock.PassiveClock
	until        Predicate
}

func newOptions(name string, opts []Option) options {
	o := options{
		name:  name,
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Named sets the display name.
func Named(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// Requiring adds subsystem requirements.
func Requiring(reqs ...Subsystem) Option {
	return func(o *options) { o.requirements = append(o.requirements, reqs...) }
}

// WithClock sets the time source. The default is the system clock.
func WithClock(c clock.PassiveClock) Option {
	return func(o *options) { o.clock = c }
}

// WithUntil gives a command that would otherwise never finish a termination
// condition.
func WithUntil(p Predicate) Option {
	return func(o *options) { o.until = p }
}
