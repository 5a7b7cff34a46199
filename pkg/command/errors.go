package command

import (
	"errors"
	"fmt"
)

var (
	// ErrConflictingRequirements is returned when commands that would run at
	// the same time share a subsystem.
	ErrConflictingRequirements = errors.New("conflicting requirements")
	// ErrDuplicateCommand is returned when the same command appears twice in a
	// group whose children run at the same time.
	ErrDuplicateCommand = errors.New("command used twice in group")
	ErrEmptyGroup       = errors.New("group has no commands")
	ErrNilCommand       = errors.New("nil command")
	// ErrUnknownSelection is returned from Initialize when a selector picks a
	// command that does not exist.
	ErrUnknownSelection = errors.New("unknown selection")
)

// Must panics if err is non-nil. It is meant for command trees built once at
// startup, where a usage error is a programming mistake.
func Must(c *Command, err error) *Command {
	if err != nil {
		panic(err)
	}
	return c
}

func wrapChild(c *Command, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", c.Name(), err)
}
