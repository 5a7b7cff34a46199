package main

import (
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show debug logging (repeat for source locations)"`

	Setup       SetupCommand       `command:"setup" description:"Scan for arms and calibrate them"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Start teleoperation (leader-follower control)"`
	Demo        DemoCommand        `command:"demo" description:"Run a scripted routine on simulated arms"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "LeRobot - Robot arm control CLI for SO-101 arms"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	if len(opts.Verbose) > 0 {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
