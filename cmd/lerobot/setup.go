package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/robocmd/pkg/command"
	"github.com/gwillem/robocmd/pkg/robot"
	"github.com/gwillem/robocmd/pkg/scheduler"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// minGoodRange is the raw span below which a joint is shown as not yet
// explored.
const minGoodRange = 500

type SetupCommand struct {
	Hz int `long:"hz" default:"20" description:"Sampling frequency while recording ranges"`
}

func (c *SetupCommand) Execute(args []string) error {
	log := newLogger(os.Stderr, logLevel())

	fmt.Println(headerStyle.Render("LeRobot Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	config, err := scanForArms()
	if err != nil {
		return err
	}

	for _, role := range []string{"leader", "follower"} {
		arm := &config.Leader
		if role == "follower" {
			arm = &config.Follower
		}
		fmt.Println()
		fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ Calibrating %s arm ━━━", role)))
		fmt.Println()

		cal, err := calibrateArm(role, arm.Port, c.Hz)
		if err != nil {
			return fmt.Errorf("calibrate %s: %w", role, err)
		}
		arm.Calibration = cal
		if err := config.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		log.Info("arm calibrated", "role", role, "port", arm.Port, "motors", len(cal))
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", robot.DefaultConfigFile)
	fmt.Println()
	fmt.Println("Start teleoperation with: " + headerStyle.Render("lerobot teleoperate"))
	return nil
}

func scanForArms() (*robot.Config, error) {
	fmt.Println("Scanning for robot arms...")
	fmt.Println()

	arms := findArms()
	if len(arms) == 0 {
		return nil, errors.New("no SO-101 arms found; make sure they are connected and powered on")
	}
	fmt.Printf("Found %d arm(s). Let's identify them...\n\n", len(arms))

	var leaderPort, followerPort string
	for _, arm := range arms {
		if leaderPort != "" && followerPort != "" {
			arm.bus.Close()
			continue
		}
		role, err := identifyArm(arm, leaderPort == "", followerPort == "")
		if err != nil {
			return nil, err
		}
		switch role {
		case "leader":
			leaderPort = arm.port
		case "follower":
			followerPort = arm.port
		}
	}

	if leaderPort == "" || followerPort == "" {
		return nil, errors.New("both leader and follower are required for teleoperation")
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Arms identified:"))
	fmt.Printf("  Leader:   %s\n", leaderPort)
	fmt.Printf("  Follower: %s\n", followerPort)

	cfg := &robot.Config{
		Leader:   robot.ArmConfig{Port: leaderPort},
		Follower: robot.ArmConfig{Port: followerPort},
	}
	if existing, err := robot.LoadConfig(); err == nil {
		cfg.Hz, cfg.Mirror, cfg.Tolerance = existing.Hz, existing.Mirror, existing.Tolerance
	}
	return cfg, nil
}

type armInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func findArms() []armInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var arms []armInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: 1_000_000,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, 1, 6)
		cancel()
		if err != nil || !isSOArm(servos) {
			bus.Close()
			continue
		}

		fmt.Printf("  Found SO-101 arm on %s\n", port)
		arms = append(arms, armInfo{port: port, servos: servos, bus: bus})
	}
	return arms
}

func isSOArm(servos []feetech.FoundServo) bool {
	if len(servos) != 6 {
		return false
	}
	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for i := 1; i <= 6; i++ {
		if !ids[i] {
			return false
		}
	}
	return true
}

// wiggle swings shoulder_pan out and back with torque on, then relaxes it.
func wiggle(ctx context.Context, servo *feetech.Servo, port string, origin int) *command.Command {
	const amount, moveMs = 30, 500
	joint := command.NewSubsystem(string(robot.ShoulderPan))
	moveTo := func(pos int) *command.Command {
		return command.Must(command.Sequence("Swing",
			command.Setter("Set position", pos, func(p int) error {
				servo.SetPositionWithTime(ctx, p, moveMs)
				return nil
			}, joint),
			command.Wait((moveMs+100)*time.Millisecond),
		))
	}

	seq := command.Must(command.Sequence("Wiggle "+port,
		command.RunOnce("Torque on", func() error { return servo.Enable(ctx) }, joint),
		moveTo(origin+amount),
		moveTo(origin-amount),
		moveTo(origin),
	))
	return command.FinallyDo(seq, func(bool) error {
		servo.Disable(ctx)
		return nil
	})
}

// runToEnd runs cmd on its own scheduler until it ends.
func runToEnd(ctx context.Context, cmd *command.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := scheduler.New(scheduler.Config{Logger: newLogger(os.Stderr, logLevel())})
	s.Schedule(command.FinallyDo(cmd, func(bool) error {
		cancel()
		return nil
	}))
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func identifyArm(arm armInfo, needLeader, needFollower bool) (string, error) {
	defer arm.bus.Close()
	ctx := context.Background()

	var servo *feetech.Servo
	for _, s := range arm.servos {
		if s.ID == 1 {
			servo = feetech.NewServo(arm.bus, s.ID, s.Model)
			break
		}
	}
	if servo == nil {
		return "", nil
	}

	origin, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return "", nil
	}

	fmt.Printf("\n  Wiggling arm on %s...\n", arm.port)
	if err := runToEnd(ctx, wiggle(ctx, servo, arm.port, origin)); err != nil {
		return "", err
	}

	var options []huh.Option[string]
	if needLeader {
		options = append(options, huh.NewOption("Leader (the one you move by hand)", "leader"))
	}
	if needFollower {
		options = append(options, huh.NewOption("Follower (the one that follows)", "follower"))
	}
	options = append(options, huh.NewOption("Skip this arm", "skip"))

	var role string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Which arm is on %s?", arm.port)).
				Description("The arm that just wiggled").
				Options(options...).
				Value(&role),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	if role == "skip" {
		return "", nil
	}
	return role, nil
}

func calibrateArm(role, port string, hz int) (robot.Calibration, error) {
	fmt.Printf("Calibrating %s arm on %s\n\n", role, port)

	arm, err := robot.NewArm(role, port, nil)
	if err != nil {
		return nil, err
	}
	defer arm.Close()

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println("Explore the full range of motion for all joints.")
	fmt.Println()

	rec := robot.NewRangeRecorder()
	sched := scheduler.New(scheduler.Config{Hz: hz, Logger: newLogger(os.Stderr, logLevel())})
	sched.Schedule(robot.RecordRange(context.Background(), arm, rec))

	if _, err := tea.NewProgram(newCalibrationModel(sched, rec)).Run(); err != nil {
		return nil, err
	}

	cal := rec.Calibration(robot.DefaultCalibration())
	if len(cal) != len(robot.AllMotors()) {
		return nil, fmt.Errorf("recorded %d of %d motors", len(cal), len(robot.AllMotors()))
	}
	return cal, nil
}

// calibrationModel steps its scheduler from the UI loop, so recording and
// rendering never overlap.
type calibrationModel struct {
	sched    *scheduler.Scheduler
	rec      *robot.RangeRecorder
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(sched *scheduler.Scheduler, rec *robot.RangeRecorder) calibrationModel {
	return calibrationModel{sched: sched, rec: rec}
}

func (m calibrationModel) tick() tea.Cmd {
	return tea.Tick(m.sched.Period(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return m.tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.sched.CancelAll()
			m.sched.Step()
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.sched.Step()
		return m, m.tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	motors := robot.AllMotors()
	rows := make([][]string, 0, len(motors))
	ranges := make([]int, 0, len(motors))
	for _, name := range motors {
		span := m.rec.Max[name] - m.rec.Min[name]
		ranges = append(ranges, span)
		rows = append(rows, []string{
			string(name),
			fmt.Sprintf("%d", m.rec.Last[name]),
			fmt.Sprintf("%d", m.rec.Min[name]),
			fmt.Sprintf("%d", m.rec.Max[name]),
			fmt.Sprintf("%d", span),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > minGoodRange {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	return t.Render() + "\n\n" + dimStyle.Render("Press Enter when done")
}
