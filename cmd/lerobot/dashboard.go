package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/robocmd/pkg/robot"
	"github.com/gwillem/robocmd/pkg/scheduler"
	"github.com/gwillem/robocmd/pkg/teleop"
)

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	tableWidth   = 44
)

// Motor colors - distinct colors for each motor
var motorColors = map[robot.MotorName]string{
	robot.ShoulderPan:  "196", // red
	robot.ShoulderLift: "208", // orange
	robot.ElbowFlex:    "226", // yellow
	robot.WristFlex:    "46",  // green
	robot.WristRoll:    "51",  // cyan
	robot.Gripper:      "201", // magenta
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// dashboard charts leader positions next to the commands the scheduler is
// running.
type dashboard struct {
	title  string
	sched  *scheduler.Scheduler
	states <-chan teleop.State
	logCh  <-chan string
	keys   map[string]func() // extra key bindings
	help   string

	chart         *streamlinechart.Model
	running       []scheduler.Status
	width         int
	height        int
	logs          []string
	quitting      bool
	lastPositions robot.Positions
}

type stateMsg teleop.State
type logMsg string
type refreshMsg time.Time

func newDashboard(title string, sched *scheduler.Scheduler, states <-chan teleop.State, logs <-chan string) *dashboard {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-100, 100),
	)
	for _, name := range robot.AllMotors() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name]))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return &dashboard{
		title:  title,
		sched:  sched,
		states: states,
		logCh:  logs,
		keys:   map[string]func(){},
		help:   "q quit",
		chart:  &chart,
	}
}

func (m *dashboard) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any motor position has changed from the last state
func (m *dashboard) hasMovement(positions robot.Positions) bool {
	if m.lastPositions == nil {
		return true
	}
	for name, pos := range positions {
		if lastPos, ok := m.lastPositions[name]; !ok || pos != lastPos {
			return true
		}
	}
	return false
}

func (m *dashboard) waitForState() tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-m.states)
	}
}

func (m *dashboard) waitForLog() tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-m.logCh)
	}
}

func refresh() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m *dashboard) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(40, m.width-borderSize-tableWidth-2)
	height = max(10, m.height-headerHeight-legendHeight-footerHeight-borderSize)
	return width, height
}

func (m *dashboard) Init() tea.Cmd {
	return tea.Batch(m.waitForState(), m.waitForLog(), refresh())
}

func (m *dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		default:
			if fn, ok := m.keys[key]; ok {
				fn()
			}
		}

	case stateMsg:
		state := teleop.State(msg)
		if state.Positions != nil && m.hasMovement(state.Positions) {
			for name, pos := range state.Positions {
				m.chart.PushDataSet(string(name), pos)
			}
			m.chart.DrawAll()
			m.lastPositions = state.Positions
		}
		return m, m.waitForState()

	case logMsg:
		m.addLog(string(msg))
		return m, m.waitForLog()

	case refreshMsg:
		m.running = m.sched.Snapshot()
		return m, refresh()
	}

	return m, nil
}

func (m *dashboard) View() string {
	if m.quitting {
		return m.title + " stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.sched.Hz()))
	sb.WriteString(statusStyle.Render("  " + m.help))
	sb.WriteString("\n\n")

	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		chartStyle.Render(m.chart.View()),
		" ",
		m.renderCommands(),
	))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(20, m.width-4))

	logLines := statusStyle.Render("No log messages")
	if len(m.logs) > 0 {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m *dashboard) renderCommands() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)

	rows := make([][]string, 0, len(m.running))
	for _, st := range m.running {
		rows = append(rows, []string{
			st.Name,
			strings.Join(st.Requirements, ","),
			fmt.Sprintf("%d", st.Cycles),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(statusStyle).
		Headers("Command", "Requires", "Cycles").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return nameStyle
			default:
				return cellStyle
			}
		}).
		Render()
}

func renderLegend() string {
	var items []string
	for _, name := range robot.AllMotors() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(name))
	}
	return strings.Join(items, "  ")
}
