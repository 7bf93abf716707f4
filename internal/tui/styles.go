package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	colorRed     = lipgloss.Color("#ff5555")
	colorGreen   = lipgloss.Color("#50fa7b")
	colorYellow  = lipgloss.Color("#f1fa8c")
	colorBlue    = lipgloss.Color("#8be9fd")
	colorPurple  = lipgloss.Color("#bd93f9")
	colorDim     = lipgloss.Color("#6272a4")
	colorBgLight = lipgloss.Color("#343746")
	colorFg      = lipgloss.Color("#f8f8f2")
	colorOrange  = lipgloss.Color("#ffb86c")
	colorBorder  = lipgloss.Color("#44475a")
)

// Style definitions.
var (
	// Header
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPurple).
			Bold(true)

	modeStyle = lipgloss.NewStyle().
			Foreground(colorOrange).
			Bold(true)

	descStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	modelNameStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	// Body
	bodyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorBlue).
				Bold(true)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	statValueStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Bold(true)

	cycleStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	noCycleStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	fenceStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	textStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	waitingStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	// Status bar
	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Background(colorBgLight).
			Padding(0, 1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorPurple)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Background(colorBgLight)

	// Help
	helpHeaderStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true).
			Padding(0, 0, 1, 0)

	helpBarStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)
