package ui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	violet = lipgloss.Color("#7D56F4")
	green  = lipgloss.Color("#04B575")
	red    = lipgloss.Color("#FF4F4F")
	amber  = lipgloss.Color("#FFA500")
)

var styles = palette{
	title: bold(violet).MarginBottom(1),
	ok:    bold(green),
	err:   bold(red),
	warn:  fg(amber),
}

// palette holds the few styles the push views render with.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
}

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func bold(c lipgloss.Color) lipgloss.Style {
	return fg(c).Bold(true)
}
