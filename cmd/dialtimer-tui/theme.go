package main

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Name     string
	Title    lipgloss.Style
	Readout  lipgloss.Style
	Running  lipgloss.Style
	Paused   lipgloss.Style
	Idle     lipgloss.Style
	Rings    [3]lipgloss.Style
	Focused  lipgloss.Style
	Track    lipgloss.Style
	Pointer  lipgloss.Style
	Dim      lipgloss.Style
	Error    lipgloss.Style
	Gradient [2]string
}

var Themes = map[string]Theme{
	"default": {
		Name:    "Default",
		Title:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Readout: lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true).Padding(0, 1),
		Running: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Paused:  lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		Idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Rings: [3]lipgloss.Style{
			ringSeconds: lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
			ringMinutes: lipgloss.NewStyle().Foreground(lipgloss.Color("170")),
			ringHours:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		},
		Focused:  lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Track:    lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		Pointer:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Gradient: [2]string{"#5A56E0", "#EE6FF8"},
	},
	"dracula": {
		Name:    "Dracula",
		Title:   lipgloss.NewStyle().Foreground(lipgloss.Color("50")).Bold(true),
		Readout: lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true).Padding(0, 1),
		Running: lipgloss.NewStyle().Foreground(lipgloss.Color("120")).Bold(true), // Green
		Paused:  lipgloss.NewStyle().Foreground(lipgloss.Color("215")).Bold(true), // Orange
		Idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("60")),
		Rings: [3]lipgloss.Style{
			ringSeconds: lipgloss.NewStyle().Foreground(lipgloss.Color("117")), // Cyan
			ringMinutes: lipgloss.NewStyle().Foreground(lipgloss.Color("141")), // Purple
			ringHours:   lipgloss.NewStyle().Foreground(lipgloss.Color("228")), // Yellow
		},
		Focused:  lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true), // Pink
		Track:    lipgloss.NewStyle().Foreground(lipgloss.Color("59")),
		Pointer:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("60")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("210")),
		Gradient: [2]string{"#6272A4", "#FF79C6"},
	},
}

// ThemeNames lists the available themes.
func ThemeNames() []string {
	names := make([]string, 0, len(Themes))
	for name := range Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
