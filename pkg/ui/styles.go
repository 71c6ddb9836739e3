// Package ui holds the terminal presentation layer: lipgloss styles for
// command output and the phase spinner.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Success styles confirmation lines.
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)

	// Failure styles error lines.
	Failure = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	// Accent styles package names and versions.
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	// Muted styles secondary detail.
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
