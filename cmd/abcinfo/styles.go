package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Width(20)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	badStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	addStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	delStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// row renders one "label  value" line.
func row(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(fmtValue(value)))
}
