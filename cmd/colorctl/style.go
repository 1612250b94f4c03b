package main

import "github.com/charmbracelet/lipgloss"

// swatch renders a small block filled with hex. Terminals without color
// support get blank padding.
func swatch(hex string) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(hex)).
		Render("    ")
}
