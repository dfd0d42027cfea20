package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// LoadingIndicator is the animated spinner and status message shown while a
// fetch or conversation action is in flight.
type LoadingIndicator struct {
	frame   int
	message string
}

// NewLoadingIndicator creates an indicator with the given message
func NewLoadingIndicator(message string) *LoadingIndicator {
	return &LoadingIndicator{message: message}
}

// SetMessage updates the loading message
func (l *LoadingIndicator) SetMessage(message string) {
	l.message = message
}

// Tick advances the spinner animation
func (l *LoadingIndicator) Tick() {
	l.frame = (l.frame + 1) % len(spinnerFrames)
}

// View renders the current frame and message
func (l *LoadingIndicator) View() string {
	frameStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("212"))

	messageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	return fmt.Sprintf("%s %s",
		frameStyle.Render(spinnerFrames[l.frame]),
		messageStyle.Render(l.message))
}

// LoadingOverlay centers the indicator in the content area
func LoadingOverlay(width, height int, indicator *LoadingIndicator) string {
	style := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)

	return style.Render(indicator.View())
}
