package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
)

const timeLayout = "2006-01-02 15:04"

// colorizeAlertStatus formats an alert status badge with semantic color
func colorizeAlertStatus(status string) string {
	switch status {
	case "ACTIVE":
		return color.New(color.FgHiBlue).Sprint("[active]")
	case "COMPLETED":
		return color.New(color.FgHiGreen).Sprint("[completed]")
	default:
		return fmt.Sprintf("[%s]", strings.ToLower(status))
	}
}

// colorizePriority formats a priority with semantic color
func colorizePriority(priority string) string {
	switch priority {
	case "HIGH":
		return color.New(color.FgRed).Sprint(priority)
	case "MEDIUM":
		return color.New(color.FgYellow).Sprint(priority)
	case "LOW":
		return color.New(color.FgHiBlack).Sprint(priority)
	default:
		return priority
	}
}

// progressBar renders percent as a fixed-width bar.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if percent == 100 {
		return color.New(color.FgHiGreen).Sprint(bar)
	}
	return bar
}

func mainMarker(isMain bool) string {
	if isMain {
		return "main"
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
