package main

import (
	"fmt"
	"net/url"

	fdtd "fdtd-sdk"

	"github.com/charmbracelet/lipgloss"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func buildInfo() string {
	info := "v" + version
	if len(gitCommit) > 7 && gitCommit != "unknown" {
		info += " (" + gitCommit[:7] + ")"
	}
	if buildTime != "unknown" {
		info += " " + buildTime
	}
	return info
}

// endpointInfo names the API host the client talks to and whether a key is
// configured. A nil client reads as unconfigured.
func endpointInfo(client *fdtd.Client) string {
	if client == nil {
		return "not configured"
	}
	host := client.GetBaseURL()
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Host
	}
	key := "no API key"
	if client.GetAPIKey() != "" {
		key = "API key set"
	}
	return fmt.Sprintf("%s · %s", host, key)
}

// RenderHeader draws the title bar shown above every view.
func RenderHeader(client *fdtd.Client) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D56F4")).
		Bold(true).
		MarginTop(1).
		MarginLeft(2)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginLeft(2).
		MarginBottom(1)

	keyStyle := subtitleStyle
	if client == nil || client.GetAPIKey() == "" {
		keyStyle = keyStyle.Foreground(lipgloss.Color("#FF8800"))
	}

	title := titleStyle.Render("FDTD Solver CLI")
	subtitle := subtitleStyle.Render(buildInfo())
	endpoint := keyStyle.Render(endpointInfo(client))

	return fmt.Sprintf("%s\n%s\n%s\n", title, subtitle, endpoint)
}
