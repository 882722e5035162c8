// Package main provides the configuration view for the FDTD CLI.
//
// This file implements the ConfigModel which shows the active API key,
// endpoint and history store, and lets the user edit and persist them to
// ~/.fdtd/config.yaml.
package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	fdtd "fdtd-sdk"
	"fdtd-sdk/cmd/fdtd/internal/config"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var cfgMagenta = lipgloss.AdaptiveColor{Light: "#FF06B7", Dark: "#FF06B7"}

type ConfigModel struct {
	client  *fdtd.Client
	cfg     *fdtd.Config
	form    *huh.Form
	loadErr error
	saveErr error
	saved   bool
	saving  bool
}

type configSavedMsg struct {
	client *fdtd.Client
	cfg    *fdtd.Config
	err    error
}

func saveConfig(cfg *fdtd.Config) tea.Cmd {
	return func() tea.Msg {
		client, err := config.Save(context.Background(), cfg)
		return configSavedMsg{client: client, cfg: cfg, err: err}
	}
}

func NewConfigModel(client *fdtd.Client, cfg *fdtd.Config, loadErr error) ConfigModel {
	m := ConfigModel{
		client:  client,
		cfg:     cfg,
		loadErr: loadErr,
	}
	apiKey, baseURL, historyDSN := cfg.APIKey, cfg.BaseURL, cfg.HistoryDSN

	theme := huh.ThemeCharm()
	theme.Focused.Base = theme.Focused.Base.BorderForeground(cfgMagenta)
	theme.Focused.Title = theme.Focused.Title.Foreground(cfgMagenta)
	theme.Focused.TextInput.Cursor = theme.Focused.TextInput.Cursor.Foreground(cfgMagenta)
	theme.Focused.TextInput.Prompt = theme.Focused.TextInput.Prompt.Foreground(cfgMagenta)

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("api_key").
				Title("API Key").
				Description("Credential of your solver account").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("API key is required")
					}
					return nil
				}),

			huh.NewInput().
				Key("base_url").
				Title("Base URL").
				Description("Solver API endpoint").
				Value(&baseURL).
				Validate(validateURL),

			huh.NewInput().
				Key("history_dsn").
				Title("History Database").
				Description("Optional postgres:// or mysql:// DSN for local task history").
				Value(&historyDSN),

			huh.NewConfirm().
				Key("save").
				Title("Save Configuration").
				Description("Write to "+fdtd.DefaultConfigPath()).
				Affirmative("Save").
				Negative("Cancel"),
		),
	).
		WithWidth(60).
		WithShowHelp(true).
		WithShowErrors(true).
		WithTheme(theme)

	return m
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

func (m ConfigModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ConfigModel) Update(msg tea.Msg) (ConfigModel, tea.Cmd) {
	switch msg := msg.(type) {
	case configSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.saveErr = msg.err
			return m, nil
		}
		return m, func() tea.Msg {
			return clientUpdatedMsg{client: msg.client, cfg: msg.cfg}
		}

	case clientUpdatedMsg:
		m.client = msg.client
		m.cfg = msg.cfg
		m.saved = true
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, navigate(ViewMainMenu)
		case "q":
			if m.form.State != huh.StateNormal {
				return m, navigate(ViewMainMenu)
			}
		}
	}

	var cmds []tea.Cmd

	// Process the form
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
		cmds = append(cmds, cmd)
	}

	if m.form.State == huh.StateCompleted && !m.saving && !m.saved && m.saveErr == nil {
		if !m.form.GetBool("save") {
			return m, navigate(ViewMainMenu)
		}
		next := *m.cfg
		next.APIKey = strings.TrimSpace(m.form.GetString("api_key"))
		next.BaseURL = strings.TrimRight(strings.TrimSpace(m.form.GetString("base_url")), "/")
		next.HistoryDSN = strings.TrimSpace(m.form.GetString("history_dsn"))
		m.saving = true
		cmds = append(cmds, saveConfig(&next))
	}

	return m, tea.Batch(cmds...)
}

func (m ConfigModel) View() string {
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D56F4")).
		Bold(true).
		Width(12)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FAFAFA"))

	notSetStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginLeft(2)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")).
		MarginTop(1).
		MarginLeft(2)

	containerStyle := lipgloss.NewStyle().
		MarginLeft(2)

	var content strings.Builder
	content.WriteString(RenderHeader(m.client))
	content.WriteString("\n")

	row := func(label, value string) {
		content.WriteString(containerStyle.Render(labelStyle.Render(label)))
		content.WriteString(" ")
		if value == "" {
			content.WriteString(notSetStyle.Render("Not set"))
		} else {
			content.WriteString(valueStyle.Render(value))
		}
		content.WriteString("\n")
	}
	row("API Key:", maskKey(m.client.GetAPIKey()))
	row("Base URL:", m.client.GetBaseURL())
	row("History:", m.cfg.HistoryDSN)
	content.WriteString("\n")

	if m.loadErr != nil {
		content.WriteString(errorStyle.Render(fmt.Sprintf("❌ %v", m.loadErr)) + "\n\n")
	}

	switch {
	case m.saveErr != nil:
		content.WriteString(errorStyle.Render(fmt.Sprintf("❌ Failed to save: %v", m.saveErr)) + "\n")
	case m.saved:
		content.WriteString(containerStyle.Render("✓ Configuration saved") + "\n")
	case m.saving:
		content.WriteString(containerStyle.Render("Saving...") + "\n")
	default:
		content.WriteString(m.form.View())
	}

	content.WriteString(helpStyle.Render("Press 'esc' to go back"))

	return content.String()
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
