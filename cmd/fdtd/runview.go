package main

import (
	"path/filepath"
	"strings"

	fdtd "fdtd-sdk"
	"fdtd-sdk/simulation"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

type RunFormModel struct {
	client   *fdtd.Client
	form     *huh.Form
	loaded   **simulation.Simulation
	launched bool
}

func NewRunFormModel(client *fdtd.Client) RunFormModel {
	var path, taskName, output string
	// set by the path validator
	loaded := new(*simulation.Simulation)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("path").
				Title("Simulation File").
				Description("Path to a .json or .yaml simulation").
				Placeholder("waveguide.yaml").
				Value(&path).
				Validate(func(s string) error {
					sim, err := simulation.LoadFile(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					*loaded = sim
					return nil
				}),

			huh.NewInput().
				Key("task_name").
				Title("Task Name").
				Description("Leave empty to use the simulation name").
				Value(&taskName),

			huh.NewInput().
				Key("output").
				Title("Output Path").
				Description("Where to write the results (.json or .json.gz)").
				Placeholder("<task name>.json.gz").
				Value(&output),
		),
	).
		WithWidth(60).
		WithShowHelp(true).
		WithShowErrors(true).
		WithTheme(huh.ThemeCharm())

	return RunFormModel{client: client, form: form, loaded: loaded}
}

func (m RunFormModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m RunFormModel) Update(msg tea.Msg) (RunFormModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		return m, navigate(ViewMainMenu)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted && !m.launched {
		m.launched = true
		sim := *m.loaded
		if sim == nil {
			return m, navigate(ViewMainMenu)
		}
		taskName := strings.TrimSpace(m.form.GetString("task_name"))
		if taskName == "" {
			taskName = defaultTaskName(sim, m.form.GetString("path"))
		}
		output := strings.TrimSpace(m.form.GetString("output"))
		if output == "" {
			output = taskName + ".json.gz"
		}
		return m, func() tea.Msg {
			return launchRunMsg{sim: sim, taskName: taskName, output: output}
		}
	}
	return m, cmd
}

func defaultTaskName(sim *simulation.Simulation, path string) string {
	if sim != nil && sim.Name() != "" {
		return sim.Name()
	}
	base := filepath.Base(strings.TrimSpace(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (m RunFormModel) View() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")).
		MarginTop(1).
		MarginLeft(2)

	var content strings.Builder
	content.WriteString(RenderHeader(m.client))
	content.WriteString("\n")
	content.WriteString(m.form.View())
	content.WriteString(helpStyle.Render("Press 'esc' to go back"))
	return content.String()
}
