package main

import (
	"context"
	"fmt"

	fdtd "fdtd-sdk"
	"fdtd-sdk/cmd/fdtd/internal/config"
	"fdtd-sdk/simulation"
	"fdtd-sdk/utils"

	tea "github.com/charmbracelet/bubbletea"
)

type ViewState int

type NavigateMsg struct {
	view ViewState
}

// launchRunMsg starts the launcher for a loaded simulation.
type launchRunMsg struct {
	sim      *simulation.Simulation
	taskName string
	output   string
}

// clientUpdatedMsg replaces the shared client after the configuration changed.
type clientUpdatedMsg struct {
	client *fdtd.Client
	cfg    *fdtd.Config
}

const (
	ViewMainMenu ViewState = iota
	ViewConfig
	ViewRunForm
	ViewLauncher
	ViewTasks
)

func navigate(view ViewState) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{view: view}
	}
}

type Model struct {
	currentView ViewState
	client      *fdtd.Client
	cfg         *fdtd.Config
	mainMenu    MainMenuModel
	config      ConfigModel
	runForm     RunFormModel
	launcher    RunLauncherModel
	tasks       TasksModel
	quitting    bool
}

func newModel(client *fdtd.Client, cfg *fdtd.Config, loadErr error) Model {
	return Model{
		currentView: ViewMainMenu,
		client:      client,
		cfg:         cfg,
		mainMenu:    NewMainMenuModel(client),
		config:      NewConfigModel(client, cfg, loadErr),
		runForm:     NewRunFormModel(client),
		tasks:       NewTasksModel(client),
	}
}

func (m Model) Init() tea.Cmd {
	return m.mainMenu.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle a run launch with the loaded simulation
	if runMsg, ok := msg.(launchRunMsg); ok {
		m.launcher = NewRunLauncherModel(m.client, runMsg.sim, runMsg.taskName, runMsg.output)
		m.currentView = ViewLauncher
		return m, m.launcher.Init()
	}

	if upd, ok := msg.(clientUpdatedMsg); ok {
		m.client.Close()
		m.client = upd.client
		m.cfg = upd.cfg
		m.tasks = NewTasksModel(upd.client)
		m.mainMenu.client = upd.client
		m.runForm.client = upd.client
		m.config, _ = m.config.Update(msg)
		return m, nil
	}

	// Handle navigation messages
	if navMsg, ok := msg.(NavigateMsg); ok {
		m.currentView = navMsg.view
		// Initialize the view when navigating to it
		switch navMsg.view {
		case ViewConfig:
			m.config = NewConfigModel(m.client, m.cfg, nil)
			return m, m.config.Init()
		case ViewRunForm:
			m.runForm = NewRunFormModel(m.client)
			return m, m.runForm.Init()
		case ViewTasks:
			m.tasks = NewTasksModel(m.client)
			return m, m.tasks.Init()
		}
		return m, nil
	}

	// Handle global key commands
	if msg, ok := msg.(tea.KeyMsg); ok {
		k := msg.String()

		if k == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.currentView == ViewLauncher && (k == "q" || k == "esc") && m.launcher.Done() {
			m.currentView = ViewMainMenu
			return m, nil
		}
	}

	// Route updates to current view
	var cmd tea.Cmd
	switch m.currentView {
	case ViewMainMenu:
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case ViewConfig:
		m.config, cmd = m.config.Update(msg)
	case ViewRunForm:
		m.runForm, cmd = m.runForm.Update(msg)
	case ViewLauncher:
		m.launcher, cmd = m.launcher.Update(msg)
	case ViewTasks:
		m.tasks, cmd = m.tasks.Update(msg)
	}

	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return "bye!\n"
	}

	// Route view to current view
	switch m.currentView {
	case ViewMainMenu:
		return m.mainMenu.View()
	case ViewConfig:
		return m.config.View()
	case ViewRunForm:
		return m.runForm.View()
	case ViewLauncher:
		return m.launcher.View()
	case ViewTasks:
		return m.tasks.View()
	default:
		return "Unknown view\n"
	}
}

func main() {
	if err := utils.InitLogger(""); err != nil {
		fmt.Println("warning: debug log disabled:", err)
	}

	client, cfg, err := config.LoadClient(context.Background())
	if err != nil {
		utils.LogDebug("config: %v", err)
	}

	initialModel := newModel(client, cfg, err)
	p := tea.NewProgram(initialModel)

	final, err := p.Run()
	if err != nil {
		fmt.Println("could not run program:", err)
	}
	if fm, ok := final.(Model); ok {
		fm.client.Close()
	}
}
