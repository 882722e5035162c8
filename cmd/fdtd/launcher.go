package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	fdtd "fdtd-sdk"
	"fdtd-sdk/simdata"
	"fdtd-sdk/simulation"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type RunLauncherModel struct {
	client         *fdtd.Client
	sim            *simulation.Simulation
	taskName       string
	output         string
	spinner        spinner.Model
	statusMessages []string
	statusChan     chan string
	job            *fdtd.Job
	data           *simdata.SimulationData
	cancel         context.CancelFunc
	ctx            context.Context
	done           bool
	err            error
}

type runSubmittedMsg struct {
	job *fdtd.Job
	err error
}

type runFinishedMsg struct {
	err error
}

type runFetchedMsg struct {
	data *simdata.SimulationData
	err  error
}

type runCancelMsg struct {
	err error
}

type runStatusUpdateMsg struct {
	message string
}

func submitRun(ctx context.Context, client *fdtd.Client, sim *simulation.Simulation, taskName string, statusChan chan<- string) tea.Cmd {
	return func() tea.Msg {
		g, err := sim.Grid()
		if err != nil {
			close(statusChan)
			return runSubmittedMsg{err: err}
		}
		n := g.NumCells()
		statusChan <- fmt.Sprintf("Grid: %d x %d x %d (%d cells)", n[0], n[1], n[2], g.TotalCells())
		if steps, err := sim.NumTimeSteps(); err == nil {
			statusChan <- fmt.Sprintf("Time steps: %d", steps)
		}

		statusChan <- fmt.Sprintf("Submitting task: %s...", taskName)
		job, err := client.Submit(ctx, sim, taskName)
		if err != nil {
			close(statusChan)
			return runSubmittedMsg{err: err}
		}

		statusChan <- fmt.Sprintf("Task submitted (ID: %s)", job.TaskID())
		if cost, err := client.Estimate(ctx, job); err == nil {
			statusChan <- fmt.Sprintf("Estimated cost: %.3f FlexUnits", cost)
		}
		return runSubmittedMsg{job: job}
	}
}

func waitForRun(ctx context.Context, client *fdtd.Client, job *fdtd.Job, statusChan chan<- string) tea.Cmd {
	return func() tea.Msg {
		done := make(chan error, 1)
		go func() {
			done <- client.Wait(ctx, job)
		}()

		last := job.Status()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case err := <-done:
				if err != nil {
					close(statusChan)
					return runFinishedMsg{err: err}
				}
				statusChan <- "Simulation finished"
				return runFinishedMsg{}
			case <-ticker.C:
				if s := job.Status(); s != last {
					last = s
					statusChan <- fmt.Sprintf("Task %s", s)
				}
			}
		}
	}
}

func fetchRun(ctx context.Context, client *fdtd.Client, job *fdtd.Job, output string, statusChan chan<- string) tea.Cmd {
	return func() tea.Msg {
		statusChan <- "Downloading results..."
		data, err := client.Fetch(ctx, job)
		if err != nil {
			close(statusChan)
			return runFetchedMsg{err: err}
		}
		if err := simdata.WriteFile(output, data); err != nil {
			close(statusChan)
			return runFetchedMsg{err: err}
		}
		statusChan <- fmt.Sprintf("Results written to %s", output)
		close(statusChan)
		return runFetchedMsg{data: data}
	}
}

func waitForRunStatusUpdates(statusChan <-chan string) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg, ok := <-statusChan:
			if !ok {
				return runStatusUpdateMsg{message: ""}
			}
			return runStatusUpdateMsg{message: msg}
		case <-time.After(100 * time.Millisecond):
			return runStatusUpdateMsg{message: ""}
		}
	}
}

func NewRunLauncherModel(client *fdtd.Client, sim *simulation.Simulation, taskName, output string) RunLauncherModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ctx, cancel := context.WithCancel(context.Background())

	return RunLauncherModel{
		client:         client,
		sim:            sim,
		taskName:       taskName,
		output:         output,
		spinner:        s,
		statusMessages: []string{},
		statusChan:     make(chan string, 10),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Done reports whether the run has finished, successfully or not.
func (m RunLauncherModel) Done() bool {
	return m.done
}

// drain collects messages still buffered in the closed status channel.
func (m RunLauncherModel) drain() RunLauncherModel {
	for msg := range m.statusChan {
		m.statusMessages = append(m.statusMessages, msg)
	}
	return m
}

func (m RunLauncherModel) fail(prefix string, err error) RunLauncherModel {
	m = m.drain()
	m.statusMessages = append(m.statusMessages, fmt.Sprintf("❌ %s: %v", prefix, err))
	m.err = err
	m.done = true
	m.cancel()
	return m
}

func (m RunLauncherModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		submitRun(m.ctx, m.client, m.sim, m.taskName, m.statusChan),
		waitForRunStatusUpdates(m.statusChan),
	)
}

func (m RunLauncherModel) Update(msg tea.Msg) (RunLauncherModel, tea.Cmd) {
	switch msg := msg.(type) {
	case runStatusUpdateMsg:
		if msg.message != "" {
			m.statusMessages = append(m.statusMessages, msg.message)
		}
		if !m.done {
			return m, waitForRunStatusUpdates(m.statusChan)
		}
		return m, nil

	case runSubmittedMsg:
		if msg.err != nil {
			return m.fail("Submission failed", msg.err), nil
		}
		m.job = msg.job
		return m, tea.Batch(
			waitForRun(m.ctx, m.client, m.job, m.statusChan),
			waitForRunStatusUpdates(m.statusChan),
		)

	case runFinishedMsg:
		if msg.err != nil {
			var remote *fdtd.RemoteSolverError
			if errors.As(msg.err, &remote) {
				return m.fail("Solver error", msg.err), nil
			}
			return m.fail("Run did not complete", msg.err), nil
		}
		return m, tea.Batch(
			fetchRun(m.ctx, m.client, m.job, m.output, m.statusChan),
			waitForRunStatusUpdates(m.statusChan),
		)

	case runFetchedMsg:
		if msg.err != nil {
			return m.fail("Fetch failed", msg.err), nil
		}
		m = m.drain()
		m.data = msg.data
		m.done = true
		m.cancel()
		m.statusMessages = append(m.statusMessages, "✓ Run complete!")
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "c" && m.job != nil && !m.done {
			job := m.job
			client := m.client
			return m, func() tea.Msg {
				return runCancelMsg{err: client.Cancel(context.Background(), job)}
			}
		}

	case runCancelMsg:
		if msg.err != nil {
			m.statusMessages = append(m.statusMessages, fmt.Sprintf("❌ Cancel failed: %v", msg.err))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m RunLauncherModel) View() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#CCCCCC")).
		MarginLeft(2)

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginLeft(4)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginLeft(4)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")).
		MarginTop(1).
		MarginLeft(2)

	var content strings.Builder
	content.WriteString(RenderHeader(m.client) + "\n\n")

	for i, msg := range m.statusMessages {
		isError := strings.HasPrefix(msg, "❌")
		switch {
		case isError:
			content.WriteString(errorStyle.Render(fmt.Sprintf("  %s", msg)) + "\n")
		case i == len(m.statusMessages)-1 && !m.done:
			content.WriteString(style.Render(fmt.Sprintf("  %s %s", m.spinner.View(), msg)) + "\n")
		case strings.HasPrefix(msg, "✓"):
			content.WriteString(style.Render(fmt.Sprintf("  %s", msg)) + "\n")
		default:
			content.WriteString(statusStyle.Render(fmt.Sprintf("  ✓ %s", msg)) + "\n")
		}
	}

	if m.data != nil {
		content.WriteString("\n")
		for _, name := range m.data.Names() {
			content.WriteString(statusStyle.Render(fmt.Sprintf("  • %s", name)) + "\n")
		}
	}

	if m.done {
		content.WriteString(helpStyle.Render("Press 'q' or 'esc' to return to the menu"))
	} else if m.job != nil {
		content.WriteString(helpStyle.Render("Press 'c' to cancel the task"))
	}

	return content.String()
}
