// Package main provides the task browser view for the FDTD CLI.
//
// This file implements the TasksModel which lists recent tasks of the
// account, shows the solver log of a selected task and can cancel tasks
// that have not finished yet.
package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	fdtd "fdtd-sdk"
	"fdtd-sdk/models"
	"fdtd-sdk/store"
	"fdtd-sdk/utils"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const taskListLimit = 50

type TasksModel struct {
	client  *fdtd.Client
	list    list.Model
	log     viewport.Model
	logTask string
	showLog bool
	loading bool
	notice  string
	err     error
}

type taskItem struct {
	info models.TaskInfo
	// local record, if the history store knows the task
	record *store.Record
}

func (t taskItem) FilterValue() string { return t.info.TaskName }
func (t taskItem) Title() string       { return t.info.TaskName }
func (t taskItem) Description() string {
	desc := fmt.Sprintf("%s • %s", t.info.TaskID, t.info.Status)
	if t.info.CreatedAt != nil {
		desc += " • " + t.info.CreatedAt.Local().Format("2006-01-02 15:04")
	}
	if t.info.ErrorMessage != nil && *t.info.ErrorMessage != "" {
		desc += " • " + *t.info.ErrorMessage
	}
	if t.record != nil && t.record.ResultPath != "" {
		desc += " • " + t.record.ResultPath
	}
	return desc
}

type tasksLoadedMsg struct {
	items []list.Item
	err   error
}

type taskLogMsg struct {
	taskID string
	log    string
	err    error
}

type taskCancelledMsg struct {
	taskID string
	err    error
}

func loadTasks(client *fdtd.Client) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		tasks, err := client.List(ctx, taskListLimit)
		if err != nil {
			return tasksLoadedMsg{err: err}
		}
		records, err := client.History(ctx, taskListLimit)
		if err != nil {
			utils.LogDebug("history: %v", err)
		}
		return tasksLoadedMsg{items: mergeTasks(tasks, records)}
	}
}

// mergeTasks attaches local records to remote tasks and appends recorded
// tasks the remote list no longer returns.
func mergeTasks(tasks []models.TaskInfo, records []store.Record) []list.Item {
	byID := make(map[string]*store.Record, len(records))
	for i := range records {
		byID[records[i].TaskID] = &records[i]
	}

	items := make([]list.Item, 0, len(tasks)+len(records))
	for _, t := range tasks {
		items = append(items, taskItem{info: t, record: byID[t.TaskID]})
		delete(byID, t.TaskID)
	}
	for i := range records {
		rec := &records[i]
		if _, ok := byID[rec.TaskID]; !ok {
			continue
		}
		info := models.TaskInfo{TaskID: rec.TaskID, TaskName: rec.TaskName, Status: rec.Status}
		if rec.ErrorMessage != "" {
			info.ErrorMessage = &rec.ErrorMessage
		}
		if !rec.UpdatedAt.IsZero() {
			info.CreatedAt = &rec.UpdatedAt
		}
		items = append(items, taskItem{info: info, record: rec})
		delete(byID, rec.TaskID)
	}
	return items
}

func loadTaskLog(client *fdtd.Client, taskID string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		job, err := client.Attach(ctx, taskID)
		if err != nil {
			return taskLogMsg{taskID: taskID, err: err}
		}
		log, err := client.Log(ctx, job)
		return taskLogMsg{taskID: taskID, log: log, err: err}
	}
}

func cancelTask(client *fdtd.Client, taskID string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		job, err := client.Attach(ctx, taskID)
		if err != nil {
			return taskCancelledMsg{taskID: taskID, err: err}
		}
		return taskCancelledMsg{taskID: taskID, err: client.Cancel(ctx, job)}
	}
}

type taskItemDelegate struct{}

func (d taskItemDelegate) Height() int                             { return 2 }
func (d taskItemDelegate) Spacing() int                            { return 1 }
func (d taskItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d taskItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(taskItem)
	if !ok {
		return
	}

	var (
		titleStyle    = lipgloss.NewStyle().PaddingLeft(4)
		selectedStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#7D56F4"))
		descStyle     = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("#666666"))
	)

	title := i.Title()
	desc := i.Description()

	if index == m.Index() {
		title = selectedStyle.Render("> " + title)
		desc = selectedStyle.Render("  " + desc)
	} else {
		title = titleStyle.Render(title)
		desc = descStyle.Render(desc)
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func NewTasksModel(client *fdtd.Client) TasksModel {
	l := list.New([]list.Item{}, taskItemDelegate{}, 80, 20)
	l.Title = "Recent Tasks"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return TasksModel{
		client:  client,
		list:    l,
		log:     viewport.New(80, 20),
		loading: true,
	}
}

func (m TasksModel) Init() tea.Cmd {
	return loadTasks(m.client)
}

func (m TasksModel) selected() (models.TaskInfo, bool) {
	item, ok := m.list.SelectedItem().(taskItem)
	if !ok {
		return models.TaskInfo{}, false
	}
	return item.info, true
}

func (m TasksModel) Update(msg tea.Msg) (TasksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, 20)
		m.log.Width = msg.Width
		return m, nil

	case tasksLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		return m, m.list.SetItems(msg.items)

	case taskLogMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("❌ Failed to load log of %s: %v", msg.taskID, msg.err)
			return m, nil
		}
		m.logTask = msg.taskID
		m.showLog = true
		m.log.SetContent(msg.log)
		m.log.GotoBottom()
		return m, nil

	case taskCancelledMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("❌ Failed to cancel %s: %v", msg.taskID, msg.err)
			return m, nil
		}
		m.notice = fmt.Sprintf("✓ Cancelled %s", msg.taskID)
		return m, loadTasks(m.client)

	case tea.KeyMsg:
		if m.showLog {
			switch msg.String() {
			case "q", "esc":
				m.showLog = false
				return m, nil
			}
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			return m, cmd
		}

		filtering := m.list.FilterState() == list.Filtering
		switch msg.String() {
		case "q":
			if !filtering {
				return m, navigate(ViewMainMenu)
			}
		case "esc":
			if filtering || m.list.FilterState() == list.FilterApplied {
				m.list.ResetFilter()
				return m, nil
			}
			return m, navigate(ViewMainMenu)
		case "r":
			if !filtering {
				m.loading = true
				m.notice = ""
				return m, loadTasks(m.client)
			}
		case "enter":
			if t, ok := m.selected(); ok && !filtering {
				m.notice = ""
				return m, loadTaskLog(m.client, t.TaskID)
			}
		case "c":
			if t, ok := m.selected(); ok && !filtering {
				if status, known := fdtd.RemoteStatus(t.Status); known && status.IsTerminal() {
					m.notice = fmt.Sprintf("❌ Task %s already %s", t.TaskID, status)
					return m, nil
				}
				m.notice = fmt.Sprintf("Cancelling %s...", t.TaskID)
				return m, cancelTask(m.client, t.TaskID)
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m TasksModel) View() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")).
		MarginLeft(2).
		MarginTop(1)

	noticeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#CCCCCC")).
		MarginLeft(2)

	var content strings.Builder
	content.WriteString(RenderHeader(m.client) + "\n")

	if m.showLog {
		titleStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			MarginLeft(2)
		content.WriteString(titleStyle.Render("Log of "+m.logTask) + "\n\n")
		content.WriteString(m.log.View())
		content.WriteString("\n")
		content.WriteString(helpStyle.Render("↑/↓: Scroll • Esc/q: Back"))
		return content.String()
	}

	if m.loading {
		loadingStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginLeft(2)
		content.WriteString(loadingStyle.Render("Loading tasks..."))
		return content.String()
	}

	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			MarginLeft(2)
		content.WriteString(errorStyle.Render(fmt.Sprintf("Error: %s", m.err.Error())))
		content.WriteString("\n")
		content.WriteString(helpStyle.Render("r: Retry • Esc/q: Back"))
		return content.String()
	}

	content.WriteString(m.list.View())
	content.WriteString("\n")
	if m.notice != "" {
		content.WriteString(noticeStyle.Render(m.notice) + "\n")
	}
	content.WriteString(helpStyle.Render("Enter: Log • c: Cancel • r: Refresh • /: Filter • Esc/q: Back"))

	return content.String()
}
