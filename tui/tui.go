// Package tui renders a live view of one tracked task: spinner and
// progress bar while the job runs, outcome once it finishes. The view is
// detachable; the task keeps running server-side either way.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
	"github.com/Roughriver74/west-rashod-sub001/internals/timeouts"
	"github.com/Roughriver74/west-rashod-sub001/internals/tracking"
)

type recordMsg struct {
	record schemas.TaskRecord
}

type completeMsg struct {
	record schemas.TaskRecord
}

type trackingErrMsg struct {
	err error
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Faint(true)
	runningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func statusStyle(status schemas.TaskStatus) lipgloss.Style {
	switch status {
	case schemas.TaskStatusCompleted:
		return completedStyle
	case schemas.TaskStatusFailed:
		return failedStyle
	case schemas.TaskStatusCancelled:
		return cancelledStyle
	default:
		return runningStyle
	}
}

type watchModel struct {
	taskID        string
	spinner       spinner.Model
	bar           progress.Model
	record        *schemas.TaskRecord
	done          bool
	detached      bool
	cancelPending bool
	trackingErr   error
	requestCancel func()
}

func newWatchModel(taskID string, requestCancel func()) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return watchModel{
		taskID:        taskID,
		spinner:       sp,
		bar:           progress.New(progress.WithDefaultGradient()),
		requestCancel: requestCancel,
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.detached = true
			return m, tea.Quit
		case "c":
			if !m.done && !m.cancelPending && m.requestCancel != nil {
				m.cancelPending = true
				m.requestCancel()
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		width := msg.Width - 8
		if width > 60 {
			width = 60
		}
		if width > 0 {
			m.bar.Width = width
		}
		return m, nil
	case recordMsg:
		record := msg.record
		m.record = &record
		return m, nil
	case completeMsg:
		record := msg.record
		m.record = &record
		m.done = true
		return m, tea.Quit
	case trackingErrMsg:
		m.trackingErr = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	lines := []string{titleStyle.Render("Task " + m.taskID), ""}

	if m.record == nil {
		lines = append(lines, m.spinner.View()+" waiting for first update...")
		return strings.Join(lines, "\n") + "\n"
	}

	record := m.record
	status := statusStyle(record.Status).Render(string(record.Status))
	if record.Status.IsTerminal() {
		lines = append(lines, fmt.Sprintf("%s  %s", status, record.TaskType))
	} else {
		lines = append(lines, fmt.Sprintf("%s %s  %s", m.spinner.View(), status, record.TaskType))
	}

	lines = append(lines, m.bar.ViewAs(float64(record.Progress)/100))
	if record.Total > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("%d of %d processed", record.Processed, record.Total)))
	}
	if record.Message != "" {
		lines = append(lines, record.Message)
	}
	if record.Error != "" {
		lines = append(lines, failedStyle.Render(record.Error))
	}
	if m.cancelPending && !m.done {
		lines = append(lines, cancelledStyle.Render("cancellation requested..."))
	}
	if m.trackingErr != nil {
		lines = append(lines, dimStyle.Render(m.trackingErr.Error()))
	}

	lines = append(lines, "", dimStyle.Render("q: detach  c: cancel"))
	return strings.Join(lines, "\n") + "\n"
}

// WatchResult reports how the watch ended.
type WatchResult struct {
	// Record is the last record the view held; nil when no update arrived.
	Record *schemas.TaskRecord
	// Detached is true when the user left before the task finished.
	Detached bool
}

// Watch attaches a terminal view to an already started session and blocks
// until the task finishes or the user detaches. The caller keeps owning
// the session.
func Watch(session *tracking.Session, taskID string) (*WatchResult, error) {
	requestCancel := func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeouts.CancelRequest)
			defer cancel()
			_ = session.RequestCancel(ctx)
		}()
	}
	program := tea.NewProgram(newWatchModel(taskID, requestCancel))

	session.AttachView(tracking.ViewHooks{
		OnUpdate:   func(record schemas.TaskRecord) { program.Send(recordMsg{record: record}) },
		OnComplete: func(record schemas.TaskRecord) { program.Send(completeMsg{record: record}) },
		OnError:    func(err error) { program.Send(trackingErrMsg{err: err}) },
	})
	defer session.DetachView()

	result, err := program.Run()
	if err != nil {
		return nil, err
	}
	model, ok := result.(watchModel)
	if !ok {
		return &WatchResult{}, nil
	}
	return &WatchResult{
		Record:   model.record,
		Detached: model.detached && !model.done,
	}, nil
}
