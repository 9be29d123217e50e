// Package tui draws an assessment session in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/assessment"
	"github.com/dekdek-app/dekdek/internal/images"
	"github.com/dekdek-app/dekdek/internal/models"
)

type changedMsg struct{}

type doneMsg struct {
	err error
}

// Model is the bubbletea model of one session
type Model struct {
	ctx     context.Context
	session *assessment.Session
	child   *models.Child
	images  *images.Resolver
	styles  styles
	spinner spinner.Model

	snap    assessment.Snapshot
	changed chan struct{}
	stop    func()
	lastErr error
}

// New wraps a session. The session must not have been focused yet.
func New(ctx context.Context, session *assessment.Session, child *models.Child) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:     ctx,
		session: session,
		child:   child,
		images:  images.Default(),
		styles:  newStyles(child.Gender),
		spinner: sp,
		snap:    session.Snapshot(),
		changed: make(chan struct{}, 1),
	}
	m.spinner.Style = m.styles.label

	changed := m.changed
	m.stop = session.Observe(func(assessment.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	return m
}

// Exit returns how the session ended, or nil
func (m Model) Exit() *assessment.Exit {
	return m.snap.Exit
}

// Init starts the spinner and the first fetch
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.focus(), m.wait())
}

func (m Model) focus() tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: m.session.Focus(m.ctx)}
	}
}

func (m Model) answer(passed bool) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: m.session.Answer(m.ctx, passed)}
	}
}

// wait blocks until the session publishes a change
func (m Model) wait() tea.Cmd {
	changed := m.changed
	return func() tea.Msg {
		select {
		case <-changed:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.stop()
	m.session.Close()
	return m, tea.Quit
}

// Update handles key presses and session changes
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.snap = m.session.Snapshot()
		if m.snap.Exit != nil && m.snap.Exit.Kind == assessment.ExitHome {
			return m.quit()
		}
		return m, m.wait()

	case doneMsg:
		if msg.err != nil && !errors.Is(msg.err, assessment.ErrBusy) && !errors.Is(msg.err, context.Canceled) {
			m.lastErr = msg.err
		} else {
			m.lastErr = nil
		}
		m.snap = m.session.Snapshot()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}

	if m.snap.Exit != nil {
		switch key {
		case "enter", "q", "esc", "h":
			return m.quit()
		}
		return m, nil
	}

	switch key {
	case "h", "esc", "q":
		m.session.Home()
		m.snap = m.session.Snapshot()
		return m.quit()
	}

	switch m.snap.State {
	case assessment.StateHasItem:
		if m.snap.Busy {
			return m, nil
		}
		switch key {
		case "y", "p":
			return m, m.answer(true)
		case "n", "f":
			return m, m.answer(false)
		}
	case assessment.StateError:
		if key == "r" {
			return m, m.focus()
		}
	case assessment.StateCompleted:
		if key == "enter" {
			m.session.Home()
			m.snap = m.session.Snapshot()
			return m.quit()
		}
	}
	return m, nil
}

// View renders the current screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render(m.heading()))
	b.WriteString("\n\n")

	if m.snap.Exit != nil && m.snap.Exit.Kind == assessment.ExitTraining {
		b.WriteString(m.styles.frame.Render(m.trainingView(m.snap.Exit.Details)))
		b.WriteString("\n")
		b.WriteString(m.styles.keys.Render("[enter] กลับหน้าหลัก"))
		return b.String()
	}

	var body, keys string
	switch m.snap.State {
	case assessment.StateLoading:
		body = m.spinner.View() + " กำลังโหลด..."
		keys = "[h] กลับหน้าหลัก"
	case assessment.StateError:
		body = m.styles.alert.Render(m.snap.Message)
		keys = "[r] ลองใหม่  [h] กลับหน้าหลัก"
	case assessment.StateHasItem:
		body = m.itemView(m.snap.Item)
		keys = "[y] ได้  [n] ไม่ได้  [h] กลับหน้าหลัก"
		if m.snap.Busy {
			keys = m.spinner.View() + " กำลังบันทึก..."
		}
	case assessment.StateCompleted:
		body = fmt.Sprintf("ประเมิน%sครบทุกข้อแล้ว", m.session.Params().Aspect.ThaiName())
		keys = "[enter] กลับหน้าหลัก"
	}

	b.WriteString(m.styles.frame.Render(body))
	b.WriteString("\n")
	if m.lastErr != nil && m.snap.State != assessment.StateError {
		b.WriteString(m.styles.alert.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.keys.Render(keys))
	return b.String()
}

func (m Model) heading() string {
	params := m.session.Params()
	h := fmt.Sprintf("น้อง%s · %s", m.child.NickName, params.Aspect.ThaiName())
	if params.Supervisor {
		h += " (ผู้ดูแล)"
	}
	return h
}

func (m Model) itemView(item *models.AssessmentDetails) string {
	if item == nil {
		return ""
	}
	aspect := m.session.Params().Aspect

	lines := []string{
		m.styles.label.Render(item.Name),
		m.field("ช่วงอายุ", age.DescribeRange(item.AgeRange)),
	}
	if v, ok := models.Optional(item.Image); ok {
		lines = append(lines, m.field("รูปภาพ", m.images.Resolve(aspect, v).Path))
	}
	if item.HasDevice() {
		lines = append(lines, m.field("อุปกรณ์", item.DeviceName))
		if v, ok := models.Optional(item.DeviceImage); ok {
			lines = append(lines, m.field("รูปอุปกรณ์", m.images.ResolveDevice(v).Path))
		}
		if v, ok := models.Optional(item.DeviceDetail); ok {
			lines = append(lines, m.styles.muted.Render(v))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) trainingView(item *models.AssessmentDetails) string {
	if item == nil {
		return ""
	}

	lines := []string{
		m.styles.label.Render("ฝึกทักษะ: " + item.Name),
	}
	if v, ok := models.Optional(item.Method); ok {
		lines = append(lines, "", m.styles.label.Render("วิธีฝึก"), v)
	}
	if v, ok := models.Optional(item.Succession); ok {
		lines = append(lines, "", m.styles.label.Render("ผลที่คาดหวัง"), v)
	}
	if item.HasDevice() {
		lines = append(lines, "", m.field("อุปกรณ์", item.DeviceName))
	}
	return strings.Join(lines, "\n")
}

func (m Model) field(label, value string) string {
	return m.styles.muted.Render(label+": ") + value
}
