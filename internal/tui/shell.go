// Package tui is the full-screen terminal shell of the listing wizard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/submit"
	"github.com/rentloop/listr/internal/wizard"
)

// Modal layout constants
const (
	modalWidth        = 76                                                       // Total modal width including border
	modalPadding      = 2                                                        // Horizontal padding on each side
	modalBorderWidth  = 1                                                        // Border width on each side
	modalContentWidth = modalWidth - (modalPadding * 2) - (modalBorderWidth * 2) // 70
)

// submitDoneMsg is sent when the submission finished.
type submitDoneMsg struct {
	Result *submit.Result
	Err    error
}

// photosDroppedMsg carries image files that appeared in the drop folder.
type photosDroppedMsg struct {
	Paths []string
}

// Option configures a Shell.
type Option func(*Shell)

// WithDropFolder adds the photos delivered on batches as they arrive.
func WithDropFolder(batches <-chan []string) Option {
	return func(m *Shell) {
		m.drops = batches
	}
}

// Shell is the Bubbletea model driving one wizard session.
type Shell struct {
	ctx            context.Context
	session        *wizard.Session
	reviewTemplate string

	width  int
	height int

	// Per-step widgets, rebuilt on every step change
	step     flow.Step
	cursor   int               // Selected row in list steps
	column   int               // Focused list on the type step
	inputs   []textinput.Model // Text fields of the current step
	focus    int               // Focused input
	adding   bool              // Photo path prompt is open
	viewport viewport.Model    // Review sheet

	notice     string // One-line feedback under the step
	noticeErr  bool
	submitting bool
	result     *submit.Result
	hookOutput string
	quitting   bool

	drops <-chan []string
}

// NewShell creates the shell for s.
func NewShell(ctx context.Context, s *wizard.Session, reviewTemplate string, opts ...Option) *Shell {
	m := &Shell{
		ctx:            ctx,
		session:        s,
		reviewTemplate: reviewTemplate,
		width:          80,
		height:         24,
	}
	for _, opt := range opts {
		opt(m)
	}
	w, h := m.contentSize()
	m.viewport = newReviewViewport(w, h)
	if s.Restored() {
		m.setNotice("Restored your unsaved draft", false)
	}
	m.enterStep()
	return m
}

// Run starts a standalone Bubbletea program for the session and returns the
// last submission result, if any.
func Run(ctx context.Context, s *wizard.Session, reviewTemplate string, opts ...Option) (*submit.Result, error) {
	m := NewShell(ctx, s, reviewTemplate, opts...)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}
	shell, ok := finalModel.(*Shell)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	return shell.result, nil
}

// Init initializes the shell.
func (m *Shell) Init() tea.Cmd {
	if m.drops != nil {
		return tea.Batch(textinput.Blink, m.waitForDrop())
	}
	return textinput.Blink
}

// waitForDrop blocks until the drop folder delivers the next batch.
func (m *Shell) waitForDrop() tea.Cmd {
	drops := m.drops
	return func() tea.Msg {
		paths, ok := <-drops
		if !ok {
			return nil
		}
		return photosDroppedMsg{Paths: paths}
	}
}

// Update handles messages.
func (m *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case submitDoneMsg:
		m.submitting = false
		if msg.Err != nil {
			m.setNotice(DescribeSubmitError(msg.Err), true)
			m.hookOutput = m.session.HookOutput()
			return m, nil
		}
		m.result = msg.Result
		m.hookOutput = m.session.HookOutput()
		m.enterStep()
		return m, nil

	case descriptionEditedMsg:
		if msg.Err != nil {
			m.setNotice("Editor failed: "+msg.Err.Error(), true)
			return m, nil
		}
		m.apply(m.session.SetDescription(m.ctx, strings.TrimSpace(msg.Text)))
		return m, nil

	case photosDroppedMsg:
		m.addPhotoFiles(msg.Paths)
		return m, m.waitForDrop()

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	return m, m.updateInputs(msg)
}

func (m *Shell) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.submitting {
		return m, nil
	}

	// After a submission the shell only offers a fresh start
	if m.result != nil {
		switch key {
		case "n":
			m.result = nil
			m.hookOutput = ""
			m.notice = ""
			m.enterStep()
		case "q", "esc", "enter":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	if key == "esc" {
		if m.adding {
			m.adding = false
			m.inputs = nil
			return m, nil
		}
		if m.session.CurrentStep() == m.session.Steps()[0] {
			m.quitting = true
			return m, tea.Quit
		}
		m.commitInputs()
		m.session.GoBack(m.ctx)
		m.enterStep()
		return m, nil
	}

	return m, m.updateStep(msg)
}

// next commits the step and advances.
func (m *Shell) next() {
	if !m.commitInputs() {
		return
	}
	err := m.session.GoNext(m.ctx)
	var blocked *wizard.BlockedError
	if errors.As(err, &blocked) {
		m.setNotice(blocked.Error(), true)
		return
	}
	if err != nil {
		m.setNotice(err.Error(), true)
		return
	}
	m.notice = ""
	m.enterStep()
}

func (m *Shell) submit() tea.Cmd {
	m.submitting = true
	m.setNotice("Submitting…", false)
	return func() tea.Msg {
		res, err := m.session.Submit(m.ctx)
		return submitDoneMsg{Result: res, Err: err}
	}
}

// apply reports an error from a session call.
func (m *Shell) apply(err error) bool {
	if err != nil {
		logger.Debug("Wizard action rejected: %v", err)
		m.setNotice(err.Error(), true)
		return false
	}
	return true
}

func (m *Shell) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// updateInputs forwards msg to the focused text input.
func (m *Shell) updateInputs(msg tea.Msg) tea.Cmd {
	if m.focus < 0 || m.focus >= len(m.inputs) {
		return nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

func (m *Shell) focusInput(i int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	m.focus = (i + len(m.inputs)) % len(m.inputs)
	var cmd tea.Cmd
	for k := range m.inputs {
		if k == m.focus {
			cmd = m.inputs[k].Focus()
		} else {
			m.inputs[k].Blur()
		}
	}
	return cmd
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.SetValue(value)
	ti.SetWidth(modalContentWidth - 14)
	return ti
}

func (m *Shell) resize() {
	w, h := m.contentSize()
	m.viewport.SetWidth(w)
	m.viewport.SetHeight(h)
	if m.step == flow.StepReview {
		m.loadReview()
	}
}

// contentSize returns the space available inside the modal for step content.
func (m *Shell) contentSize() (int, int) {
	h := m.height - 14
	if h < 5 {
		h = 5
	}
	return modalContentWidth, h
}

// View renders the shell.
func (m *Shell) View() tea.View {
	var view tea.View
	view.AltScreen = true
	view.SetContent(m.render())
	return view
}

func (m *Shell) render() string {
	if m.quitting || m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	if m.result != nil {
		b.WriteString(m.renderResult())
	} else {
		b.WriteString(m.renderStep())
	}
	if m.notice != "" {
		b.WriteString("\n\n")
		if m.noticeErr {
			b.WriteString(styleError.Render(m.notice))
		} else {
			b.WriteString(styleMuted.Render(m.notice))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderHints())

	modal := styleModal.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

// renderHeader shows the step title and the progress through the flow.
func (m *Shell) renderHeader() string {
	mode := "New listing"
	if m.session.Editing() {
		mode = "Editing " + m.session.Draft().RecordID
	}
	title := styleTitle.Render(mode + " · " + m.step.Title())

	steps := m.session.Steps()
	current := flow.IndexOf(m.session.Draft().Flow, m.step)
	var dots []string
	for i := range steps {
		switch {
		case i < current:
			dots = append(dots, styleProgressDone.Render("●"))
		case i == current:
			dots = append(dots, styleProgressNow.Render("●"))
		default:
			dots = append(dots, styleProgressTodo.Render("○"))
		}
	}
	progress := fmt.Sprintf("%s  %s", strings.Join(dots, " "), styleMuted.Render(fmt.Sprintf("%d/%d", current+1, len(steps))))
	return title + "\n" + progress
}

func (m *Shell) renderResult() string {
	var b strings.Builder
	res := m.result
	if res.Created {
		b.WriteString(styleSuccess.Render("✓ Listing " + res.RecordID + " created"))
	} else {
		b.WriteString(styleSuccess.Render("✓ Listing " + res.RecordID + " updated"))
	}
	b.WriteString("\n")
	if res.Created && !res.Published {
		b.WriteString(styleWarning.Render("The listing was saved but not published yet."))
		b.WriteString("\n")
	}
	b.WriteString(styleMuted.Render(fmt.Sprintf("%d uploaded · %d deleted · %d reordered", res.Uploaded, res.Deleted, res.Reordered)))
	if res.Degraded() {
		b.WriteString("\n\n")
		b.WriteString(styleWarning.Render("Some photo operations failed:"))
		for _, w := range res.Warnings {
			b.WriteString("\n  • " + w.String())
		}
	}
	if m.hookOutput != "" {
		b.WriteString("\n\n")
		b.WriteString(styleMuted.Render(strings.TrimSpace(m.hookOutput)))
	}
	return b.String()
}

func (m *Shell) renderHints() string {
	if m.submitting {
		return renderHintBar("ctrl+c", "quit")
	}
	if m.result != nil {
		return renderHintBar("n", "new listing", "q", "quit")
	}
	return m.stepHints()
}

// DescribeSubmitError turns the submission error taxonomy into a message.
func DescribeSubmitError(err error) string {
	var verr *submit.ValidationError
	var perr *submit.PreconditionError
	var ferr *submit.FatalError
	switch {
	case errors.As(err, &verr):
		return "Not ready yet: " + err.Error()
	case errors.As(err, &perr):
		if errors.Is(err, submit.ErrLimitReached) {
			return "Your plan does not allow more listings. Upgrade to publish this one."
		}
		return err.Error()
	case errors.As(err, &ferr):
		return "Saving failed: " + ferr.Error() + ". Your draft is kept, try again."
	default:
		return err.Error()
	}
}
