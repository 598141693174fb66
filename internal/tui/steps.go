package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/photo"
	"github.com/rentloop/listr/internal/photowatch"
	"github.com/rentloop/listr/internal/template"
	"github.com/rentloop/listr/internal/validate"
)

// Field order of the text inputs on the location and price steps.
const (
	fieldCity = iota
	fieldDistrict
	fieldStreet
	fieldBuilding
)

const (
	fieldPrice = iota
	fieldDeposit
	fieldCommission
)

// enterStep rebuilds the widgets for the session's current step.
func (m *Shell) enterStep() {
	d := m.session.Draft()
	m.step = d.Step()
	m.cursor = 0
	m.column = 0
	m.inputs = nil
	m.focus = 0
	m.adding = false

	switch m.step {
	case flow.StepMode:
		for i, f := range flow.CreateFlows {
			if f == d.Flow {
				m.cursor = i
			}
		}
	case flow.StepType:
		for i, t := range draft.PropertyTypes {
			if t == d.PropertyType {
				m.cursor = i
			}
		}
	case flow.StepLocation:
		m.inputs = []textinput.Model{
			newInput("Lisbon", d.Location.City),
			newInput("optional", d.Location.District),
			newInput("optional", d.Location.Street),
			newInput("optional", d.Location.Building),
		}
	case flow.StepDescription:
		m.inputs = []textinput.Model{newInput("e.g. Bright two-bedroom near the river", d.Title)}
	case flow.StepPrice:
		m.inputs = []textinput.Model{
			newInput("monthly or nightly price", formatAmount(d.Pricing.Price)),
			newInput("0", formatAmount(d.Pricing.Deposit)),
			newInput("0-100", formatAmount(d.Pricing.Commission)),
		}
	case flow.StepReview:
		w, h := m.contentSize()
		m.viewport = newReviewViewport(w, h)
		m.loadReview()
	}
	m.focusInput(0)
}

// commitInputs writes the text fields of the current step to the session.
// It returns false when a value was rejected.
func (m *Shell) commitInputs() bool {
	if len(m.inputs) == 0 || m.adding {
		return true
	}
	d := m.session.Draft()
	switch m.step {
	case flow.StepLocation:
		loc := d.Location
		loc.City = m.inputs[fieldCity].Value()
		loc.District = m.inputs[fieldDistrict].Value()
		loc.Street = m.inputs[fieldStreet].Value()
		loc.Building = m.inputs[fieldBuilding].Value()
		return m.apply(m.session.SetLocation(m.ctx, loc))
	case flow.StepDescription:
		return m.apply(m.session.SetTitle(m.ctx, strings.TrimSpace(m.inputs[0].Value())))
	case flow.StepPrice:
		p := d.Pricing
		var err error
		if p.Price, err = parseAmount(m.inputs[fieldPrice].Value()); err != nil {
			return m.apply(fmt.Errorf("price: %w", err))
		}
		if p.Deposit, err = parseAmount(m.inputs[fieldDeposit].Value()); err != nil {
			return m.apply(fmt.Errorf("deposit: %w", err))
		}
		if p.Commission, err = parseAmount(m.inputs[fieldCommission].Value()); err != nil {
			return m.apply(fmt.Errorf("commission: %w", err))
		}
		return m.apply(m.session.SetPricing(m.ctx, p))
	}
	return true
}

// updateStep handles a key press on the current step.
func (m *Shell) updateStep(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()

	if m.adding {
		switch key {
		case "enter":
			m.addPhotos(m.inputs[0].Value())
			m.adding = false
			m.inputs = nil
			return nil
		}
		return m.updateInputs(msg)
	}

	switch m.step {
	case flow.StepMode:
		return m.updateMode(key)
	case flow.StepType:
		return m.updateType(key)
	case flow.StepPhotos:
		return m.updatePhotos(key)
	case flow.StepAmenities:
		return m.updateAmenities(key)
	case flow.StepReview:
		if key == "enter" {
			m.next()
			return nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	case flow.StepPublish:
		if key == "enter" {
			return m.submit()
		}
		return nil
	}

	// Text entry steps
	switch key {
	case "enter":
		m.next()
		return nil
	case "tab", "down":
		return m.focusInput(m.focus + 1)
	case "shift+tab", "up":
		return m.focusInput(m.focus - 1)
	case "ctrl+e":
		if m.step == flow.StepDescription {
			m.commitInputs()
			return editDescription(m.session.Draft().Description)
		}
	case "ctrl+u":
		if m.step == flow.StepPrice {
			m.cycleUtilities()
			return nil
		}
	}
	return m.updateInputs(msg)
}

func (m *Shell) updateMode(key string) tea.Cmd {
	switch key {
	case "up", "k":
		m.cursor = clampIndex(m.cursor-1, len(flow.CreateFlows))
	case "down", "j":
		m.cursor = clampIndex(m.cursor+1, len(flow.CreateFlows))
	case "enter":
		if m.apply(m.session.ChooseFlow(m.ctx, flow.CreateFlows[m.cursor])) {
			m.next()
		}
	}
	return nil
}

func (m *Shell) updateType(key string) tea.Cmd {
	d := m.session.Draft()
	switch key {
	case "tab", "left", "right", "h", "l":
		m.column = 1 - m.column
		m.cursor = 0
		if m.column == 1 {
			for i, r := range draft.RentModes {
				if r == d.RentMode {
					m.cursor = i
				}
			}
		}
	case "up", "k":
		m.cursor = clampIndex(m.cursor-1, m.typeRows())
	case "down", "j":
		m.cursor = clampIndex(m.cursor+1, m.typeRows())
	case "space", " ":
		m.selectType()
	case "enter":
		m.selectType()
		m.next()
	}
	return nil
}

func (m *Shell) typeRows() int {
	if m.column == 1 {
		return len(draft.RentModes)
	}
	return len(draft.PropertyTypes)
}

func (m *Shell) selectType() {
	if m.column == 1 {
		m.apply(m.session.SetRentMode(m.ctx, draft.RentModes[m.cursor]))
		return
	}
	m.apply(m.session.SetPropertyType(m.ctx, draft.PropertyTypes[m.cursor]))
}

func (m *Shell) updatePhotos(key string) tea.Cmd {
	d := m.session.Draft()
	n := len(d.Photos)
	var selected string
	if m.cursor < n {
		selected = d.Photos[m.cursor].ID
	}

	switch key {
	case "up", "k":
		m.cursor = clampIndex(m.cursor-1, n)
	case "down", "j":
		m.cursor = clampIndex(m.cursor+1, n)
	case "a":
		if photo.Remaining(d.Photos) == 0 {
			m.setNotice(fmt.Sprintf("A listing can have at most %d photos", photo.MaxPhotos), true)
			return nil
		}
		m.adding = true
		m.inputs = []textinput.Model{newInput("paths separated by commas", "")}
		return m.focusInput(0)
	case "d", "x":
		if selected != "" && m.apply(m.session.RemovePhoto(m.ctx, selected)) {
			m.cursor = clampIndex(m.cursor, n-1)
		}
	case "c":
		if selected != "" {
			m.apply(m.session.SetCover(m.ctx, selected))
		}
	case "t":
		if selected != "" {
			m.apply(m.session.SetTag(m.ctx, selected, nextTag(d.Photos[m.cursor].Tag)))
		}
	case "K", "shift+up":
		if m.cursor > 0 && m.apply(m.session.MovePhoto(m.ctx, m.cursor, m.cursor-1)) {
			m.cursor--
		}
	case "J", "shift+down":
		if m.cursor < n-1 && m.apply(m.session.MovePhoto(m.ctx, m.cursor, m.cursor+1)) {
			m.cursor++
		}
	case "u":
		if len(d.PendingDeletion) > 0 {
			last := d.PendingDeletion[len(d.PendingDeletion)-1]
			m.apply(m.session.RestorePhoto(m.ctx, last.ID))
		}
	case "enter":
		m.next()
	}
	return nil
}

// addPhotos reads the listed files and attaches them.
func (m *Shell) addPhotos(input string) {
	var paths []string
	for _, p := range strings.Split(input, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	m.addPhotoFiles(paths)
}

func (m *Shell) addPhotoFiles(paths []string) {
	files, err := photowatch.ReadFiles(paths)
	if err != nil {
		m.setNotice(err.Error(), true)
		return
	}
	accepted, err := m.session.AddPhotos(m.ctx, files)
	if !m.apply(err) {
		return
	}
	if accepted < len(files) {
		m.setNotice(fmt.Sprintf("Added %d of %d photos, the limit is %d", accepted, len(files), photo.MaxPhotos), true)
		return
	}
	m.setNotice(fmt.Sprintf("Added %d photos", accepted), false)
}

func (m *Shell) updateAmenities(key string) tea.Cmd {
	switch key {
	case "up", "k":
		m.cursor = clampIndex(m.cursor-1, len(draft.Amenities))
	case "down", "j":
		m.cursor = clampIndex(m.cursor+1, len(draft.Amenities))
	case "space", " ", "x":
		m.apply(m.session.ToggleAmenity(m.ctx, draft.Amenities[m.cursor]))
	case "enter":
		m.next()
	}
	return nil
}

func (m *Shell) cycleUtilities() {
	if !m.commitInputs() {
		return
	}
	p := m.session.Draft().Pricing
	p.Utilities = draft.UtilityOptions[0]
	for i, u := range draft.UtilityOptions {
		if u == m.session.Draft().Pricing.Utilities {
			p.Utilities = draft.UtilityOptions[(i+1)%len(draft.UtilityOptions)]
		}
	}
	m.apply(m.session.SetPricing(m.ctx, p))
}

func (m *Shell) loadReview() {
	md, err := template.BuildReview(m.session.Draft(), m.reviewTemplate)
	if err != nil {
		m.setNotice(err.Error(), true)
		md = "Review template unavailable."
	}
	w, _ := m.contentSize()
	m.viewport.SetContent(template.RenderTerminal(md, w))
	m.viewport.GotoTop()
}

// renderStep renders the body of the current step.
func (m *Shell) renderStep() string {
	d := m.session.Draft()
	var b strings.Builder

	switch m.step {
	case flow.StepMode:
		b.WriteString(styleMuted.Render("How do you want to build this listing?"))
		b.WriteString("\n\n")
		for i, f := range flow.CreateFlows {
			b.WriteString(renderOption(f.Description(), i == m.cursor, false, false))
			b.WriteString("\n")
		}

	case flow.StepType:
		left := []string{styleLabel.Render("Property")}
		for i, t := range draft.PropertyTypes {
			left = append(left, renderOption(label(string(t)), m.column == 0 && i == m.cursor, t == d.PropertyType, true))
		}
		right := []string{styleLabel.Render("Rent")}
		for i, r := range draft.RentModes {
			right = append(right, renderOption(label(string(r)), m.column == 1 && i == m.cursor, r == d.RentMode, true))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(30).Render(strings.Join(left, "\n")),
			strings.Join(right, "\n")))

	case flow.StepLocation:
		for i, name := range []string{"City", "District", "Street", "Building"} {
			b.WriteString(styleLabel.Render(name) + m.inputs[i].View() + "\n")
		}

	case flow.StepPhotos:
		b.WriteString(m.renderPhotos(d))

	case flow.StepDescription:
		b.WriteString(styleLabel.Render("Title") + m.inputs[0].View() + "\n\n")
		desc := strings.TrimSpace(d.Description)
		if desc == "" {
			desc = "No description yet."
		}
		b.WriteString(styleLabel.Render("Description"))
		b.WriteString(styleMuted.Render(truncate(desc, 200)))

	case flow.StepAmenities:
		selected := map[string]bool{}
		for _, a := range d.Amenities {
			selected[a] = true
		}
		for i, a := range draft.Amenities {
			b.WriteString(renderOption(label(a), i == m.cursor, selected[a], true))
			b.WriteString("\n")
		}

	case flow.StepPrice:
		for i, name := range []string{"Price", "Deposit", "Commission"} {
			b.WriteString(styleLabel.Render(name) + m.inputs[i].View() + "\n")
		}
		utilities := string(d.Pricing.Utilities)
		if utilities == "" {
			utilities = "not set"
		}
		b.WriteString(styleLabel.Render("Utilities") + styleItem.Render(utilities))

	case flow.StepReview:
		b.WriteString(m.viewport.View())

	case flow.StepPublish:
		if d.Editing() {
			b.WriteString("Press enter to save your changes to " + d.RecordID + ".")
		} else {
			b.WriteString("Press enter to create and publish the listing.")
		}
		if n := len(d.PendingDeletion); n > 0 {
			b.WriteString("\n" + styleWarning.Render(fmt.Sprintf("%d photos will be deleted.", n)))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m *Shell) renderPhotos(d draft.Draft) string {
	var b strings.Builder
	b.WriteString(styleMuted.Render(fmt.Sprintf("%d of %d photos", len(d.Photos), photo.MaxPhotos)))
	b.WriteString("\n\n")
	if len(d.Photos) == 0 {
		b.WriteString(styleMuted.Render("No photos yet. Press a to add some."))
	}
	for i, p := range d.Photos {
		name := p.Filename
		if name == "" {
			name = filepath.Base(p.URL)
		}
		line := fmt.Sprintf("%2d. %-28s %-12s", i+1, truncate(name, 28), p.Tag)
		if p.Cover {
			line += " ★ cover"
		}
		if p.IsNew() {
			line += " (new)"
		}
		b.WriteString(renderOption(line, i == m.cursor, false, false))
		b.WriteString("\n")
	}
	if n := len(d.PendingDeletion); n > 0 {
		b.WriteString("\n" + styleWarning.Render(fmt.Sprintf("%d removed, press u to restore the last one", n)))
	}
	if m.adding {
		b.WriteString("\n\n" + styleLabel.Render("Add") + m.inputs[0].View())
	}
	return b.String()
}

func (m *Shell) stepHints() string {
	switch {
	case m.adding:
		return renderHintBar("enter", "add", "esc", "cancel")
	case m.step == flow.StepMode:
		return renderHintBar("↑↓", "choose", "enter", "next", "esc", "quit")
	case m.step == flow.StepType:
		return renderHintBar("↑↓", "choose", "tab", "switch list", "space", "select", "enter", "next", "esc", "back")
	case m.step == flow.StepPhotos:
		return renderHintBar("a", "add", "d", "remove", "c", "cover", "t", "tag", "J/K", "move", "enter", "next", "esc", "back")
	case m.step == flow.StepDescription:
		return renderHintBar("ctrl+e", "edit description", "enter", "next", "esc", "back")
	case m.step == flow.StepAmenities:
		return renderHintBar("↑↓", "move", "space", "toggle", "enter", "next", "esc", "back")
	case m.step == flow.StepPrice:
		return renderHintBar("tab", "field", "ctrl+u", "utilities", "enter", "next", "esc", "back")
	case m.step == flow.StepReview:
		return renderHintBar("↑↓", "scroll", "enter", "next", "esc", "back")
	case m.step == flow.StepPublish:
		return renderHintBar("enter", "submit", "esc", "back")
	default:
		return renderHintBar("tab", "field", "enter", "next", "esc", "back")
	}
}

func nextTag(t photo.Tag) photo.Tag {
	for i, tag := range photo.Tags {
		if tag == t {
			return photo.Tags[(i+1)%len(photo.Tags)]
		}
	}
	return photo.Tags[0]
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !validate.Finite(v) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

func formatAmount(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// label turns an identifier such as pets_allowed into "Pets allowed".
func label(id string) string {
	if id == "" {
		return id
	}
	s := strings.ReplaceAll(id, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newReviewViewport(w, h int) viewport.Model {
	return viewport.New(viewport.WithWidth(w), viewport.WithHeight(h))
}
