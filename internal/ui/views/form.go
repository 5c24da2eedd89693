package views

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/digitalbuho/buho/internal/ui/keys"
	"github.com/digitalbuho/buho/internal/ui/styles"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindArea
	kindChoice
	kindMulti
)

type formField struct {
	label  string
	kind   fieldKind
	input  textinput.Model
	area   textarea.Model
	choice choice
	multi  multiChoice
}

func textField(label, placeholder string, limit int) *formField {
	return &formField{label: label, kind: kindText, input: newInput(placeholder, limit)}
}

func passwordField(label string) *formField {
	f := textField(label, "••••••", 128)
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

func areaField(label, placeholder string) *formField {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	return &formField{label: label, kind: kindArea, area: ta}
}

func choiceField(label string, labels []string, index int) *formField {
	return &formField{label: label, kind: kindChoice, choice: choice{labels: labels, index: index}}
}

func multiField(label string, labels []string, selected map[int]bool) *formField {
	return &formField{label: label, kind: kindMulti, multi: multiChoice{labels: labels, selected: selected}}
}

// form is a vertical stack of fields submitted with ctrl+s or enter on the last field
type form struct {
	title  string
	fields []*formField
	focus  int
	err    string
	busy   bool
}

func (f *form) value(i int) string {
	switch fld := f.fields[i]; fld.kind {
	case kindArea:
		return fld.area.Value()
	default:
		return fld.input.Value()
	}
}

func (f *form) setValue(i int, v string) {
	switch fld := f.fields[i]; fld.kind {
	case kindArea:
		fld.area.SetValue(v)
	case kindText:
		fld.input.SetValue(v)
	}
}

func (f *form) choiceIndex(i int) int { return f.fields[i].choice.index }

func (f *form) selected(i int) []int {
	var out []int
	m := f.fields[i].multi
	for idx := range m.labels {
		if m.selected[idx] {
			out = append(out, idx)
		}
	}
	return out
}

func (f *form) setFocus(i int) tea.Cmd {
	f.focus = clamp(i, 0, len(f.fields)-1)
	var cmd tea.Cmd
	for idx, fld := range f.fields {
		fld.input.Blur()
		fld.area.Blur()
		if idx != f.focus {
			continue
		}
		switch fld.kind {
		case kindText:
			cmd = fld.input.Focus()
		case kindArea:
			cmd = fld.area.Focus()
		}
	}
	return cmd
}

func (f *form) setWidth(width int) {
	for _, fld := range f.fields {
		if fld.kind == kindArea {
			fld.area.SetWidth(width)
		}
	}
}

// formResult tells the owning view what the key did
type formResult int

const (
	formContinue formResult = iota
	formSubmit
	formCancel
)

func (f *form) update(msg tea.KeyMsg, km keys.KeyMap) (formResult, tea.Cmd) {
	if f.busy {
		return formContinue, nil
	}
	fld := f.fields[f.focus]
	last := f.focus == len(f.fields)-1

	switch {
	case key.Matches(msg, km.Back):
		return formCancel, nil
	case key.Matches(msg, km.Save):
		return formSubmit, nil
	case key.Matches(msg, km.BackTab):
		return formContinue, f.setFocus((f.focus - 1 + len(f.fields)) % len(f.fields))
	case key.Matches(msg, km.Tab):
		return formContinue, f.setFocus((f.focus + 1) % len(f.fields))
	case key.Matches(msg, km.Enter) && fld.kind != kindArea:
		if last {
			return formSubmit, nil
		}
		return formContinue, f.setFocus(f.focus + 1)
	}

	var cmd tea.Cmd
	switch fld.kind {
	case kindText:
		fld.input, cmd = fld.input.Update(msg)
	case kindArea:
		fld.area, cmd = fld.area.Update(msg)
	case kindChoice:
		switch {
		case key.Matches(msg, km.Left):
			fld.choice.next(-1)
		case key.Matches(msg, km.Right), key.Matches(msg, km.Toggle):
			fld.choice.next(1)
		}
	case kindMulti:
		switch {
		case key.Matches(msg, km.Left):
			fld.multi.move(-1)
		case key.Matches(msg, km.Right):
			fld.multi.move(1)
		case key.Matches(msg, km.Toggle):
			fld.multi.toggle()
		}
	}
	return formContinue, cmd
}

func (f *form) view(s *styles.Styles, width, height int) string {
	inputWidth := clamp(styles.ContentWidth(width)-6, 20, 60)

	rows := []string{s.Title.Render(f.title), ""}
	for i, fld := range f.fields {
		var value string
		switch fld.kind {
		case kindText:
			value = fld.input.View()
		case kindArea:
			value = fld.area.View()
		case kindChoice:
			value = fld.choice.view()
		case kindMulti:
			value = fld.multi.view()
		}
		rows = append(rows, field(s, fld.label, value, i == f.focus, inputWidth))
	}
	rows = append(rows, "")
	switch {
	case f.busy:
		rows = append(rows, s.TitleMuted.Render("Guardando..."))
	case f.err != "":
		rows = append(rows, s.Error.Width(inputWidth).Render(f.err))
	}
	rows = append(rows, s.TitleMuted.Render("Tab: siguiente • ←/→: opción • espacio: marcar • Ctrl+S: guardar • Esc: cancelar"))

	return place(lipgloss.JoinVertical(lipgloss.Left, rows...), width, height)
}
