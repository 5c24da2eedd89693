package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/digitalbuho/buho/internal/admin"
	"github.com/digitalbuho/buho/internal/models"
	"github.com/digitalbuho/buho/internal/ui/keys"
	"github.com/digitalbuho/buho/internal/ui/styles"
)

// ProjectDetailView shows a project with its tasks as a checklist
type ProjectDetailView struct {
	ctx      context.Context
	api      API
	id       int64
	back     Screen
	detail   admin.ProjectDetail
	loaded   bool
	err      string
	cursor   int
	scrollY  int
	bar      progress.Model
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	inFlight bool
}

type detailLoadedMsg struct {
	detail admin.ProjectDetail
}

type taskToggledMsg struct {
	detail admin.ProjectDetail
	err    error
}

// NewProjectDetailView opens project id; esc returns to back
func NewProjectDetailView(ctx context.Context, api API, id int64, back Screen) *ProjectDetailView {
	return &ProjectDetailView{
		ctx:    ctx,
		api:    api,
		id:     id,
		back:   back,
		bar:    progress.New(progress.WithDefaultGradient()),
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
	}
}

func (v *ProjectDetailView) Init() tea.Cmd {
	return v.load
}

func (v *ProjectDetailView) load() tea.Msg {
	detail, err := admin.LoadProjectDetail(v.ctx, v.api, v.id)
	if err != nil {
		return errMsg{err}
	}
	return detailLoadedMsg{detail: detail}
}

// toggle applies the change locally right away and sends it in the background
func (v *ProjectDetailView) toggle() tea.Cmd {
	if len(v.detail.Tasks) == 0 || v.inFlight {
		return nil
	}
	before := v.detail
	taskID := before.Tasks[v.cursor].ID

	project, tasks, _, _, err := models.ToggleTask(before.Project, before.Tasks, taskID)
	if err != nil {
		v.err = err.Error()
		return nil
	}
	v.detail = admin.ProjectDetail{Project: project, Tasks: tasks}
	v.inFlight = true

	return func() tea.Msg {
		detail, err := admin.ToggleTask(v.ctx, v.api, before, taskID)
		return taskToggledMsg{detail: detail, err: err}
	}
}

func (v *ProjectDetailView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.bar.Width = clamp(styles.ContentWidth(msg.Width)-10, 10, 60)
		return v, nil

	case detailLoadedMsg:
		v.detail = msg.detail
		v.loaded = true
		v.inFlight = false
		v.cursor = clamp(v.cursor, 0, max(0, len(v.detail.Tasks)-1))
		return v, nil

	case taskToggledMsg:
		v.inFlight = false
		if msg.err != nil {
			// the server disagrees with the optimistic state; show what it has
			v.err = "No se pudo actualizar la tarea: " + errorText(msg.err)
			return v, v.load
		}
		v.err = ""
		v.detail = msg.detail
		return v, nil

	case errMsg:
		v.loaded = true
		v.inFlight = false
		v.err = errorText(msg.err)
		return v, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			back := v.back
			return v, func() tea.Msg { return Navigate{To: back} }
		case key.Matches(msg, v.keys.Refresh):
			v.err = ""
			return v, v.load
		case key.Matches(msg, v.keys.Up):
			if v.cursor > 0 {
				v.cursor--
				v.ensureVisible()
			}
		case key.Matches(msg, v.keys.Down):
			if v.cursor < len(v.detail.Tasks)-1 {
				v.cursor++
				v.ensureVisible()
			}
		case key.Matches(msg, v.keys.Toggle), key.Matches(msg, v.keys.Enter):
			return v, v.toggle()
		}
	}
	return v, nil
}

func (v *ProjectDetailView) visibleItems() int {
	return max((v.height-16)/2, 1)
}

func (v *ProjectDetailView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

func (v *ProjectDetailView) View() string {
	s := v.styles
	if !v.loaded {
		return s.TitleMuted.Render("Cargando...")
	}
	p := v.detail.Project
	width := max(styles.ContentWidth(v.width)-4, 20)

	devs := make([]string, len(p.Developers))
	for i, d := range p.Developers {
		devs[i] = d.Email
	}
	if len(devs) == 0 {
		devs = []string{"ninguno"}
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(p.Title)+"  "+s.StatusBadge(p.Status)+" "+s.PriorityBadge(p.Priority),
		s.TitleMuted.Width(width).Render(p.Description),
		fmt.Sprintf("Responsable: %s   Fecha límite: %s", p.ResponsibleEmail(), p.DueDate.Display()),
		"Desarrolladores: "+strings.Join(devs, ", "),
		"",
		v.bar.ViewAs(float64(p.Progress)/100)+fmt.Sprintf("  %d%%", p.Progress),
	)

	rows := []string{header, ""}
	if len(v.detail.Tasks) == 0 {
		rows = append(rows, s.TitleMuted.Render("Este proyecto no tiene tareas."))
	}
	end := min(v.scrollY+v.visibleItems(), len(v.detail.Tasks))
	for i := v.scrollY; i < end; i++ {
		rows = append(rows, v.renderTask(v.detail.Tasks[i], i == v.cursor, width))
	}

	if v.err != "" {
		rows = append(rows, "", s.Error.Width(width).Render(v.err))
	}
	rows = append(rows, "", s.Help.Render(fmt.Sprintf("%s completar • %s recargar • %s volver • %s salir",
		s.HelpKey.Render("espacio"),
		s.HelpKey.Render("r"),
		s.HelpKey.Render("esc"),
		s.HelpKey.Render("q"),
	)))
	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, rows...), v.width, v.height)
}

func (v *ProjectDetailView) renderTask(t models.Task, selected bool, width int) string {
	s := v.styles
	box, title := "[ ]", s.TaskTitle.Render(t.Title)
	if t.IsCompleted() {
		box, title = "[x]", s.TaskDone.Render(t.Title)
	}
	line := fmt.Sprintf("%s %s  %s %s", box, title, s.TaskStatusBadge(t.Status), s.PriorityBadge(t.Priority))
	sub := fmt.Sprintf("    %s · %s", t.AssigneeName(), t.DueDate.Display())

	st := s.ListItem
	if selected {
		st = s.ListSelected
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		st.Width(width).Render(line),
		st.Width(width).Foreground(styles.Current.ForegroundDim).Render(sub),
	)
}
