package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/digitalbuho/buho/internal/admin"
	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/models"
	"github.com/digitalbuho/buho/internal/ui/keys"
	"github.com/digitalbuho/buho/internal/ui/styles"
)

// FocusArea represents which part of the UI has focus
type FocusArea int

const (
	FocusTaskList FocusArea = iota
	FocusSearchInput
)

// Task form field positions
const (
	tfTitle = iota
	tfDescription
	tfPriority
	tfStatus
	tfDueDate
	tfProject
	tfAssignee
)

// Filter form field positions
const (
	ffProject = iota
	ffStatus
	ffPriority
)

// TaskListView lists every visible task with search, filters and a CRUD form
type TaskListView struct {
	ctx    context.Context
	api    API
	claims *auth.Claims
	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int
	loaded bool
	err    string

	tasks    []models.Task
	visible  []models.Task
	projects []models.Project
	users    []models.User

	focus       FocusArea
	searchInput textinput.Model
	filter      admin.TaskFilter
	filterForm  *form

	cursor  int
	scrollY int

	form      *form
	editingID int64

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	showHelpPopup bool
}

type tasksLoadedMsg struct {
	tasks    []models.Task
	projects []models.Project
	users    []models.User
}

type taskSavedMsg struct{}

type taskDeletedMsg struct{}

func NewTaskListView(ctx context.Context, api API, claims *auth.Claims) *TaskListView {
	return &TaskListView{
		ctx:         ctx,
		api:         api,
		claims:      claims,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		focus:       FocusTaskList,
		searchInput: newInput("Buscar...", 100),
		filter:      admin.TaskFilter{Status: admin.All, Priority: admin.All},
	}
}

func (v *TaskListView) Init() tea.Cmd {
	return v.loadTasks
}

func (v *TaskListView) loadTasks() tea.Msg {
	tasks, err := v.api.ListTasks(v.ctx, nil)
	if err != nil {
		return errMsg{err}
	}
	projects, err := v.api.ListProjects(v.ctx)
	if err != nil {
		return errMsg{err}
	}
	return tasksLoadedMsg{tasks: tasks, projects: projects, users: knownUsers(v.ctx, v.api, v.claims)}
}

func (v *TaskListView) applyFilter() {
	v.filter.Search = v.searchInput.Value()
	v.visible = admin.FilterTasks(v.tasks, v.filter)
	v.cursor = clamp(v.cursor, 0, max(0, len(v.visible)-1))
	v.ensureVisible()
}

func (v *TaskListView) projectTitle(id int64) string {
	for _, p := range v.projects {
		if p.ID == id {
			return p.Title
		}
	}
	return "Sin proyecto"
}

func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		if v.form != nil {
			v.form.setWidth(clamp(styles.ContentWidth(v.width)-10, 20, 56))
		}
		return v, nil

	case tasksLoadedMsg:
		v.tasks = msg.tasks
		v.projects = msg.projects
		v.users = msg.users
		v.loaded = true
		v.err = ""
		v.applyFilter()
		return v, nil

	case taskSavedMsg:
		v.form = nil
		return v, v.loadTasks

	case taskDeletedMsg:
		return v, v.loadTasks

	case errMsg:
		v.loaded = true
		if v.form != nil {
			v.form.busy = false
			v.form.err = errorText(msg.err)
			return v, nil
		}
		v.err = errorText(msg.err)
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		if v.form != nil {
			return v.updateEditing(msg)
		}
		if v.filterForm != nil {
			return v.updateFilter(msg)
		}
		return v.updateNormal(msg)
	}
	return v, nil
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Don't process hotkeys while typing a search
	if v.focus == FocusSearchInput {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.searchInput.SetValue("")
			fallthrough
		case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Tab):
			v.searchInput.Blur()
			v.focus = FocusTaskList
			v.applyFilter()
			return v, nil
		default:
			var cmd tea.Cmd
			v.searchInput, cmd = v.searchInput.Update(msg)
			v.applyFilter()
			return v, cmd
		}
	}

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		to := ScreenHome
		if admin.CanAdminister(v.claims) {
			to = ScreenDashboard
		}
		return v, func() tea.Msg { return Navigate{To: to} }

	case key.Matches(msg, v.keys.Search), key.Matches(msg, v.keys.Tab):
		v.focus = FocusSearchInput
		return v, v.searchInput.Focus()

	case key.Matches(msg, v.keys.Filter):
		return v, v.startFilter()

	case key.Matches(msg, v.keys.Refresh):
		return v, v.loadTasks

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.visible)-1 {
			v.cursor++
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.Enter):
		if len(v.visible) > 0 && v.visible[v.cursor].Project.Valid() {
			id := v.visible[v.cursor].Project.ID()
			return v, func() tea.Msg { return Navigate{To: ScreenProjectDetail, ProjectID: id} }
		}

	case key.Matches(msg, v.keys.New):
		return v, v.startForm(nil)

	case key.Matches(msg, v.keys.Edit):
		if len(v.visible) > 0 {
			t := v.visible[v.cursor]
			return v, v.startForm(&t)
		}

	case key.Matches(msg, v.keys.Delete):
		if len(v.visible) > 0 {
			v.confirmingDelete = true
			v.deleteTargetID = v.visible[v.cursor].ID
			v.deleteTargetName = v.visible[v.cursor].Title
		}
	}
	return v, nil
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.confirmingDelete = false
	if !isYes(msg) {
		return v, nil
	}
	id := v.deleteTargetID
	return v, func() tea.Msg {
		if err := v.api.DeleteTask(v.ctx, id); err != nil {
			return errMsg{err}
		}
		return taskDeletedMsg{}
	}
}

func (v *TaskListView) startFilter() tea.Cmd {
	projectLabels := []string{"Todos"}
	projectIdx := 0
	for i, p := range v.projects {
		projectLabels = append(projectLabels, p.Title)
		if p.ID == v.filter.ProjectID {
			projectIdx = i + 1
		}
	}
	statusIdx, prioIdx := 0, 0
	if s, ok := models.ParseStatus(v.filter.Status); ok {
		statusIdx = statusIndex(s) + 1
	}
	if p, ok := models.ParsePriority(v.filter.Priority); ok {
		prioIdx = priorityIndex(p) + 1
	}

	v.filterForm = &form{
		title: "Filtrar tareas",
		fields: []*formField{
			ffProject:  choiceField("Proyecto", projectLabels, projectIdx),
			ffStatus:   choiceField("Estado", append([]string{"Todos"}, statusChoices(true)...), statusIdx),
			ffPriority: choiceField("Prioridad", append([]string{"Todas"}, priorityChoices...), prioIdx),
		},
	}
	return v.filterForm.setFocus(0)
}

func (v *TaskListView) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	res, cmd := v.filterForm.update(msg, v.keys)
	switch res {
	case formCancel:
		v.filterForm = nil
	case formSubmit:
		f := v.filterForm
		v.filter.ProjectID = 0
		if i := f.choiceIndex(ffProject); i > 0 {
			v.filter.ProjectID = v.projects[i-1].ID
		}
		v.filter.Status = admin.All
		if i := f.choiceIndex(ffStatus); i > 0 {
			v.filter.Status = string(models.Statuses[i-1])
		}
		v.filter.Priority = admin.All
		if i := f.choiceIndex(ffPriority); i > 0 {
			v.filter.Priority = string(models.Priorities[i-1])
		}
		v.filterForm = nil
		v.cursor = 0
		v.scrollY = 0
		v.applyFilter()
	}
	return v, cmd
}

// startForm opens the create form, or the edit form when t is set
func (v *TaskListView) startForm(t *models.Task) tea.Cmd {
	projectLabels := make([]string, len(v.projects))
	projectIdx := 0
	for i, p := range v.projects {
		projectLabels[i] = p.Title
		if p.ID == v.filter.ProjectID {
			projectIdx = i
		}
	}
	userLabels := []string{"Sin asignar"}
	for _, u := range v.users {
		userLabels = append(userLabels, u.DisplayName())
	}

	f := &form{title: "Nueva tarea"}
	prio, status, assignee := priorityIndex(models.PriorityMedium), statusIndex(models.StatusPending), 0
	v.editingID = 0
	if t != nil {
		f.title = "Editar tarea"
		v.editingID = t.ID
		prio, status = priorityIndex(t.Priority), statusIndex(t.Status)
		for i, p := range v.projects {
			if p.ID == t.Project.ID() {
				projectIdx = i
			}
		}
		for i, u := range v.users {
			if t.Assignee != nil && u.ID == t.Assignee.ID {
				assignee = i + 1
			}
		}
	}

	f.fields = []*formField{
		tfTitle:       textField("Título", "Nombre de la tarea", 200),
		tfDescription: areaField("Descripción", "Opcional"),
		tfPriority:    choiceField("Prioridad", priorityChoices, prio),
		tfStatus:      choiceField("Estado", statusChoices(true), status),
		tfDueDate:     textField("Fecha límite", "AAAA-MM-DD", 10),
		tfProject:     choiceField("Proyecto", projectLabels, projectIdx),
		tfAssignee:    choiceField("Asignado a", userLabels, assignee),
	}
	if t != nil {
		f.setValue(tfTitle, t.Title)
		f.setValue(tfDescription, t.Description)
		f.setValue(tfDueDate, t.DueDate.String())
	}
	f.setWidth(clamp(styles.ContentWidth(v.width)-10, 20, 56))
	v.form = f
	return f.setFocus(0)
}

func (v *TaskListView) input() (models.TaskInput, error) {
	f := v.form
	due, err := models.ParseDate(f.value(tfDueDate))
	if err != nil {
		return models.TaskInput{}, admin.FormErrors{"fecha_limite": "Fecha inválida, usa AAAA-MM-DD"}
	}
	in := models.TaskInput{
		Title:       strings.TrimSpace(f.value(tfTitle)),
		Description: strings.TrimSpace(f.value(tfDescription)),
		Priority:    models.Priorities[f.choiceIndex(tfPriority)],
		Status:      models.Statuses[f.choiceIndex(tfStatus)],
		DueDate:     due,
	}
	if len(v.projects) > 0 {
		in.ProjectID = models.Ref(v.projects[f.choiceIndex(tfProject)].ID)
	}
	if i := f.choiceIndex(tfAssignee); i > 0 {
		in.AssigneeID = models.Ref(v.users[i-1].ID)
	}
	return in, admin.ValidateTaskForm(in)
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	res, cmd := v.form.update(msg, v.keys)
	switch res {
	case formCancel:
		v.form = nil
		return v, nil
	case formSubmit:
		in, err := v.input()
		if err != nil {
			v.form.err = err.Error()
			return v, nil
		}
		v.form.err = ""
		v.form.busy = true
		id := v.editingID
		return v, func() tea.Msg {
			var err error
			if id == 0 {
				_, err = v.api.CreateTask(v.ctx, in)
			} else {
				_, err = v.api.UpdateTask(v.ctx, id, in)
			}
			if err != nil {
				return errMsg{err}
			}
			return taskSavedMsg{}
		}
	}
	return v, cmd
}

func (v *TaskListView) visibleItems() int {
	return max((v.height-12)/3, 1)
}

func (v *TaskListView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.confirmingDelete {
		return confirmDialog(v.styles, "¿Eliminar tarea?", v.deleteTargetName, v.width, v.height)
	}
	if v.form != nil {
		return v.form.view(v.styles, v.width, v.height)
	}
	if v.filterForm != nil {
		return v.filterForm.view(v.styles, v.width, v.height)
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Cargando...")
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	b.WriteString("\n")
	if v.err != "" {
		b.WriteString(v.styles.Error.Render(v.err))
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())
	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	searchStyle := s.Input
	if v.focus == FocusSearchInput {
		searchStyle = s.InputFocused
	}
	searchBox := searchStyle.Width(clamp(contentWidth-30, 10, 30)).Render(v.searchInput.View())

	var active []string
	if v.filter.ProjectID != 0 {
		active = append(active, v.projectTitle(v.filter.ProjectID))
	}
	if st, ok := models.ParseStatus(v.filter.Status); ok {
		active = append(active, st.TaskLabel())
	}
	if p, ok := models.ParsePriority(v.filter.Priority); ok {
		active = append(active, p.Label())
	}
	label := "Filtros: todos"
	if len(active) > 0 {
		label = "Filtros: " + strings.Join(active, ", ")
	}

	title := s.Title.Render(fmt.Sprintf("Tareas (%d de %d)", len(v.visible), len(v.tasks)))
	return lipgloss.JoinVertical(lipgloss.Left, title,
		lipgloss.JoinHorizontal(lipgloss.Center, searchBox, "  ", s.Button.Render(label+" ▼")),
	)
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles
	if len(v.visible) == 0 {
		if len(v.tasks) == 0 {
			return s.TitleMuted.Render("No hay tareas. Pulsa 'n' para crear una.")
		}
		return s.TitleMuted.Render("Ninguna tarea coincide con la búsqueda.")
	}

	var items []string
	end := min(v.scrollY+v.visibleItems(), len(v.visible))
	for i := v.scrollY; i < end; i++ {
		items = append(items, v.renderTaskItem(v.visible[i], i == v.cursor && v.focus == FocusTaskList))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	title := s.TaskTitle.Render(task.Title)
	if task.IsCompleted() {
		title = s.TaskDone.Render(task.Title)
	}
	titleLine := fmt.Sprintf("%s  %s %s", title, s.TaskStatusBadge(task.Status), s.PriorityBadge(task.Priority))
	infoLine := fmt.Sprintf("%s · %s · %s", v.projectTitle(task.Project.ID()), task.AssigneeName(), task.DueDate.Display())

	st := s.ListItem
	if selected {
		st = s.ListSelected
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		st.Width(width).Render(titleLine),
		st.Width(width).Foreground(styles.Current.ForegroundDim).Render(infoLine),
	) + "\n"
}

func (v *TaskListView) renderHelp() string {
	s := v.styles
	if w := styles.ContentWidth(v.width); w > 0 && w < 60 {
		return s.Help.Render(s.HelpKey.Render("?") + " ayuda")
	}
	return s.Help.Render(fmt.Sprintf("%s proyecto • %s nueva • %s editar • %s eliminar • %s buscar • %s filtros • %s volver",
		s.HelpKey.Render("↵"),
		s.HelpKey.Render("n"),
		s.HelpKey.Render("e"),
		s.HelpKey.Render("d"),
		s.HelpKey.Render("/"),
		s.HelpKey.Render("f"),
		s.HelpKey.Render("esc"),
	))
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	helpItems := []string{
		s.HelpKey.Render("↑/↓") + "    moverse",
		s.HelpKey.Render("↵") + "      abrir el proyecto de la tarea",
		s.HelpKey.Render("n") + "      nueva tarea",
		s.HelpKey.Render("e") + "      editar tarea",
		s.HelpKey.Render("d") + "      eliminar tarea",
		s.HelpKey.Render("/") + "      buscar por título o descripción",
		s.HelpKey.Render("f") + "      filtrar por proyecto, estado o prioridad",
		s.HelpKey.Render("r") + "      recargar",
		s.HelpKey.Render("esc") + "    volver",
		s.HelpKey.Render("q") + "      salir",
		"",
		s.TitleMuted.Render("Pulsa cualquier tecla para cerrar"),
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Atajos de teclado"), ""}, helpItems...)...,
	)
	return place(s.FilterBar.Render(content), v.width, v.height)
}
