package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/digitalbuho/buho/internal/admin"
	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/models"
	"github.com/digitalbuho/buho/internal/ui/keys"
	"github.com/digitalbuho/buho/internal/ui/styles"
)

type projectItem struct {
	project models.Project
}

func (i projectItem) Title() string       { return i.project.Title }
func (i projectItem) Description() string { return i.project.Description }
func (i projectItem) FilterValue() string { return i.project.Title }

type projectDelegate struct {
	styles *styles.Styles
	width  int
}

func (d projectDelegate) Height() int                               { return 2 }
func (d projectDelegate) Spacing() int                              { return 1 }
func (d projectDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(projectItem)
	if !ok {
		return
	}

	selected := index == m.Index()
	width := max(d.width-4, 20)

	var titleStyle, descStyle lipgloss.Style
	if selected {
		titleStyle = d.styles.ListSelected.Width(width)
		descStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = d.styles.ListItem.Width(width)
		descStyle = d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	title := fmt.Sprintf("%s  %s %s", p.project.Title,
		d.styles.StatusBadge(p.project.Status), d.styles.PriorityBadge(p.project.Priority))
	desc := fmt.Sprintf("%s · %s · %d%%", p.project.ResponsibleEmail(), p.project.DueDate.Display(), p.project.Progress)

	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(title), descStyle.Render(desc))
}

// Project form field positions
const (
	pfTitle = iota
	pfDescription
	pfPriority
	pfStatus
	pfDueDate
	pfResponsible
	pfDevelopers
)

// ProjectListView lists projects with create, edit and delete
type ProjectListView struct {
	ctx      context.Context
	api      API
	claims   *auth.Claims
	list     list.Model
	delegate *projectDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	err      string

	users []models.User

	form      *form
	editingID int64
	editing   models.Project

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

type projectsLoadedMsg struct {
	projects []models.Project
	users    []models.User
}

type projectSavedMsg struct {
	project models.Project
}

type projectDeletedMsg struct{}

func NewProjectListView(ctx context.Context, api API, claims *auth.Claims) *ProjectListView {
	s := styles.NewStyles()
	delegate := &projectDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Proyectos"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &ProjectListView{
		ctx:      ctx,
		api:      api,
		claims:   claims,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

func (v *ProjectListView) Init() tea.Cmd {
	return v.loadProjects
}

func (v *ProjectListView) loadProjects() tea.Msg {
	projects, err := v.api.ListProjects(v.ctx)
	if err != nil {
		return errMsg{err}
	}
	return projectsLoadedMsg{projects: projects, users: knownUsers(v.ctx, v.api, v.claims)}
}

// knownUsers lists the users a form can pick from. Accounts without staff
// rights cannot list users, so they only get themselves.
func knownUsers(ctx context.Context, api API, claims *auth.Claims) []models.User {
	users, err := api.ListUsers(ctx)
	if err == nil && len(users) > 0 {
		return users
	}
	if claims == nil {
		return nil
	}
	return []models.User{{ID: claims.UserID, Email: claims.Email, Username: claims.Username}}
}

func (v *ProjectListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-6)
		if v.form != nil {
			v.form.setWidth(clamp(contentWidth-10, 20, 56))
		}
		return v, nil

	case projectsLoadedMsg:
		items := make([]list.Item, len(msg.projects))
		for i, p := range msg.projects {
			items[i] = projectItem{project: p}
		}
		v.users = msg.users
		v.loaded = true
		v.err = ""
		return v, v.list.SetItems(items)

	case projectSavedMsg:
		v.form = nil
		return v, v.loadProjects

	case projectDeletedMsg:
		return v, v.loadProjects

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
			return v.updateForm(msg)
		}
		if v.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			if v.list.FilterState() == list.FilterApplied {
				v.list.ResetFilter()
				return v, nil
			}
			return v, func() tea.Msg { return Navigate{To: ScreenDashboard} }
		case key.Matches(msg, v.keys.Refresh):
			return v, v.loadProjects
		case key.Matches(msg, v.keys.New):
			return v, v.startForm(nil)
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				id := item.project.ID
				return v, func() tea.Msg { return Navigate{To: ScreenProjectDetail, ProjectID: id} }
			}
		case key.Matches(msg, v.keys.Edit):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				return v, v.startForm(&item.project)
			}
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.project.ID
				v.deleteTargetName = item.project.Title
				return v, nil
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *ProjectListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.confirmingDelete = false
	if !isYes(msg) {
		return v, nil
	}
	id := v.deleteTargetID
	return v, func() tea.Msg {
		if err := v.api.DeleteProject(v.ctx, id); err != nil {
			return errMsg{err}
		}
		return projectDeletedMsg{}
	}
}

// startForm opens the create form, or the edit form when p is set
func (v *ProjectListView) startForm(p *models.Project) tea.Cmd {
	userLabels := make([]string, len(v.users))
	responsible := 0
	developers := map[int]bool{}
	for i, u := range v.users {
		userLabels[i] = u.DisplayName()
		if v.claims != nil && u.ID == v.claims.UserID {
			responsible = i
		}
	}

	f := &form{title: "Nuevo proyecto"}
	prio, status := priorityIndex(models.PriorityMedium), statusIndex(models.StatusPending)
	v.editingID = 0
	v.editing = models.Project{}
	if p != nil {
		f.title = "Editar proyecto"
		v.editingID = p.ID
		v.editing = *p
		prio, status = priorityIndex(p.Priority), statusIndex(p.Status)
		for i, u := range v.users {
			if p.Responsible != nil && u.ID == p.Responsible.ID {
				responsible = i
			}
			for _, d := range p.Developers {
				if d.ID == u.ID {
					developers[i] = true
				}
			}
		}
	}

	f.fields = []*formField{
		pfTitle:       textField("Título", "Nombre del proyecto", 200),
		pfDescription: areaField("Descripción", "Opcional"),
		pfPriority:    choiceField("Prioridad", priorityChoices, prio),
		pfStatus:      choiceField("Estado", statusChoices(false), status),
		pfDueDate:     textField("Fecha límite", "AAAA-MM-DD", 10),
		pfResponsible: choiceField("Responsable", userLabels, responsible),
		pfDevelopers:  multiField("Desarrolladores", userLabels, developers),
	}
	if p != nil {
		f.setValue(pfTitle, p.Title)
		f.setValue(pfDescription, p.Description)
		f.setValue(pfDueDate, p.DueDate.String())
	}
	f.setWidth(clamp(styles.ContentWidth(v.width)-10, 20, 56))
	v.form = f
	return f.setFocus(0)
}

// input builds the API payload from the form
func (v *ProjectListView) input() (models.ProjectInput, error) {
	f := v.form
	due, err := models.ParseDate(f.value(pfDueDate))
	if err != nil {
		return models.ProjectInput{}, admin.FormErrors{"fechaLimite": "Fecha inválida, usa AAAA-MM-DD"}
	}
	in := models.ProjectInput{
		Title:        strings.TrimSpace(f.value(pfTitle)),
		Description:  strings.TrimSpace(f.value(pfDescription)),
		Priority:     models.Priorities[f.choiceIndex(pfPriority)],
		Status:       models.Statuses[f.choiceIndex(pfStatus)],
		DueDate:      due,
		Progress:     v.editing.Progress,
		DeveloperIDs: []models.Ref{},
	}
	if len(v.users) > 0 {
		in.ResponsibleID = models.Ref(v.users[f.choiceIndex(pfResponsible)].ID)
	}
	for _, i := range f.selected(pfDevelopers) {
		in.DeveloperIDs = append(in.DeveloperIDs, models.Ref(v.users[i].ID))
	}
	return in, admin.ValidateProjectForm(in)
}

func (v *ProjectListView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
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
			var (
				p   *models.Project
				err error
			)
			if id == 0 {
				p, err = v.api.CreateProject(v.ctx, in)
			} else {
				p, err = v.api.UpdateProject(v.ctx, id, in)
			}
			if err != nil {
				return errMsg{err}
			}
			return projectSavedMsg{project: *p}
		}
	}
	return v, cmd
}

func (v *ProjectListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.confirmingDelete {
		return confirmDialog(v.styles, "¿Eliminar proyecto?", v.deleteTargetName, v.width, v.height)
	}
	if v.form != nil {
		return v.form.view(v.styles, v.width, v.height)
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Cargando...")
	}
	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}

	content := v.list.View() + "\n"
	if v.err != "" {
		content += v.styles.Error.Render(v.err) + "\n"
	}
	content += v.renderHelp()
	return styles.CenterView(content, v.width, v.height)
}

func (v *ProjectListView) renderEmpty() string {
	s := v.styles
	rows := []string{
		s.Title.Render("Sin proyectos"),
		"",
		s.TitleMuted.Render("Pulsa 'n' para crear el primero"),
		"",
		s.ButtonPrimary.Render(" Nuevo proyecto "),
	}
	if v.err != "" {
		rows = append(rows, "", s.Error.Render(v.err))
	}
	return place(lipgloss.JoinVertical(lipgloss.Center, rows...), v.width, v.height)
}

func (v *ProjectListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " ayuda")
	}
	return v.styles.Help.Render(
		fmt.Sprintf("%s abrir • %s nuevo • %s editar • %s eliminar • %s filtrar • %s volver",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("esc"),
		),
	)
}

func (v *ProjectListView) renderHelpPopup() string {
	s := v.styles
	helpItems := []string{
		s.HelpKey.Render("↵") + "      ver proyecto y tareas",
		s.HelpKey.Render("n") + "      nuevo proyecto",
		s.HelpKey.Render("e") + "      editar proyecto",
		s.HelpKey.Render("d") + "      eliminar proyecto",
		s.HelpKey.Render("/") + "      filtrar por título",
		s.HelpKey.Render("r") + "      recargar",
		s.HelpKey.Render("esc") + "    volver al panel",
		s.HelpKey.Render("q") + "      salir",
		"",
		s.TitleMuted.Render("Pulsa cualquier tecla para cerrar"),
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Atajos de teclado"), ""}, helpItems...)...,
	)
	return place(s.FilterBar.Render(content), v.width, v.height)
}
