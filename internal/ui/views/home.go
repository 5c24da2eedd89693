package views

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/digitalbuho/buho/internal/admin"
	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/ui/keys"
	"github.com/digitalbuho/buho/internal/ui/styles"
)

// HomeView lists the projects the signed-in user leads or develops
type HomeView struct {
	ctx    context.Context
	api    API
	claims *auth.Claims
	home   admin.Home
	loaded bool
	err    string
	cursor int
	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int
}

type homeLoadedMsg struct {
	home admin.Home
}

func NewHomeView(ctx context.Context, api API, claims *auth.Claims) *HomeView {
	return &HomeView{
		ctx:    ctx,
		api:    api,
		claims: claims,
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
	}
}

func (v *HomeView) Init() tea.Cmd {
	return v.load
}

func (v *HomeView) load() tea.Msg {
	projects, err := v.api.ListProjects(v.ctx)
	if err != nil {
		return errMsg{err}
	}
	email := ""
	if v.claims != nil {
		email = v.claims.Email
	}
	return homeLoadedMsg{home: admin.HomeStats(projects, email)}
}

func (v *HomeView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case homeLoadedMsg:
		v.home = msg.home
		v.loaded = true
		v.err = ""
		v.cursor = clamp(v.cursor, 0, max(0, len(v.home.Projects)-1))
		return v, nil

	case errMsg:
		v.loaded = true
		v.err = errorText(msg.err)
		return v, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Logout):
			return v, func() tea.Msg { return LoggedOut{} }
		case key.Matches(msg, v.keys.Back):
			if admin.CanAdminister(v.claims) {
				return v, func() tea.Msg { return Navigate{To: ScreenDashboard} }
			}
		case key.Matches(msg, v.keys.Refresh):
			return v, v.load
		case msg.String() == "t":
			return v, func() tea.Msg { return Navigate{To: ScreenTasks} }
		case key.Matches(msg, v.keys.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, v.keys.Down):
			if v.cursor < len(v.home.Projects)-1 {
				v.cursor++
			}
		case key.Matches(msg, v.keys.Enter):
			if len(v.home.Projects) > 0 {
				id := v.home.Projects[v.cursor].ID
				return v, func() tea.Msg { return Navigate{To: ScreenProjectDetail, ProjectID: id} }
			}
		}
	}
	return v, nil
}

func (v *HomeView) View() string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	name := ""
	if v.claims != nil {
		name = v.claims.Username
		if name == "" {
			name = v.claims.Email
		}
	}
	rows := []string{s.Title.Render("Hola, " + name)}

	if !v.loaded {
		rows = append(rows, s.TitleMuted.Render("Cargando..."))
		return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, rows...), v.width, v.height)
	}

	rows = append(rows, s.TitleMuted.Render(fmt.Sprintf("%d proyectos · %d pendientes · %d en progreso · %d completados · %d atrasados",
		len(v.home.Projects), v.home.Pending, v.home.InProgress, v.home.Completed, v.home.Delayed)), "")

	if len(v.home.Projects) == 0 {
		rows = append(rows, s.TitleMuted.Render("No participas en ningún proyecto."))
	}
	for i, p := range v.home.Projects {
		st := s.ListItem
		if i == v.cursor {
			st = s.ListSelected
		}
		line := fmt.Sprintf("%s  %s %s  %d%%", p.Title, s.StatusBadge(p.Status), s.PriorityBadge(p.Priority), p.Progress)
		rows = append(rows, st.Width(width).Render(line))
	}

	if v.err != "" {
		rows = append(rows, "", s.Error.Render(v.err))
	}
	rows = append(rows, "", s.Help.Render(fmt.Sprintf("%s abrir • %s tareas • %s recargar • %s cerrar sesión • %s salir",
		s.HelpKey.Render("↵"),
		s.HelpKey.Render("t"),
		s.HelpKey.Render("r"),
		s.HelpKey.Render("L"),
		s.HelpKey.Render("q"),
	)))
	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, rows...), v.width, v.height)
}
