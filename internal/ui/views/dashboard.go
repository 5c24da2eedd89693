package views

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/digitalbuho/buho/internal/admin"
	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/ui/keys"
	"github.com/digitalbuho/buho/internal/ui/styles"
)

type menuItem struct {
	label  string
	screen Screen
}

var dashboardMenu = []menuItem{
	{"Proyectos", ScreenProjects},
	{"Tareas", ScreenTasks},
	{"Usuarios", ScreenUsers},
	{"Mis proyectos", ScreenHome},
}

// DashboardView is the administrator landing page: counters and a menu
type DashboardView struct {
	ctx    context.Context
	api    API
	claims *auth.Claims
	stats  admin.Stats
	loaded bool
	err    string
	cursor int
	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int
}

type statsLoadedMsg struct {
	stats admin.Stats
}

func NewDashboardView(ctx context.Context, api API, claims *auth.Claims) *DashboardView {
	return &DashboardView{
		ctx:    ctx,
		api:    api,
		claims: claims,
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
	}
}

func (v *DashboardView) Init() tea.Cmd {
	return v.loadStats
}

func (v *DashboardView) loadStats() tea.Msg {
	stats, err := admin.DashboardStats(v.ctx, v.api)
	if err != nil {
		return errMsg{err}
	}
	return statsLoadedMsg{stats: stats}
}

func (v *DashboardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case statsLoadedMsg:
		v.stats = msg.stats
		v.loaded = true
		v.err = ""
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
		case key.Matches(msg, v.keys.Refresh):
			return v, v.loadStats
		case key.Matches(msg, v.keys.Up):
			v.cursor = clamp(v.cursor-1, 0, len(dashboardMenu)-1)
		case key.Matches(msg, v.keys.Down):
			v.cursor = clamp(v.cursor+1, 0, len(dashboardMenu)-1)
		case key.Matches(msg, v.keys.Enter):
			to := dashboardMenu[v.cursor].screen
			return v, func() tea.Msg { return Navigate{To: to} }
		}
	}
	return v, nil
}

func (v *DashboardView) card(value int, label string) string {
	s := v.styles
	return s.Card.Render(lipgloss.JoinVertical(lipgloss.Center,
		s.CardValue.Render(strconv.Itoa(value)),
		s.CardLabel.Render(label),
	))
}

func (v *DashboardView) View() string {
	s := v.styles

	who := ""
	if v.claims != nil {
		who = v.claims.Email
	}
	header := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Panel de administración"),
		s.TitleMuted.Render(who),
	)

	var cards string
	if !v.loaded {
		cards = s.TitleMuted.Render("Cargando...")
	} else {
		cards = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top,
				v.card(v.stats.Users, "Usuarios"),
				v.card(v.stats.Projects, "Proyectos"),
				v.card(v.stats.Tasks, "Tareas"),
			),
			lipgloss.JoinHorizontal(lipgloss.Top,
				v.card(v.stats.CompletedProjects, "Proyectos completados"),
				v.card(v.stats.CompletedTasks, "Tareas completadas"),
			),
		)
	}

	items := make([]string, len(dashboardMenu))
	for i, m := range dashboardMenu {
		st := s.ListItem
		if i == v.cursor {
			st = s.ListSelected
		}
		items[i] = st.Render(m.label)
	}

	rows := []string{header, "", cards, "", lipgloss.JoinVertical(lipgloss.Left, items...)}
	if v.err != "" {
		rows = append(rows, "", s.Error.Render(v.err))
	}
	rows = append(rows, "", s.Help.Render(fmt.Sprintf("%s abrir • %s recargar • %s cerrar sesión • %s salir",
		s.HelpKey.Render("↵"),
		s.HelpKey.Render("r"),
		s.HelpKey.Render("L"),
		s.HelpKey.Render("q"),
	)))

	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, rows...), v.width, v.height)
}
