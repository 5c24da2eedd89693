package ui

import (
	"context"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/digitalbuho/buho/internal/admin"
	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/ui/views"
)

// Settings persists small bits of UI state between runs
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

const lastProjectKey = "last_project_id"

type sessionMsg struct {
	claims *auth.Claims
}

// App is the root model: it owns the session and swaps views
type App struct {
	ctx      context.Context
	api      views.API
	settings Settings
	claims   *auth.Claims
	screen   views.Screen
	current  tea.Model
	width    int
	height   int
}

// Creates a new application starting at the login view
func NewApp(ctx context.Context, api views.API, settings Settings) *App {
	return &App{
		ctx:      ctx,
		api:      api,
		settings: settings,
		current:  views.NewLoginView(ctx, api),
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.current.Init(), a.resumeSession)
}

// resumeSession reuses a stored token whose refresh side is still usable
func (a *App) resumeSession() tea.Msg {
	claims, err := a.api.CurrentUser()
	if err != nil {
		return nil
	}
	return sessionMsg{claims: claims}
}

func (a *App) home() views.Screen {
	if admin.CanAdminister(a.claims) {
		return views.ScreenDashboard
	}
	return views.ScreenHome
}

func (a *App) show(screen views.Screen, projectID int64) tea.Cmd {
	back := a.screen
	if back == views.ScreenProjectDetail {
		back = a.home()
	}
	a.screen = screen

	switch screen {
	case views.ScreenDashboard:
		if !admin.CanAdminister(a.claims) {
			return a.show(views.ScreenHome, 0)
		}
		a.current = views.NewDashboardView(a.ctx, a.api, a.claims)
	case views.ScreenProjects:
		a.current = views.NewProjectListView(a.ctx, a.api, a.claims)
	case views.ScreenTasks:
		a.current = views.NewTaskListView(a.ctx, a.api, a.claims)
	case views.ScreenUsers:
		a.current = views.NewUserListView(a.ctx, a.api)
	case views.ScreenProjectDetail:
		a.current = views.NewProjectDetailView(a.ctx, a.api, projectID, back)
	default:
		a.screen = views.ScreenHome
		a.current = views.NewHomeView(a.ctx, a.api, a.claims)
	}

	last := ""
	if screen == views.ScreenProjectDetail {
		last = strconv.FormatInt(projectID, 10)
	}
	a.remember(last)

	return tea.Batch(
		a.current.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

func (a *App) remember(projectID string) {
	if a.settings == nil {
		return
	}
	if err := a.settings.SetSetting(lastProjectKey, projectID); err != nil {
		log.Warn("could not save last project", "err", err)
	}
}

// startScreen reopens the last viewed project, if any
func (a *App) startScreen() tea.Cmd {
	if a.settings != nil {
		if raw, err := a.settings.GetSetting(lastProjectKey); err == nil && raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				a.screen = a.home()
				return a.show(views.ScreenProjectDetail, id)
			}
		}
	}
	return a.show(a.home(), 0)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case sessionMsg:
		if a.claims != nil || msg.claims == nil {
			return a, nil
		}
		if msg.claims.Expired(time.Now()) {
			// the access token is stale; the client refreshes on the first request
			log.Debug("resuming session with expired access token", "email", msg.claims.Email)
		}
		a.claims = msg.claims
		return a, a.startScreen()

	case views.LoggedIn:
		a.claims = msg.Claims
		log.Info("signed in", "email", msg.Claims.Email, "admin", admin.CanAdminister(msg.Claims))
		return a, a.startScreen()

	case views.LoggedOut:
		if err := a.api.Logout(); err != nil {
			log.Error("logout", "err", err)
		}
		a.remember("")
		a.claims = nil
		a.current = views.NewLoginView(a.ctx, a.api)
		return a, tea.Batch(
			a.current.Init(),
			func() tea.Msg {
				return tea.WindowSizeMsg{Width: a.width, Height: a.height}
			},
		)

	case views.Navigate:
		return a, a.show(msg.To, msg.ProjectID)
	}

	var cmd tea.Cmd
	a.current, cmd = a.current.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	return a.current.View()
}
