package views

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/digitalbuho/buho/internal/admin"
	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/client"
	"github.com/digitalbuho/buho/internal/models"
	"github.com/digitalbuho/buho/internal/ui/styles"
)

// API is everything the views ask of the REST client
type API interface {
	admin.ProjectAPI
	admin.StatsAPI

	Login(ctx context.Context, email, password string) (*auth.Claims, error)
	Logout() error
	CurrentUser() (*auth.Claims, error)

	CreateUser(ctx context.Context, u models.User) (*models.User, error)
	PatchUser(ctx context.Context, id int64, fields map[string]any) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	UpdateRoles(ctx context.Context, userID int64, roleIDs []int64) (*models.User, error)
	ListRoles(ctx context.Context) ([]models.Role, error)

	CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error)
	UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, id int64) error

	ListTasks(ctx context.Context, query url.Values) ([]models.Task, error)
	CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, in models.TaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Screen names a top-level view
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenHome
	ScreenProjects
	ScreenTasks
	ScreenUsers
	ScreenProjectDetail
)

// Navigate asks the app to switch screens
type Navigate struct {
	To        Screen
	ProjectID int64
}

// LoggedIn is sent once credentials were accepted
type LoggedIn struct {
	Claims *auth.Claims
}

// LoggedOut asks the app to clear the session and show the login view
type LoggedOut struct{}

// errMsg carries a failed command back to the view that issued it
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// errorText turns an API error into the one-line message shown under a view
func errorText(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, client.ErrNoToken) || client.IsUnauthorized(err) {
		return "Sesión expirada. Inicia sesión de nuevo."
	}
	return err.Error()
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	return in
}

// choice is a single-select field cycled with left and right
type choice struct {
	labels []string
	index  int
}

func (c *choice) next(dir int) {
	if len(c.labels) == 0 {
		return
	}
	c.index = (c.index + dir + len(c.labels)) % len(c.labels)
}

func (c choice) view() string {
	if len(c.labels) == 0 {
		return "—"
	}
	return "‹ " + c.labels[c.index] + " ›"
}

// multiChoice is a multi-select field: left and right move, space toggles
type multiChoice struct {
	labels   []string
	cursor   int
	selected map[int]bool
}

func (m *multiChoice) move(dir int) {
	if len(m.labels) == 0 {
		return
	}
	m.cursor = (m.cursor + dir + len(m.labels)) % len(m.labels)
}

func (m *multiChoice) toggle() {
	if len(m.labels) == 0 {
		return
	}
	if m.selected == nil {
		m.selected = map[int]bool{}
	}
	m.selected[m.cursor] = !m.selected[m.cursor]
}

func (m multiChoice) view() string {
	if len(m.labels) == 0 {
		return "—"
	}
	var chosen []string
	for i, l := range m.labels {
		if m.selected[i] {
			chosen = append(chosen, l)
		}
	}
	summary := "ninguno"
	if len(chosen) > 0 {
		summary = strings.Join(chosen, ", ")
	}
	mark := "[ ]"
	if m.selected[m.cursor] {
		mark = "[x]"
	}
	return "‹ " + mark + " " + m.labels[m.cursor] + " ›  " + summary
}

var priorityChoices = func() []string {
	out := make([]string, len(models.Priorities))
	for i, p := range models.Priorities {
		out[i] = p.Label()
	}
	return out
}()

func statusChoices(task bool) []string {
	out := make([]string, len(models.Statuses))
	for i, s := range models.Statuses {
		if task {
			out[i] = s.TaskLabel()
		} else {
			out[i] = s.Label()
		}
	}
	return out
}

func priorityIndex(p models.Priority) int {
	for i, c := range models.Priorities {
		if c == models.NormalizePriority(string(p)) {
			return i
		}
	}
	return 1
}

func statusIndex(s models.Status) int {
	for i, c := range models.Statuses {
		if c == models.NormalizeStatus(string(s)) {
			return i
		}
	}
	return 0
}

// field renders a labelled form row, highlighted when focused
func field(s *styles.Styles, label, value string, focused bool, width int) string {
	box := s.Input
	if focused {
		box = s.InputFocused
	}
	return lipgloss.JoinVertical(lipgloss.Left, label+":", box.Width(width).Render(value))
}

// place centers content inside the content column
func place(content string, width, height int) string {
	centered := lipgloss.Place(styles.ContentWidth(width), height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, width, height)
}

// confirmDialog renders the shared yes/no prompt
func confirmDialog(s *styles.Styles, title, name string, width, height int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render(title),
		"",
		s.TitleMuted.Render("\""+name+"\""),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" S - Sí "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)
	return place(content, width, height)
}

func isYes(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "y", "Y", "s", "S":
		return true
	}
	return false
}
