package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/digitalbuho/buho/internal/admin"
	"github.com/digitalbuho/buho/internal/models"
	"github.com/digitalbuho/buho/internal/ui/keys"
	"github.com/digitalbuho/buho/internal/ui/styles"
)

// User form field positions
const (
	ufEmail = iota
	ufUsername
	ufFirstName
	ufLastName
	ufPassword
	ufStaff
	ufSuperuser
)

var yesNo = []string{"No", "Sí"}

func yesNoIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UserListView administers accounts and their roles
type UserListView struct {
	ctx    context.Context
	api    API
	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int
	loaded bool
	err    string

	users   []models.User
	roles   []models.Role
	cursor  int
	scrollY int

	form      *form
	editingID int64

	roleForm   *form
	roleUserID int64

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string
}

type usersLoadedMsg struct {
	users []models.User
	roles []models.Role
}

type userSavedMsg struct{}

func NewUserListView(ctx context.Context, api API) *UserListView {
	return &UserListView{
		ctx:    ctx,
		api:    api,
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
	}
}

func (v *UserListView) Init() tea.Cmd {
	return v.loadUsers
}

func (v *UserListView) loadUsers() tea.Msg {
	users, err := v.api.ListUsers(v.ctx)
	if err != nil {
		return errMsg{err}
	}
	roles, err := v.api.ListRoles(v.ctx)
	if err != nil {
		return errMsg{err}
	}
	return usersLoadedMsg{users: users, roles: roles}
}

func (v *UserListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case usersLoadedMsg:
		v.users = msg.users
		v.roles = msg.roles
		v.loaded = true
		v.err = ""
		v.cursor = clamp(v.cursor, 0, max(0, len(v.users)-1))
		return v, nil

	case userSavedMsg:
		v.form = nil
		v.roleForm = nil
		return v, v.loadUsers

	case errMsg:
		v.loaded = true
		if f := v.openForm(); f != nil {
			f.busy = false
			f.err = errorText(msg.err)
			return v, nil
		}
		v.err = errorText(msg.err)
		return v, nil

	case tea.KeyMsg:
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		if v.form != nil {
			return v.updateForm(msg)
		}
		if v.roleForm != nil {
			return v.updateRoleForm(msg)
		}
		return v.updateNormal(msg)
	}
	return v, nil
}

func (v *UserListView) openForm() *form {
	if v.form != nil {
		return v.form
	}
	return v.roleForm
}

func (v *UserListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return Navigate{To: ScreenDashboard} }
	case key.Matches(msg, v.keys.Refresh):
		return v, v.loadUsers
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.users)-1 {
			v.cursor++
			v.ensureVisible()
		}
	case key.Matches(msg, v.keys.New):
		return v, v.startForm(nil)
	case key.Matches(msg, v.keys.Edit), key.Matches(msg, v.keys.Enter):
		if len(v.users) > 0 {
			u := v.users[v.cursor]
			return v, v.startForm(&u)
		}
	case key.Matches(msg, v.keys.Roles):
		if len(v.users) > 0 {
			return v, v.startRoleForm(v.users[v.cursor])
		}
	case key.Matches(msg, v.keys.Delete):
		if len(v.users) > 0 {
			v.confirmingDelete = true
			v.deleteTargetID = v.users[v.cursor].ID
			v.deleteTargetName = v.users[v.cursor].Email
		}
	}
	return v, nil
}

func (v *UserListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.confirmingDelete = false
	if !isYes(msg) {
		return v, nil
	}
	id := v.deleteTargetID
	return v, func() tea.Msg {
		if err := v.api.DeleteUser(v.ctx, id); err != nil {
			return errMsg{err}
		}
		return userSavedMsg{}
	}
}

// startForm opens the create form, or the edit form when u is set
func (v *UserListView) startForm(u *models.User) tea.Cmd {
	f := &form{title: "Nuevo usuario"}
	var current models.User
	v.editingID = 0
	if u != nil {
		f.title = "Editar usuario"
		current = *u
		v.editingID = u.ID
	}
	f.fields = []*formField{
		ufEmail:     textField("Correo", "usuario@correo.com", 254),
		ufUsername:  textField("Usuario", "nombre de usuario", 150),
		ufFirstName: textField("Nombre", "", 150),
		ufLastName:  textField("Apellido", "", 150),
		ufPassword:  passwordField("Contraseña"),
		ufStaff:     choiceField("Staff", yesNo, yesNoIndex(current.IsStaff)),
		ufSuperuser: choiceField("Superusuario", yesNo, yesNoIndex(current.IsSuperuser)),
	}
	if u != nil {
		f.fields[ufPassword].input.Placeholder = "dejar vacío para no cambiarla"
	}
	f.setValue(ufEmail, current.Email)
	f.setValue(ufUsername, current.Username)
	f.setValue(ufFirstName, current.FirstName)
	f.setValue(ufLastName, current.LastName)
	v.form = f
	return f.setFocus(0)
}

func (v *UserListView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	res, cmd := v.form.update(msg, v.keys)
	switch res {
	case formCancel:
		v.form = nil
		return v, nil
	case formSubmit:
		f := v.form
		u := models.User{
			Email:       strings.TrimSpace(f.value(ufEmail)),
			Username:    strings.TrimSpace(f.value(ufUsername)),
			FirstName:   strings.TrimSpace(f.value(ufFirstName)),
			LastName:    strings.TrimSpace(f.value(ufLastName)),
			Password:    f.value(ufPassword),
			IsStaff:     f.choiceIndex(ufStaff) == 1,
			IsSuperuser: f.choiceIndex(ufSuperuser) == 1,
		}
		id := v.editingID
		if err := admin.ValidateUserForm(u, id == 0); err != nil {
			f.err = err.Error()
			return v, nil
		}
		f.err = ""
		f.busy = true
		return v, func() tea.Msg {
			var err error
			if id == 0 {
				_, err = v.api.CreateUser(v.ctx, u)
			} else {
				_, err = v.api.PatchUser(v.ctx, id, userChanges(u))
			}
			if err != nil {
				return errMsg{err}
			}
			return userSavedMsg{}
		}
	}
	return v, cmd
}

// userChanges is the PATCH body for an edited user; a blank password is left alone
func userChanges(u models.User) map[string]any {
	fields := map[string]any{
		"email":        u.Email,
		"username":     u.Username,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"is_staff":     u.IsStaff,
		"is_superuser": u.IsSuperuser,
	}
	if u.Password != "" {
		fields["password"] = u.Password
	}
	return fields
}

func (v *UserListView) startRoleForm(u models.User) tea.Cmd {
	labels := make([]string, len(v.roles))
	selected := map[int]bool{}
	for i, r := range v.roles {
		labels[i] = r.Name
		selected[i] = u.HasRole(r.ID)
	}
	v.roleUserID = u.ID
	v.roleForm = &form{
		title:  "Roles de " + u.Email,
		fields: []*formField{multiField("Roles", labels, selected)},
	}
	return v.roleForm.setFocus(0)
}

func (v *UserListView) updateRoleForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	res, cmd := v.roleForm.update(msg, v.keys)
	switch res {
	case formCancel:
		v.roleForm = nil
		return v, nil
	case formSubmit:
		ids := []int64{}
		for _, i := range v.roleForm.selected(0) {
			ids = append(ids, v.roles[i].ID)
		}
		userID := v.roleUserID
		v.roleForm.busy = true
		return v, func() tea.Msg {
			if _, err := v.api.UpdateRoles(v.ctx, userID, ids); err != nil {
				return errMsg{err}
			}
			return userSavedMsg{}
		}
	}
	return v, cmd
}

func (v *UserListView) visibleItems() int {
	return max((v.height-10)/2, 1)
}

func (v *UserListView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

func (v *UserListView) View() string {
	s := v.styles
	if v.confirmingDelete {
		return confirmDialog(s, "¿Eliminar usuario?", v.deleteTargetName, v.width, v.height)
	}
	if f := v.openForm(); f != nil {
		return f.view(s, v.width, v.height)
	}
	if !v.loaded {
		return s.TitleMuted.Render("Cargando...")
	}

	width := max(styles.ContentWidth(v.width)-4, 20)
	rows := []string{s.Title.Render(fmt.Sprintf("Usuarios (%d)", len(v.users))), ""}
	end := min(v.scrollY+v.visibleItems(), len(v.users))
	for i := v.scrollY; i < end; i++ {
		u := v.users[i]
		flags := ""
		if u.IsSuperuser {
			flags = s.Badge.Foreground(styles.Current.Error).Render("superusuario")
		} else if u.IsStaff {
			flags = s.Badge.Foreground(styles.Current.Warning).Render("staff")
		}
		roleNames := make([]string, len(u.Roles))
		for j, r := range u.Roles {
			roleNames[j] = r.Name
		}
		roles := "sin roles"
		if len(roleNames) > 0 {
			roles = strings.Join(roleNames, ", ")
		}

		st := s.ListItem
		if i == v.cursor {
			st = s.ListSelected
		}
		rows = append(rows,
			st.Width(width).Render(u.Email+"  "+flags),
			st.Width(width).Foreground(styles.Current.ForegroundDim).Render(u.DisplayName()+" · "+roles),
		)
	}

	if v.err != "" {
		rows = append(rows, "", s.Error.Width(width).Render(v.err))
	}
	rows = append(rows, "", s.Help.Render(fmt.Sprintf("%s nuevo • %s editar • %s roles • %s eliminar • %s volver",
		s.HelpKey.Render("n"),
		s.HelpKey.Render("e"),
		s.HelpKey.Render("R"),
		s.HelpKey.Render("d"),
		s.HelpKey.Render("esc"),
	)))
	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, rows...), v.width, v.height)
}
