package views

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/digitalbuho/buho/internal/admin"
	"github.com/digitalbuho/buho/internal/client"
	"github.com/digitalbuho/buho/internal/ui/keys"
	"github.com/digitalbuho/buho/internal/ui/styles"
)

// LoginView asks for email and password and exchanges them for tokens
type LoginView struct {
	ctx    context.Context
	api    API
	form   *form
	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int
}

func NewLoginView(ctx context.Context, api API) *LoginView {
	f := &form{
		title: "Digital Buho · Iniciar sesión",
		fields: []*formField{
			textField("Correo", "tu@correo.com", 254),
			passwordField("Contraseña"),
		},
	}
	f.setFocus(0)
	return &LoginView{
		ctx:    ctx,
		api:    api,
		form:   f,
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
	}
}

func (v *LoginView) Init() tea.Cmd {
	return v.form.setFocus(0)
}

func (v *LoginView) submit() tea.Cmd {
	email := strings.TrimSpace(v.form.value(0))
	password := v.form.value(1)
	if err := admin.ValidateLogin(email, password); err != nil {
		v.form.err = err.Error()
		return nil
	}
	v.form.err = ""
	v.form.busy = true
	return func() tea.Msg {
		claims, err := v.api.Login(v.ctx, email, password)
		if err != nil {
			return errMsg{err}
		}
		return LoggedIn{Claims: claims}
	}
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case errMsg:
		v.form.busy = false
		v.form.setValue(1, "")
		if client.IsUnauthorized(msg.err) {
			v.form.err = "Credenciales inválidas"
		} else {
			v.form.err = errorText(msg.err)
		}
		return v, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return v, tea.Quit
		}
		res, cmd := v.form.update(msg, v.keys)
		switch res {
		case formSubmit:
			return v, v.submit()
		case formCancel:
			return v, tea.Quit
		}
		return v, cmd
	}
	return v, nil
}

func (v *LoginView) View() string {
	return v.form.view(v.styles, v.width, v.height)
}
