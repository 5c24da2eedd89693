package admin

import (
	"regexp"
	"sort"
	"strings"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/models"
)

// FormErrors maps a form field to the message shown under it
type FormErrors map[string]string

// Error joins the messages in field order
func (fe FormErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = fe[f]
	}
	return strings.Join(msgs, "; ")
}

// orNil returns nil for an empty error set so callers can test err != nil
func (fe FormErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// MinPasswordLength is enforced on login and on new accounts
const MinPasswordLength = 6

// ValidateLogin checks the sign-in form before any request is made
func ValidateLogin(email, password string) error {
	fe := FormErrors{}
	switch email = strings.TrimSpace(email); {
	case email == "":
		fe["email"] = "El correo es requerido"
	case !emailPattern.MatchString(email):
		fe["email"] = "El correo no es válido"
	}
	switch {
	case password == "":
		fe["password"] = "La contraseña es requerida"
	case len(password) < MinPasswordLength:
		fe["password"] = "La contraseña debe tener al menos 6 caracteres"
	}
	return fe.orNil()
}

// ValidateProjectForm requires a title, a due date and a responsible user
func ValidateProjectForm(in models.ProjectInput) error {
	fe := FormErrors{}
	if strings.TrimSpace(in.Title) == "" || in.DueDate.IsZero() {
		fe["titulo"] = "El título y la fecha límite son obligatorios"
	}
	if !in.ResponsibleID.Valid() {
		fe["responsable"] = "El responsable es obligatorio"
	}
	return fe.orNil()
}

// ValidateUserForm requires email and username, plus a password when creating
func ValidateUserForm(u models.User, creating bool) error {
	fe := FormErrors{}
	if strings.TrimSpace(u.Email) == "" || strings.TrimSpace(u.Username) == "" || (creating && u.Password == "") {
		fe["email"] = "Correo, nombre de usuario y contraseña son obligatorios"
	}
	if u.Password != "" && len(u.Password) < MinPasswordLength {
		fe["password"] = "La contraseña debe tener al menos 6 caracteres"
	}
	return fe.orNil()
}

// ValidateTaskForm requires a title and a project
func ValidateTaskForm(in models.TaskInput) error {
	fe := FormErrors{}
	if strings.TrimSpace(in.Title) == "" {
		fe["titulo"] = "El título es obligatorio"
	}
	if !in.ProjectID.Valid() {
		fe["proyecto"] = "El proyecto es obligatorio"
	}
	return fe.orNil()
}

// CanAdminister reports whether the signed-in user may open the dashboard
func CanAdminister(claims *auth.Claims) bool {
	return claims != nil && claims.CanAdminister()
}
