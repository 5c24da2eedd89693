package models

import (
	"strings"
	"time"
)

// Role represents a named permission group that can be assigned to users
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// User represents an account. Password is only ever sent, never returned.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password,omitempty"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	Roles       []Role `json:"roles"`
}

// DisplayName returns "First Last (username)", falling back to the email
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	switch {
	case full != "" && u.Username != "":
		return full + " (" + u.Username + ")"
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// HasRole reports whether the user holds the role with the given ID
func (u User) HasRole(roleID int64) bool {
	for _, r := range u.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}

// RoleIDs returns the IDs of the user's roles
func (u User) RoleIDs() []int64 {
	ids := make([]int64, len(u.Roles))
	for i, r := range u.Roles {
		ids[i] = r.ID
	}
	return ids
}

// Department represents an organisational unit
type Department struct {
	ID          int64  `json:"id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

// Worker represents the employment profile attached to a user
type Worker struct {
	ID         int64       `json:"id"`
	User       *User       `json:"user"`
	Department *Department `json:"departamento"`
	Position   string      `json:"cargo"`
	HireDate   Date        `json:"fecha_contratacion"`
	Active     bool        `json:"activo"`
}

// WorkerInput is the create/update payload for a worker
type WorkerInput struct {
	UserID       Ref    `json:"user_id"`
	DepartmentID Ref    `json:"departamento_id"`
	Position     string `json:"cargo"`
	HireDate     Date   `json:"fecha_contratacion"`
	Active       bool   `json:"activo"`
}

// Input converts the worker into the write payload the API accepts
func (w Worker) Input() WorkerInput {
	in := WorkerInput{Position: w.Position, HireDate: w.HireDate, Active: w.Active}
	if w.User != nil {
		in.UserID = Ref(w.User.ID)
	}
	if w.Department != nil {
		in.DepartmentID = Ref(w.Department.ID)
	}
	return in
}

// Project represents a project as returned by the API
type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"titulo"`
	Description string    `json:"descripcion"`
	Priority    Priority  `json:"prioridad"`
	Status      Status    `json:"estado"`
	DueDate     Date      `json:"fechaLimite"`
	Responsible *User     `json:"responsable"`
	Progress    int       `json:"progreso"`
	CreatedBy   Ref       `json:"creado_por"`
	CreatedAt   time.Time `json:"fecha_creacion"`
	UpdatedAt   time.Time `json:"fecha_actualizacion"`
	Developers  []User    `json:"desarrolladores"`
}

// ResponsibleEmail returns the lead's email or "Sin asignar"
func (p Project) ResponsibleEmail() string {
	if p.Responsible == nil {
		return "Sin asignar"
	}
	return p.Responsible.Email
}

// Involves reports whether the user with the given email leads or develops the project
func (p Project) Involves(email string) bool {
	if email == "" {
		return false
	}
	if p.Responsible != nil && p.Responsible.Email == email {
		return true
	}
	for _, d := range p.Developers {
		if d.Email == email {
			return true
		}
	}
	return false
}

// Input converts the project into the write payload the API accepts
func (p Project) Input() ProjectInput {
	in := ProjectInput{
		Title:       p.Title,
		Description: p.Description,
		Priority:    p.Priority,
		Status:      p.Status,
		DueDate:     p.DueDate,
		Progress:    p.Progress,
	}
	if p.Responsible != nil {
		in.ResponsibleID = Ref(p.Responsible.ID)
	}
	in.DeveloperIDs = make([]Ref, len(p.Developers))
	for i, d := range p.Developers {
		in.DeveloperIDs[i] = Ref(d.ID)
	}
	return in
}

// ProjectInput is the create/update payload for a project
type ProjectInput struct {
	Title         string   `json:"titulo"`
	Description   string   `json:"descripcion"`
	Priority      Priority `json:"prioridad"`
	Status        Status   `json:"estado"`
	DueDate       Date     `json:"fechaLimite"`
	Progress      int      `json:"progreso"`
	ResponsibleID Ref      `json:"responsable_id"`
	DeveloperIDs  []Ref    `json:"desarrolladores_ids"`
}

// ProjectSummary is the short form of a project embedded in tasks
type ProjectSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"titulo"`
}

// Task represents a task as returned by the API
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"titulo"`
	Description string    `json:"descripcion"`
	Priority    Priority  `json:"prioridad"`
	Status      Status    `json:"estado"`
	DueDate     Date      `json:"fecha_limite"`
	Project     Ref       `json:"proyecto"`
	Assignee    *User     `json:"asignado_a"`
	CreatedBy   Ref       `json:"creado_por"`
	CreatedAt   time.Time `json:"fecha_creacion"`
	UpdatedAt   time.Time `json:"fecha_actualizacion"`
}

// AssigneeName returns the assignee's display name or "No asignado"
func (t Task) AssigneeName() string {
	if t.Assignee == nil {
		return "No asignado"
	}
	return t.Assignee.DisplayName()
}

// Input converts the task into the write payload the API accepts
func (t Task) Input() TaskInput {
	in := TaskInput{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		ProjectID:   t.Project,
	}
	if t.Assignee != nil {
		in.AssigneeID = Ref(t.Assignee.ID)
	}
	return in
}

// TaskInput is the create/update payload for a task
type TaskInput struct {
	Title       string   `json:"titulo"`
	Description string   `json:"descripcion"`
	Priority    Priority `json:"prioridad"`
	Status      Status   `json:"estado"`
	DueDate     Date     `json:"fecha_limite"`
	ProjectID   Ref      `json:"proyecto_id"`
	AssigneeID  Ref      `json:"asignado_a_id"`
}

// TaskPatch is a partial task update
type TaskPatch struct {
	Status *Status `json:"estado,omitempty"`
}

// ProjectPatch is a partial project update carrying derived state
type ProjectPatch struct {
	Progress *int    `json:"progreso,omitempty"`
	Status   *Status `json:"estado,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p ProjectPatch) Empty() bool {
	return p.Progress == nil && p.Status == nil
}

// Apply writes the patch onto a project
func (p ProjectPatch) Apply(project *Project) {
	if p.Progress != nil {
		project.Progress = *p.Progress
	}
	if p.Status != nil {
		project.Status = *p.Status
	}
}
