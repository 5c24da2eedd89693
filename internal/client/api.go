package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/models"
)

func idPath(collection string, id int64, rest ...string) string {
	p := collection + "/" + strconv.FormatInt(id, 10) + "/"
	for _, r := range rest {
		p += r + "/"
	}
	return p
}

// Login exchanges credentials for a token pair and stores it
func (c *Client) Login(ctx context.Context, email, password string) (*auth.Claims, error) {
	var pair auth.Pair
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "token",
		body:   map[string]string{"email": email, "password": password},
		out:    &pair,
		anon:   true,
	})
	if err != nil {
		return nil, err
	}
	if pair.Access == "" {
		return nil, errors.New("token response carried no access token")
	}
	if err := c.tokens.SetTokens(pair.Access, pair.Refresh); err != nil {
		return nil, fmt.Errorf("store tokens: %w", err)
	}
	return auth.DecodeUnverified(pair.Access)
}

// Refresh trades the stored refresh token for a new access token
func (c *Client) Refresh(ctx context.Context) error {
	_, refresh, err := c.tokens.Tokens()
	if err != nil {
		return err
	}
	if refresh == "" {
		return ErrNoToken
	}
	var pair auth.Pair
	err = c.send(ctx, request{
		method: http.MethodPost,
		path:   "token/refresh",
		body:   map[string]string{"refresh": refresh},
		out:    &pair,
		anon:   true,
	})
	if err != nil {
		return err
	}
	return c.tokens.SetTokens(pair.Access, pair.Refresh)
}

// Logout forgets the stored tokens
func (c *Client) Logout() error {
	return c.tokens.ClearTokens()
}

// CurrentUser decodes the stored access token without contacting the API
func (c *Client) CurrentUser() (*auth.Claims, error) {
	access, _, err := c.tokens.Tokens()
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, ErrNoToken
	}
	return auth.DecodeUnverified(access)
}

// Users

// ListUsers returns the users the caller may see
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, request{method: http.MethodGet, path: "users", out: &users})
	return users, err
}

// CreateUser registers a new account
func (c *Client) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	var created models.User
	err := c.do(ctx, request{method: http.MethodPost, path: "users", body: u, out: &created})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// PatchUser sends a partial update; fields is the JSON body
func (c *Client) PatchUser(ctx context.Context, id int64, fields map[string]any) (*models.User, error) {
	var updated models.User
	err := c.do(ctx, request{method: http.MethodPatch, path: idPath("users", id), body: fields, out: &updated})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteUser removes an account
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: idPath("users", id)})
}

// AddRole grants one role to a user
func (c *Client) AddRole(ctx context.Context, userID, roleID int64) (*models.User, error) {
	var u models.User
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   idPath("users", userID, "add_role"),
		body:   map[string]int64{"role_id": roleID},
		out:    &u,
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateRoles replaces the user's roles with roleIDs
func (c *Client) UpdateRoles(ctx context.Context, userID int64, roleIDs []int64) (*models.User, error) {
	if roleIDs == nil {
		roleIDs = []int64{}
	}
	var u models.User
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   idPath("users", userID, "update_roles"),
		body:   map[string][]int64{"role_ids": roleIDs},
		out:    &u,
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Roles

// ListRoles returns every role
func (c *Client) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := c.do(ctx, request{method: http.MethodGet, path: "roles", out: &roles})
	return roles, err
}

// CreateRole adds a role
func (c *Client) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	var role models.Role
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "roles",
		body:   models.Role{Name: name, Description: description},
		out:    &role,
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// DeleteRole removes a role
func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: idPath("roles", id)})
}

// Projects

// ListProjects returns the projects visible to the caller
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := c.do(ctx, request{method: http.MethodGet, path: "proyectos", out: &projects})
	return projects, err
}

// GetProject fetches one project
func (c *Client) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, request{method: http.MethodGet, path: idPath("proyectos", id), out: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject creates a project
func (c *Client) CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, request{method: http.MethodPost, path: "proyectos", body: in, out: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject replaces every editable field of a project
func (c *Client) UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, request{method: http.MethodPut, path: idPath("proyectos", id), body: in, out: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// PatchProject sends derived progress and status back to the API
func (c *Client) PatchProject(ctx context.Context, id int64, patch models.ProjectPatch) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, request{method: http.MethodPatch, path: idPath("proyectos", id), body: patch, out: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject removes a project and its tasks
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: idPath("proyectos", id)})
}

// ProjectTasks loads a project's tasks from its own endpoint. When that call
// fails or comes back empty the full task list is filtered instead.
func (c *Client) ProjectTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	var tasks []models.Task
	err := c.do(ctx, request{method: http.MethodGet, path: idPath("proyectos", projectID, "tareas"), out: &tasks})
	if err == nil && len(tasks) > 0 {
		return tasks, nil
	}
	if errors.Is(err, ErrNoToken) {
		return nil, err
	}

	all, lerr := c.ListTasks(ctx, nil)
	if lerr != nil {
		if err != nil {
			return nil, err
		}
		return nil, lerr
	}
	tasks = tasks[:0]
	for _, t := range all {
		if t.Project.ID() == projectID {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// Tasks

// ListTasks lists tasks; query may carry proyecto, estado, prioridad and search
func (c *Client) ListTasks(ctx context.Context, query url.Values) ([]models.Task, error) {
	var tasks []models.Task
	err := c.do(ctx, request{method: http.MethodGet, path: "tareas", query: query, out: &tasks})
	return tasks, err
}

// CreateTask creates a task
func (c *Client) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, request{method: http.MethodPost, path: "tareas", body: in, out: &t}); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask replaces every editable field of a task
func (c *Client) UpdateTask(ctx context.Context, id int64, in models.TaskInput) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, request{method: http.MethodPut, path: idPath("tareas", id), body: in, out: &t}); err != nil {
		return nil, err
	}
	return &t, nil
}

// PatchTask sends a partial task update
func (c *Client) PatchTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, request{method: http.MethodPatch, path: idPath("tareas", id), body: patch, out: &t}); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: idPath("tareas", id)})
}
