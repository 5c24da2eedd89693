package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/models"
	"github.com/digitalbuho/buho/internal/server"
	"github.com/sirupsen/logrus"
)

// newAPI starts a real API server backed by a temp database with one admin
func newAPI(t *testing.T) (*httptest.Server, *db.DB) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	if err := server.Seed(store, server.Admin{Email: "admin@example.com", Password: "secret1"}, logrus.NewEntry(log)); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	srv, err := server.New(server.Options{
		Store:  store,
		Tokens: auth.NewManager("test-secret", time.Hour, 24*time.Hour),
		Log:    logrus.NewEntry(log),
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, store
}

func newClient(t *testing.T, baseURL string, tokens TokenStore) *Client {
	t.Helper()
	c, err := New(baseURL+"/api", 5*time.Second, tokens)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{"fields sorted", &APIError{Status: 400, Fields: map[string][]string{
			"titulo": {"Este campo es requerido."},
			"email":  {"a", "b"},
		}}, "email: a, b; titulo: Este campo es requerido."},
		{"detail", &APIError{Status: 401, Detail: "No autorizado."}, "No autorizado."},
		{"bare status", &APIError{Status: 502}, "HTTP 502 Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeError(t *testing.T) {
	ae := decodeError(400, []byte(`{"email": ["Ya existe."], "non_field_errors": "Uno solo"}`))
	if len(ae.Fields["email"]) != 1 || ae.Fields["non_field_errors"][0] != "Uno solo" {
		t.Errorf("fields = %v", ae.Fields)
	}

	ae = decodeError(401, []byte(`{"detail": "Token inválido", "code": "token_not_valid"}`))
	if ae.Detail != "Token inválido" || ae.Code != "token_not_valid" || ae.Fields != nil {
		t.Errorf("detail error = %+v", ae)
	}

	ae = decodeError(500, []byte("<html>boom</html>"))
	if ae.Detail != "<html>boom</html>" {
		t.Errorf("plain body = %q", ae.Detail)
	}
}

func TestNoTokenSkipsNetwork(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer ts.Close()

	c := newClient(t, ts.URL, nil)
	if _, err := c.ListProjects(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
	if _, err := c.CurrentUser(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("CurrentUser err = %v, want ErrNoToken", err)
	}
	if hits != 0 {
		t.Errorf("server was called %d times", hits)
	}
}

func TestLoginAndCRUD(t *testing.T) {
	ts, store := newAPI(t)
	ctx := context.Background()
	c := newClient(t, ts.URL, store)

	if _, err := c.Login(ctx, "admin@example.com", "nope-nope"); !IsUnauthorized(err) {
		t.Fatalf("bad login err = %v", err)
	}

	claims, err := c.Login(ctx, "admin@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !claims.CanAdminister() {
		t.Errorf("admin claims = %+v", claims)
	}
	if access, refresh, _ := store.Tokens(); access == "" || refresh == "" {
		t.Fatal("tokens were not stored")
	}
	if me, err := c.CurrentUser(); err != nil || me.Email != "admin@example.com" {
		t.Fatalf("CurrentUser = %+v, %v", me, err)
	}

	u, err := c.CreateUser(ctx, models.User{Email: "dev@example.com", Username: "dev", Password: "secret1"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err = c.CreateUser(ctx, models.User{Email: "bad", Username: "bad"})
	var ae *APIError
	if !errors.As(err, &ae) || ae.Status != http.StatusBadRequest || len(ae.Fields["email"]) == 0 {
		t.Fatalf("invalid user err = %v", err)
	}

	role, err := c.CreateRole(ctx, "QA", "")
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if u, err = c.AddRole(ctx, u.ID, role.ID); err != nil || !u.HasRole(role.ID) {
		t.Fatalf("AddRole = %+v, %v", u, err)
	}
	if u, err = c.UpdateRoles(ctx, u.ID, nil); err != nil || len(u.Roles) != 0 {
		t.Fatalf("UpdateRoles = %+v, %v", u, err)
	}
	if u, err = c.PatchUser(ctx, u.ID, map[string]any{"last_name": "Pérez"}); err != nil || u.LastName != "Pérez" {
		t.Fatalf("PatchUser = %+v, %v", u, err)
	}

	due, _ := models.ParseDate("2027-01-31")
	p, err := c.CreateProject(ctx, models.ProjectInput{
		Title: "Cliente", DueDate: due, ResponsibleID: models.Ref(u.ID), Priority: models.PriorityLow,
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	task, err := c.CreateTask(ctx, models.TaskInput{Title: "Primera", ProjectID: models.Ref(p.ID)})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	done := models.StatusCompleted
	if task, err = c.PatchTask(ctx, task.ID, models.TaskPatch{Status: &done}); err != nil || task.Status != done {
		t.Fatalf("PatchTask = %+v, %v", task, err)
	}

	tasks, err := c.ProjectTasks(ctx, p.ID)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("ProjectTasks = %d, %v", len(tasks), err)
	}

	filtered, err := c.ListTasks(ctx, url.Values{"proyecto": {itoa(p.ID)}, "estado": {"C"}})
	if err != nil || len(filtered) != 1 {
		t.Fatalf("ListTasks filtered = %d, %v", len(filtered), err)
	}

	progress := 100
	if p, err = c.PatchProject(ctx, p.ID, models.ProjectPatch{Progress: &progress, Status: &done}); err != nil || p.Progress != 100 {
		t.Fatalf("PatchProject = %+v, %v", p, err)
	}

	if err := c.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := c.GetProject(ctx, p.ID); !IsNotFound(err) {
		t.Fatalf("GetProject after delete err = %v", err)
	}

	if err := c.Logout(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListUsers(ctx); !errors.Is(err, ErrNoToken) {
		t.Errorf("after logout err = %v", err)
	}
}

func TestRefreshOnUnauthorized(t *testing.T) {
	ts, store := newAPI(t)
	ctx := context.Background()
	c := newClient(t, ts.URL, store)

	if _, err := c.Login(ctx, "admin@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	_, refresh, _ := store.Tokens()
	if err := store.SetTokens("expired.or.garbage", refresh); err != nil {
		t.Fatal(err)
	}

	projects, err := c.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects after refresh: %v", err)
	}
	if len(projects) == 0 {
		t.Error("expected seeded projects")
	}
	if access, _, _ := store.Tokens(); access == "expired.or.garbage" {
		t.Error("access token was not replaced")
	}
}

func TestRejectedRefreshClearsTokens(t *testing.T) {
	ts, _ := newAPI(t)
	ctx := context.Background()
	tokens := &MemoryTokens{access: "garbage.access", refresh: "garbage.refresh"}
	c := newClient(t, ts.URL, tokens)

	_, err := c.ListProjects(ctx)
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want 401", err)
	}
	if access, refresh, _ := tokens.Tokens(); access != "" || refresh != "" {
		t.Errorf("tokens kept: access=%q refresh=%q", access, refresh)
	}
	if _, err := c.ListProjects(ctx); !errors.Is(err, ErrNoToken) {
		t.Errorf("second call err = %v, want ErrNoToken", err)
	}
}

func TestUnreachableRefreshKeepsTokens(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/token/refresh/") {
			// drop the connection so the refresh fails in transport
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"expired","code":"token_not_valid"}`)
	}))
	defer ts.Close()

	tokens := &MemoryTokens{access: "a", refresh: "r"}
	c := newClient(t, ts.URL, tokens)
	if _, err := c.ListProjects(context.Background()); !IsUnauthorized(err) {
		t.Fatalf("err = %v, want 401", err)
	}
	if access, refresh, _ := tokens.Tokens(); access != "a" || refresh != "r" {
		t.Errorf("tokens changed on a transport failure: %q %q", access, refresh)
	}
}

func TestProjectTasksFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/proyectos/7/tareas/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/tareas/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"id": 1, "titulo": "a", "proyecto": 7},
			{"id": 2, "titulo": "b", "proyecto": {"id": 8}},
			{"id": 3, "titulo": "c", "proyecto": "7"}
		]`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newClient(t, ts.URL, &MemoryTokens{access: "token"})
	tasks, err := c.ProjectTasks(context.Background(), 7)
	if err != nil {
		t.Fatalf("ProjectTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != 1 || tasks[1].ID != 3 {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "127.0.0.1:8000", "://nope"} {
		if _, err := New(raw, time.Second, nil); err == nil {
			t.Errorf("New(%q) succeeded", raw)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
