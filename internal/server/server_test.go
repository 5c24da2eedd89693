package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/events"
	"github.com/digitalbuho/buho/internal/models"
	"github.com/sirupsen/logrus"
)

type recorded struct {
	subject string
	id      int64
}

// recorder is a Publisher that remembers what it was given
type recorder struct {
	mu     sync.Mutex
	events []recorded
}

func (r *recorder) Publish(subject string, id int64, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{subject, id})
	return nil
}

func (r *recorder) Close() {}

func (r *recorder) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.subject
	}
	return out
}

var _ events.Publisher = (*recorder)(nil)

type testEnv struct {
	t      *testing.T
	store  *db.DB
	tokens *auth.Manager
	events *recorder
	srv    *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		t:      t,
		store:  store,
		tokens: auth.NewManager("test-secret", time.Hour, 24*time.Hour),
		events: &recorder{},
	}
	env.srv, err = New(Options{
		Store:  store,
		Tokens: env.tokens,
		Events: env.events,
		Log:    logrus.NewEntry(log),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return env
}

// user creates an account with password "secret1" and returns it with an access token
func (e *testEnv) user(email string, superuser bool) (*models.User, string) {
	e.t.Helper()
	hash, err := auth.HashPassword("secret1")
	if err != nil {
		e.t.Fatalf("HashPassword: %v", err)
	}
	u, err := e.store.CreateUser(models.User{
		Email:       email,
		Username:    strings.Split(email, "@")[0],
		IsStaff:     superuser,
		IsSuperuser: superuser,
	}, hash)
	if err != nil {
		e.t.Fatalf("CreateUser: %v", err)
	}
	pair, err := e.tokens.Issue(*u)
	if err != nil {
		e.t.Fatalf("Issue: %v", err)
	}
	return u, pair.Access
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}

func TestTokenEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.user("ana@example.com", false)

	rec := env.do(http.MethodPost, "/api/token/", "", map[string]string{"email": "ana@example.com", "password": "wrong-pass"})
	expectStatus(t, rec, http.StatusUnauthorized)
	if body := decodeBody[map[string]string](t, rec); body["code"] != "no_active_account" {
		t.Errorf("bad credentials body = %v", body)
	}

	rec = env.do(http.MethodPost, "/api/token/", "", map[string]string{"email": "ANA@example.com", "password": "secret1"})
	expectStatus(t, rec, http.StatusOK)
	pair := decodeBody[auth.Pair](t, rec)
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("pair = %+v", pair)
	}

	claims, err := env.tokens.Parse(pair.Access, auth.AccessToken)
	if err != nil {
		t.Fatalf("Parse access: %v", err)
	}
	if claims.Email != "ana@example.com" {
		t.Errorf("claims email = %q", claims.Email)
	}

	rec = env.do(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	expectStatus(t, rec, http.StatusOK)
	if refreshed := decodeBody[auth.Pair](t, rec); refreshed.Access == "" {
		t.Error("refresh returned no access token")
	}

	rec = env.do(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": pair.Access})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(http.MethodPost, "/api/token/", "", map[string]string{"email": "ana@example.com"})
	expectStatus(t, rec, http.StatusBadRequest)
	if fe := decodeBody[map[string][]string](t, rec); len(fe["password"]) == 0 {
		t.Errorf("missing password error, got %v", fe)
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		token  string
		status int
		code   string
	}{
		{"anonymous", "", http.StatusUnauthorized, "not_authenticated"},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized, "token_not_valid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/proyectos/", tt.token, nil)
			expectStatus(t, rec, tt.status)
			if body := decodeBody[map[string]string](t, rec); body["code"] != tt.code {
				t.Errorf("code = %q, want %q", body["code"], tt.code)
			}
		})
	}

	// A token for a user that no longer exists
	u, token := env.user("gone@example.com", false)
	if err := env.store.DeleteUser(u.ID); err != nil {
		t.Fatal(err)
	}
	rec := env.do(http.MethodGet, "/api/proyectos/", token, nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin, token := env.user("admin@example.com", true)
	dev, _ := env.user("dev@example.com", false)

	rec := env.do(http.MethodPost, "/api/proyectos/", token, map[string]any{"descripcion": "x"})
	expectStatus(t, rec, http.StatusBadRequest)
	fe := decodeBody[map[string][]string](t, rec)
	for _, field := range []string{"titulo", "fechaLimite", "responsable_id"} {
		if len(fe[field]) == 0 || fe[field][0] != msgRequired {
			t.Errorf("errors[%s] = %v", field, fe[field])
		}
	}

	rec = env.do(http.MethodPost, "/api/proyectos/", token, map[string]any{
		"titulo":         "Portal",
		"fechaLimite":    "2026-12-31",
		"responsable_id": 999,
	})
	expectStatus(t, rec, http.StatusBadRequest)
	if fe := decodeBody[map[string][]string](t, rec); len(fe["responsable_id"]) == 0 {
		t.Errorf("unknown responsable accepted: %v", fe)
	}

	rec = env.do(http.MethodPost, "/api/proyectos/", token, map[string]any{
		"titulo":              "  Portal  ",
		"prioridad":           "alta",
		"fechaLimite":         "2026-12-31",
		"responsable_id":      admin.ID,
		"desarrolladores_ids": []any{dev.ID},
	})
	expectStatus(t, rec, http.StatusCreated)
	project := decodeBody[models.Project](t, rec)
	if project.Title != "Portal" || project.Priority != models.PriorityHigh || project.Status != models.StatusPending {
		t.Errorf("created project = %+v", project)
	}
	if project.CreatedBy.ID() != admin.ID || len(project.Developers) != 1 {
		t.Errorf("created project refs = %+v", project)
	}

	path := "/api/proyectos/" + itoa(project.ID) + "/"

	for _, body := range []map[string]any{
		{"progreso": 150},
		{"estado": "finished"},
		{"fechaLimite": "mañana"},
	} {
		rec = env.do(http.MethodPatch, path, token, body)
		expectStatus(t, rec, http.StatusBadRequest)
	}

	rec = env.do(http.MethodPatch, path, token, map[string]any{"progreso": 50, "estado": "en progreso"})
	expectStatus(t, rec, http.StatusOK)
	patched := decodeBody[models.Project](t, rec)
	if patched.Progress != 50 || patched.Status != models.StatusInProgress {
		t.Errorf("patched = progreso %d estado %s", patched.Progress, patched.Status)
	}
	if patched.Title != "Portal" || len(patched.Developers) != 1 {
		t.Errorf("PATCH lost fields: %+v", patched)
	}

	rec = env.do(http.MethodPut, path, token, map[string]any{"titulo": "Portal 2"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodPost, "/api/tareas/", token, map[string]any{
		"titulo":        "Maquetar",
		"proyecto_id":   project.ID,
		"asignado_a_id": dev.ID,
		"fecha_limite":  "",
	})
	expectStatus(t, rec, http.StatusCreated)

	rec = env.do(http.MethodGet, path+"tareas/", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if tasks := decodeBody[[]models.Task](t, rec); len(tasks) != 1 || tasks[0].Project.ID() != project.ID {
		t.Errorf("project tasks = %+v", tasks)
	}

	rec = env.do(http.MethodDelete, path, token, nil)
	expectStatus(t, rec, http.StatusNoContent)
	rec = env.do(http.MethodGet, path, token, nil)
	expectStatus(t, rec, http.StatusNotFound)

	want := []string{events.ProjectCreated, events.ProjectUpdated, events.TaskCreated, events.ProjectDeleted}
	got := env.events.subjects()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestProjectVisibility(t *testing.T) {
	env := newTestEnv(t)
	lead, _ := env.user("lead@example.com", false)
	dev, devToken := env.user("dev@example.com", false)
	_, outsiderToken := env.user("outsider@example.com", false)

	due, _ := models.ParseDate("2026-12-31")
	p1, err := env.store.CreateProject(models.ProjectInput{Title: "Uno", DueDate: due, ResponsibleID: models.Ref(lead.ID)}, lead.ID)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := env.store.CreateProject(models.ProjectInput{
		Title: "Dos", DueDate: due, ResponsibleID: models.Ref(lead.ID), DeveloperIDs: []models.Ref{models.Ref(dev.ID)},
	}, lead.ID)
	if err != nil {
		t.Fatal(err)
	}

	rec := env.do(http.MethodGet, "/api/proyectos/", devToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if projects := decodeBody[[]models.Project](t, rec); len(projects) != 1 || projects[0].ID != p2.ID {
		t.Errorf("developer sees %+v", projects)
	}
	rec = env.do(http.MethodGet, "/api/proyectos/"+itoa(p1.ID)+"/", devToken, nil)
	expectStatus(t, rec, http.StatusNotFound)

	// No involvement at all falls back to every project
	rec = env.do(http.MethodGet, "/api/proyectos/", outsiderToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if projects := decodeBody[[]models.Project](t, rec); len(projects) != 2 {
		t.Errorf("outsider sees %d projects, want 2", len(projects))
	}

	rec = env.do(http.MethodGet, "/api/proyectos/?estado=bogus", outsiderToken, nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestTaskVisibilityAndFilters(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin@example.com", true)
	lead, leadToken := env.user("lead@example.com", false)
	worker, workerToken := env.user("worker@example.com", false)

	due, _ := models.ParseDate("2026-12-31")
	project, err := env.store.CreateProject(models.ProjectInput{Title: "P", DueDate: due, ResponsibleID: models.Ref(lead.ID)}, lead.ID)
	if err != nil {
		t.Fatal(err)
	}
	mine, err := env.store.CreateTask(models.TaskInput{
		Title: "Asignada", Priority: models.PriorityUrgent, Status: models.StatusPending,
		ProjectID: models.Ref(project.ID), AssigneeID: models.Ref(worker.ID),
	}, lead.ID)
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.store.CreateTask(models.TaskInput{
		Title: "Libre", Priority: models.PriorityLow, Status: models.StatusCompleted, ProjectID: models.Ref(project.ID),
	}, lead.ID)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		query string
		want  []int64
	}{
		{"admin sees all", adminToken, "", []int64{mine.ID, other.ID}},
		{"lead sees project tasks", leadToken, "", []int64{mine.ID, other.ID}},
		{"assignee sees own", workerToken, "", []int64{mine.ID}},
		{"status filter", adminToken, "?estado=completada", []int64{other.ID}},
		{"priority filter", adminToken, "?prioridad=urgente", []int64{mine.ID}},
		{"search", adminToken, "?search=libr", []int64{other.ID}},
		{"project filter", adminToken, "?proyecto=" + itoa(project.ID), []int64{mine.ID, other.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/tareas/"+tt.query, tt.token, nil)
			expectStatus(t, rec, http.StatusOK)
			tasks := decodeBody[[]models.Task](t, rec)
			if len(tasks) != len(tt.want) {
				t.Fatalf("got %d tasks, want %d", len(tasks), len(tt.want))
			}
			for i, id := range tt.want {
				if tasks[i].ID != id {
					t.Errorf("tasks[%d] = %d, want %d", i, tasks[i].ID, id)
				}
			}
		})
	}

	rec := env.do(http.MethodGet, "/api/tareas/?prioridad=whenever", adminToken, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodGet, "/api/tareas/"+itoa(other.ID)+"/", workerToken, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = env.do(http.MethodPatch, "/api/tareas/"+itoa(mine.ID)+"/", workerToken, map[string]any{"estado": "C"})
	expectStatus(t, rec, http.StatusOK)
	if task := decodeBody[models.Task](t, rec); task.Status != models.StatusCompleted || task.Title != "Asignada" {
		t.Errorf("patched task = %+v", task)
	}

	rec = env.do(http.MethodPost, "/api/tareas/", adminToken, map[string]any{"titulo": "Huérfana", "proyecto_id": 999})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestUsersAndRoles(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin@example.com", true)
	plain, plainToken := env.user("plain@example.com", false)

	rec := env.do(http.MethodGet, "/api/users/", plainToken, nil)
	expectStatus(t, rec, http.StatusForbidden)

	// Open registration cannot grant staff flags
	rec = env.do(http.MethodPost, "/api/users/", "", map[string]any{
		"email": "new@example.com", "username": "new", "password": "secret1", "is_staff": true,
	})
	expectStatus(t, rec, http.StatusCreated)
	created := decodeBody[models.User](t, rec)
	if created.IsStaff || created.Password != "" {
		t.Errorf("created user = %+v", created)
	}

	rec = env.do(http.MethodPost, "/api/users/", "", map[string]any{"email": "not-an-email", "username": "x", "password": "123"})
	expectStatus(t, rec, http.StatusBadRequest)
	fe := decodeBody[map[string][]string](t, rec)
	if len(fe["email"]) == 0 || len(fe["password"]) == 0 {
		t.Errorf("errors = %v", fe)
	}

	rec = env.do(http.MethodPost, "/api/users/", "", map[string]any{"email": "new@example.com", "username": "dup", "password": "secret1"})
	expectStatus(t, rec, http.StatusBadRequest)
	if fe := decodeBody[map[string][]string](t, rec); len(fe["email"]) == 0 {
		t.Errorf("duplicate email errors = %v", fe)
	}

	rec = env.do(http.MethodGet, "/api/users/", adminToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if users := decodeBody[[]models.User](t, rec); len(users) != 3 {
		t.Errorf("admin lists %d users, want 3", len(users))
	}

	rec = env.do(http.MethodPost, "/api/roles/", adminToken, map[string]any{"name": "Desarrollador"})
	expectStatus(t, rec, http.StatusCreated)
	role := decodeBody[models.Role](t, rec)

	userPath := "/api/users/" + itoa(plain.ID) + "/"
	rec = env.do(http.MethodPost, userPath+"add_role/", adminToken, map[string]any{"role_id": role.ID})
	expectStatus(t, rec, http.StatusOK)
	if u := decodeBody[models.User](t, rec); !u.HasRole(role.ID) {
		t.Errorf("role not added: %+v", u.Roles)
	}

	rec = env.do(http.MethodPost, userPath+"add_role/", adminToken, map[string]any{"role_id": 999})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodPost, userPath+"update_roles/", adminToken, map[string]any{"role_ids": []int64{}})
	expectStatus(t, rec, http.StatusOK)
	if u := decodeBody[models.User](t, rec); len(u.Roles) != 0 {
		t.Errorf("roles not cleared: %+v", u.Roles)
	}

	rec = env.do(http.MethodPatch, userPath, adminToken, map[string]any{"first_name": "Plain"})
	expectStatus(t, rec, http.StatusOK)
	if u := decodeBody[models.User](t, rec); u.FirstName != "Plain" || u.Email != "plain@example.com" {
		t.Errorf("patched user = %+v", u)
	}

	rec = env.do(http.MethodDelete, userPath, adminToken, nil)
	expectStatus(t, rec, http.StatusNoContent)
}

func TestDepartmentsAndWorkers(t *testing.T) {
	env := newTestEnv(t)
	admin, adminToken := env.user("admin@example.com", true)
	plain, plainToken := env.user("plain@example.com", false)

	rec := env.do(http.MethodPost, "/api/departamentos/", adminToken, map[string]any{"nombre": "Ingeniería"})
	expectStatus(t, rec, http.StatusCreated)
	dept := decodeBody[models.Department](t, rec)

	rec = env.do(http.MethodPost, "/api/trabajadores/", plainToken, map[string]any{
		"user_id": admin.ID, "cargo": "CTO", "fecha_contratacion": "2024-01-15",
	})
	expectStatus(t, rec, http.StatusForbidden)

	rec = env.do(http.MethodPost, "/api/trabajadores/", plainToken, map[string]any{
		"user_id": plain.ID, "departamento_id": dept.ID, "cargo": "Desarrollador", "fecha_contratacion": "2024-01-15",
	})
	expectStatus(t, rec, http.StatusCreated)
	worker := decodeBody[models.Worker](t, rec)
	if !worker.Active || worker.Department == nil || worker.Department.ID != dept.ID {
		t.Errorf("worker = %+v", worker)
	}

	if _, err := env.store.CreateWorker(models.WorkerInput{UserID: models.Ref(admin.ID), Position: "CTO"}); err != nil {
		t.Fatal(err)
	}

	rec = env.do(http.MethodGet, "/api/trabajadores/", plainToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if workers := decodeBody[[]models.Worker](t, rec); len(workers) != 1 {
		t.Errorf("plain user sees %d workers, want 1", len(workers))
	}
	rec = env.do(http.MethodGet, "/api/trabajadores/", adminToken, nil)
	if workers := decodeBody[[]models.Worker](t, rec); len(workers) != 2 {
		t.Errorf("admin sees %d workers, want 2", len(workers))
	}

	rec = env.do(http.MethodPatch, "/api/trabajadores/"+itoa(worker.ID)+"/", plainToken, map[string]any{"activo": false})
	expectStatus(t, rec, http.StatusOK)
	if w := decodeBody[models.Worker](t, rec); w.Active || w.Position != "Desarrollador" {
		t.Errorf("patched worker = %+v", w)
	}
}

func TestServiceEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	env.do(http.MethodGet, "/api/proyectos/", "", nil)
	rec = env.do(http.MethodGet, "/metrics", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `buho_http_requests_total{method="GET",route="/api/proyectos/",status="401"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/nada/", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestSeed(t *testing.T) {
	env := newTestEnv(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	admin := Admin{Email: "admin@example.com", Password: "secret1"}

	for range 2 {
		if err := Seed(env.store, admin, logrus.NewEntry(log)); err != nil {
			t.Fatalf("Seed: %v", err)
		}
	}

	u, _, err := env.store.GetUserByEmail("admin@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !u.IsStaff || !u.IsSuperuser {
		t.Errorf("admin flags = %v/%v", u.IsStaff, u.IsSuperuser)
	}
	if n, _ := env.store.ProjectCount(); n != len(demoProjects) {
		t.Errorf("projects = %d, want %d", n, len(demoProjects))
	}
	tasks, err := env.store.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 10 {
		t.Errorf("tasks = %d, want 10", len(tasks))
	}

	if err := Seed(env.store, Admin{}, nil); err == nil {
		t.Error("Seed without credentials should fail")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
