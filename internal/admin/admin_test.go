package admin

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/models"
)

type fakeAPI struct {
	project  models.Project
	tasks    []models.Task
	users    []models.User
	projects []models.Project

	projectErr, tasksErr, usersErr, listProjectsErr, listTasksErr error
	patchProjectErr, patchTaskErr                                 error

	projectPatches []models.ProjectPatch
	taskPatches    map[int64]models.TaskPatch
}

func (f *fakeAPI) GetProject(context.Context, int64) (*models.Project, error) {
	if f.projectErr != nil {
		return nil, f.projectErr
	}
	p := f.project
	return &p, nil
}

func (f *fakeAPI) ProjectTasks(context.Context, int64) ([]models.Task, error) {
	return f.tasks, f.tasksErr
}

func (f *fakeAPI) PatchProject(_ context.Context, _ int64, patch models.ProjectPatch) (*models.Project, error) {
	f.projectPatches = append(f.projectPatches, patch)
	if f.patchProjectErr != nil {
		return nil, f.patchProjectErr
	}
	p := f.project
	patch.Apply(&p)
	return &p, nil
}

func (f *fakeAPI) PatchTask(_ context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	if f.taskPatches == nil {
		f.taskPatches = map[int64]models.TaskPatch{}
	}
	f.taskPatches[id] = patch
	if f.patchTaskErr != nil {
		return nil, f.patchTaskErr
	}
	return &models.Task{ID: id, Status: *patch.Status}, nil
}

func (f *fakeAPI) ListUsers(context.Context) ([]models.User, error) {
	return f.users, f.usersErr
}

func (f *fakeAPI) ListProjects(context.Context) ([]models.Project, error) {
	return f.projects, f.listProjectsErr
}

func (f *fakeAPI) ListTasks(context.Context, url.Values) ([]models.Task, error) {
	return f.tasks, f.listTasksErr
}

func task(id int64, status models.Status) models.Task {
	return models.Task{ID: id, Title: "t", Status: status, Project: 1}
}

func TestLoadProjectDetail(t *testing.T) {
	tests := []struct {
		name         string
		project      models.Project
		tasks        []models.Task
		wantProgress int
		wantStatus   models.Status
		wantPatch    bool
	}{
		{
			name:         "in sync",
			project:      models.Project{ID: 1, Progress: 50, Status: models.StatusInProgress},
			tasks:        []models.Task{task(1, models.StatusCompleted), task(2, models.StatusPending)},
			wantProgress: 50, wantStatus: models.StatusInProgress,
		},
		{
			name:         "stale progress",
			project:      models.Project{ID: 1, Progress: 10, Status: models.StatusPending},
			tasks:        []models.Task{task(1, models.StatusCompleted), task(2, models.StatusCompleted), task(3, models.StatusPending)},
			wantProgress: 67, wantStatus: models.StatusInProgress, wantPatch: true,
		},
		{
			name:         "delayed kept",
			project:      models.Project{ID: 1, Progress: 100, Status: models.StatusDelayed},
			tasks:        []models.Task{task(1, models.StatusCompleted)},
			wantProgress: 100, wantStatus: models.StatusDelayed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{project: tt.project, tasks: tt.tasks}
			detail, err := LoadProjectDetail(context.Background(), api, 1)
			if err != nil {
				t.Fatalf("LoadProjectDetail: %v", err)
			}
			if detail.Project.Progress != tt.wantProgress || detail.Project.Status != tt.wantStatus {
				t.Errorf("project = %d%% %s, want %d%% %s",
					detail.Project.Progress, detail.Project.Status, tt.wantProgress, tt.wantStatus)
			}
			if got := len(api.projectPatches) > 0; got != tt.wantPatch {
				t.Errorf("patched = %v, want %v", got, tt.wantPatch)
			}
		})
	}
}

func TestLoadProjectDetailErrors(t *testing.T) {
	boom := errors.New("boom")

	api := &fakeAPI{projectErr: boom}
	if _, err := LoadProjectDetail(context.Background(), api, 1); !errors.Is(err, boom) {
		t.Errorf("project error = %v", err)
	}

	// A failing correction is not fatal
	api = &fakeAPI{
		project:         models.Project{ID: 1, Status: models.StatusPending},
		tasks:           []models.Task{task(1, models.StatusCompleted)},
		patchProjectErr: boom,
	}
	detail, err := LoadProjectDetail(context.Background(), api, 1)
	if err != nil {
		t.Fatalf("LoadProjectDetail: %v", err)
	}
	if detail.Project.Progress != 100 || detail.Project.Status != models.StatusCompleted {
		t.Errorf("detail = %+v", detail.Project)
	}
}

func TestToggleTask(t *testing.T) {
	detail := ProjectDetail{
		Project: models.Project{ID: 1, Progress: 50, Status: models.StatusInProgress},
		Tasks:   []models.Task{task(1, models.StatusCompleted), task(2, models.StatusPending)},
	}
	api := &fakeAPI{project: detail.Project}

	next, err := ToggleTask(context.Background(), api, detail, 2)
	if err != nil {
		t.Fatalf("ToggleTask: %v", err)
	}
	if next.Project.Progress != 100 || next.Project.Status != models.StatusCompleted {
		t.Errorf("project = %+v", next.Project)
	}
	if *api.taskPatches[2].Status != models.StatusCompleted {
		t.Errorf("task patch = %v", *api.taskPatches[2].Status)
	}
	if len(api.projectPatches) != 1 || *api.projectPatches[0].Progress != 100 {
		t.Errorf("project patches = %+v", api.projectPatches)
	}
	if detail.Tasks[1].Status != models.StatusPending {
		t.Error("input detail was modified")
	}

	if _, err := ToggleTask(context.Background(), api, detail, 99); !errors.Is(err, models.ErrTaskNotFound) {
		t.Errorf("unknown task err = %v", err)
	}

	api = &fakeAPI{patchTaskErr: errors.New("offline")}
	next, err = ToggleTask(context.Background(), api, detail, 1)
	if err == nil {
		t.Fatal("expected error when the task update fails")
	}
	if next.Tasks[0].Status != models.StatusPending {
		t.Errorf("optimistic state lost: %+v", next.Tasks[0])
	}
	if len(api.projectPatches) != 0 {
		t.Error("project patched after the task update failed")
	}
}

func TestFilterTasks(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Title: "Diseñar login", Status: "P", Priority: "A", Project: 1},
		{ID: 2, Title: "API", Description: "Endpoints de LOGIN", Status: "C", Priority: "B", Project: 2},
		{ID: 3, Title: "Docs", Status: "E", Priority: "U", Project: 1},
	}
	tests := []struct {
		name   string
		filter TaskFilter
		want   []int64
	}{
		{"no filter", TaskFilter{}, []int64{1, 2, 3}},
		{"all keyword", TaskFilter{Status: "all", Priority: "ALL"}, []int64{1, 2, 3}},
		{"search title and description", TaskFilter{Search: "login"}, []int64{1, 2}},
		{"project", TaskFilter{ProjectID: 1}, []int64{1, 3}},
		{"status by name", TaskFilter{Status: "completada"}, []int64{2}},
		{"priority by code", TaskFilter{Priority: "U"}, []int64{3}},
		{"priority by english name", TaskFilter{Priority: "high"}, []int64{1}},
		{"combined", TaskFilter{ProjectID: 1, Status: "E"}, []int64{3}},
		{"unknown status", TaskFilter{Status: "bogus"}, nil},
		{"unknown priority", TaskFilter{Priority: "bogus"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterTasks(tasks, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tasks, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d] = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestDashboardStats(t *testing.T) {
	api := &fakeAPI{
		users:    make([]models.User, 4),
		projects: []models.Project{{Status: "C"}, {Status: "P"}, {Status: "completado"}},
		tasks:    []models.Task{task(1, "C"), task(2, "P")},
	}
	stats, err := DashboardStats(context.Background(), api)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Users: 4, Projects: 3, Tasks: 2, CompletedProjects: 2, CompletedTasks: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	api.usersErr = errors.New("forbidden")
	stats, err = DashboardStats(context.Background(), api)
	if err != nil || stats.Users != 0 || stats.Projects != 3 {
		t.Errorf("partial failure = %+v, %v", stats, err)
	}

	api.listProjectsErr = errors.New("down")
	api.listTasksErr = errors.New("down")
	if _, err := DashboardStats(context.Background(), api); err == nil {
		t.Error("expected an error when every listing failed")
	}
}

func TestHomeStats(t *testing.T) {
	me := "ana@example.com"
	projects := []models.Project{
		{ID: 1, Status: "P", Responsible: &models.User{Email: me}},
		{ID: 2, Status: "E", Developers: []models.User{{Email: "x@example.com"}, {Email: me}}},
		{ID: 3, Status: "C", Responsible: &models.User{Email: "x@example.com"}},
		{ID: 4, Status: "A", Responsible: &models.User{Email: me}},
	}
	h := HomeStats(projects, me)
	if len(h.Projects) != 3 || h.Pending != 1 || h.InProgress != 1 || h.Completed != 0 || h.Delayed != 1 {
		t.Errorf("home = %+v", h)
	}
	if got := HomeStats(projects, ""); len(got.Projects) != 0 {
		t.Errorf("anonymous home = %+v", got)
	}
}

func TestValidateLogin(t *testing.T) {
	tests := []struct {
		email, password string
		fields          []string
	}{
		{"ana@example.com", "secret1", nil},
		{"", "", []string{"email", "password"}},
		{"ana@example", "secret1", []string{"email"}},
		{"ana@example.com", "123", []string{"password"}},
	}
	for _, tt := range tests {
		err := ValidateLogin(tt.email, tt.password)
		if tt.fields == nil {
			if err != nil {
				t.Errorf("ValidateLogin(%q) = %v", tt.email, err)
			}
			continue
		}
		var fe FormErrors
		if !errors.As(err, &fe) {
			t.Fatalf("ValidateLogin(%q, %q) = %v", tt.email, tt.password, err)
		}
		for _, f := range tt.fields {
			if fe[f] == "" {
				t.Errorf("ValidateLogin(%q, %q): no error for %s", tt.email, tt.password, f)
			}
		}
	}
}

func TestValidateForms(t *testing.T) {
	due, _ := models.ParseDate("2026-12-31")

	if err := ValidateProjectForm(models.ProjectInput{Title: "P", DueDate: due, ResponsibleID: 1}); err != nil {
		t.Errorf("valid project: %v", err)
	}
	if err := ValidateProjectForm(models.ProjectInput{Title: "P", ResponsibleID: 1}); err == nil {
		t.Error("project without due date accepted")
	}
	if err := ValidateProjectForm(models.ProjectInput{Title: "P", DueDate: due}); err == nil {
		t.Error("project without responsable accepted")
	}

	if err := ValidateUserForm(models.User{Email: "a@b.c", Username: "a"}, true); err == nil {
		t.Error("new user without password accepted")
	}
	if err := ValidateUserForm(models.User{Email: "a@b.c", Username: "a"}, false); err != nil {
		t.Errorf("edit without password: %v", err)
	}

	if err := ValidateTaskForm(models.TaskInput{Title: "T"}); err == nil {
		t.Error("task without project accepted")
	}
	if err := ValidateTaskForm(models.TaskInput{Title: "T", ProjectID: 3}); err != nil {
		t.Errorf("valid task: %v", err)
	}

	if CanAdminister(nil) || CanAdminister(&auth.Claims{}) || !CanAdminister(&auth.Claims{IsStaff: true}) {
		t.Error("CanAdminister mismatch")
	}
}
