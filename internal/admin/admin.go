// Package admin holds the view logic behind the terminal front end: loading
// and reconciling project detail, toggling tasks, filtering and statistics.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/digitalbuho/buho/internal/models"
)

// ProjectAPI is the part of the REST client project detail needs
type ProjectAPI interface {
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	ProjectTasks(ctx context.Context, projectID int64) ([]models.Task, error)
	PatchProject(ctx context.Context, id int64, patch models.ProjectPatch) (*models.Project, error)
	PatchTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error)
}

// StatsAPI is the part of the REST client the dashboard needs
type StatsAPI interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	ListTasks(ctx context.Context, query url.Values) ([]models.Task, error)
}

// ProjectDetail is a project together with its tasks
type ProjectDetail struct {
	Project models.Project
	Tasks   []models.Task
}

// LoadProjectDetail fetches a project and its tasks and brings the stored
// progress and status in line with the tasks. A failed correction is logged
// and the corrected values are still shown.
func LoadProjectDetail(ctx context.Context, api ProjectAPI, id int64) (ProjectDetail, error) {
	project, err := api.GetProject(ctx, id)
	if err != nil {
		return ProjectDetail{}, fmt.Errorf("load project %d: %w", id, err)
	}
	tasks, err := api.ProjectTasks(ctx, id)
	if err != nil {
		return ProjectDetail{}, fmt.Errorf("load tasks of project %d: %w", id, err)
	}

	detail := ProjectDetail{Project: *project, Tasks: tasks}
	patch, changed := models.Reconcile(detail.Project, tasks)
	if !changed {
		return detail, nil
	}
	patch.Apply(&detail.Project)
	if _, err := api.PatchProject(ctx, id, patch); err != nil {
		log.Warn("could not store reconciled project state", "project", id, "err", err)
	}
	return detail, nil
}

// ToggleTask flips a task between completed and pending and sends the task
// and project updates. The returned detail is the optimistic state; when an
// update fails the error is returned too and the caller should reload.
func ToggleTask(ctx context.Context, api ProjectAPI, detail ProjectDetail, taskID int64) (ProjectDetail, error) {
	project, tasks, taskPatch, projectPatch, err := models.ToggleTask(detail.Project, detail.Tasks, taskID)
	if err != nil {
		return detail, err
	}
	next := ProjectDetail{Project: project, Tasks: tasks}

	if _, err := api.PatchTask(ctx, taskID, taskPatch); err != nil {
		return next, fmt.Errorf("update task %d: %w", taskID, err)
	}
	if !projectPatch.Empty() {
		if _, err := api.PatchProject(ctx, project.ID, projectPatch); err != nil {
			return next, fmt.Errorf("update project %d: %w", project.ID, err)
		}
	}
	return next, nil
}

// All disables a status, priority or project filter
const All = "all"

// TaskFilter narrows a task list. Empty or All fields match everything.
type TaskFilter struct {
	Search    string
	ProjectID int64
	Status    string
	Priority  string
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}

// FilterTasks applies the filter, keeping the input order. An unrecognised
// status or priority matches nothing.
func FilterTasks(tasks []models.Task, f TaskFilter) []models.Task {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Task, 0, len(tasks))

	filterStatus, filterPriority := active(f.Status), active(f.Priority)
	var (
		status   models.Status
		priority models.Priority
		ok       bool
	)
	if filterStatus {
		if status, ok = models.ParseStatus(f.Status); !ok {
			return out
		}
	}
	if filterPriority {
		if priority, ok = models.ParsePriority(f.Priority); !ok {
			return out
		}
	}
	for _, t := range tasks {
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if f.ProjectID != 0 && t.Project.ID() != f.ProjectID {
			continue
		}
		if filterStatus && models.NormalizeStatus(string(t.Status)) != status {
			continue
		}
		if filterPriority && models.NormalizePriority(string(t.Priority)) != priority {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Stats are the dashboard counters
type Stats struct {
	Users             int
	Projects          int
	Tasks             int
	CompletedProjects int
	CompletedTasks    int
}

// DashboardStats gathers the counters. Each listing may fail on its own and
// leaves its counters at zero; an error is returned only if all of them failed.
func DashboardStats(ctx context.Context, api StatsAPI) (Stats, error) {
	var (
		stats Stats
		errs  []error
	)

	if users, err := api.ListUsers(ctx); err != nil {
		errs = append(errs, fmt.Errorf("users: %w", err))
	} else {
		stats.Users = len(users)
	}

	if projects, err := api.ListProjects(ctx); err != nil {
		errs = append(errs, fmt.Errorf("projects: %w", err))
	} else {
		stats.Projects = len(projects)
		for _, p := range projects {
			if models.NormalizeStatus(string(p.Status)) == models.StatusCompleted {
				stats.CompletedProjects++
			}
		}
	}

	if tasks, err := api.ListTasks(ctx, nil); err != nil {
		errs = append(errs, fmt.Errorf("tasks: %w", err))
	} else {
		stats.Tasks = len(tasks)
		for _, t := range tasks {
			if t.IsCompleted() {
				stats.CompletedTasks++
			}
		}
	}

	for _, err := range errs {
		log.Warn("dashboard statistic unavailable", "err", err)
	}
	if len(errs) == 3 {
		return stats, errors.Join(errs...)
	}
	return stats, nil
}

// Home is what the home view shows a signed-in user
type Home struct {
	Projects   []models.Project
	Pending    int
	InProgress int
	Completed  int
	Delayed    int
}

// HomeStats keeps the projects the user leads or develops and counts them by status
func HomeStats(projects []models.Project, email string) Home {
	var h Home
	for _, p := range projects {
		if !p.Involves(email) {
			continue
		}
		h.Projects = append(h.Projects, p)
		switch models.NormalizeStatus(string(p.Status)) {
		case models.StatusPending:
			h.Pending++
		case models.StatusInProgress:
			h.InProgress++
		case models.StatusCompleted:
			h.Completed++
		case models.StatusDelayed:
			h.Delayed++
		}
	}
	return h
}
