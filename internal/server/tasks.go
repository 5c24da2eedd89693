package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/events"
	"github.com/digitalbuho/buho/internal/models"
)

// taskQuery builds the listing query from ?proyecto, ?estado, ?prioridad and ?search
func taskQuery(r *http.Request, me *models.User) (db.TaskQuery, error) {
	q := db.TaskQuery{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	if !me.IsSuperuser {
		q.VisibleTo = me.ID
	}

	fe := fieldErrors{}
	if raw := strings.TrimSpace(r.URL.Query().Get("proyecto")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fe.add("proyecto", msgInvalid)
		}
		q.ProjectID = id
	}
	status, err := statusFilter(r)
	if err != nil {
		return q, err
	}
	q.Status = status
	if raw := strings.TrimSpace(r.URL.Query().Get("prioridad")); raw != "" {
		priority, ok := models.ParsePriority(raw)
		if !ok {
			fe.add("prioridad", fmt.Sprintf("%q no es una elección válida.", raw))
		}
		q.Priority = priority
	}
	if len(fe) > 0 {
		return q, fe
	}
	return q, nil
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request, me *models.User) {
	q, err := taskQuery(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tasks, err := s.store.ListTasksFiltered(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(tasks))
}

// lookupTask loads the {id} task if it is assigned to the caller or sits
// in a project the caller leads
func (s *Server) lookupTask(r *http.Request, me *models.User) (*models.Task, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	if me.IsSuperuser || (task.Assignee != nil && task.Assignee.ID == me.ID) {
		return task, nil
	}
	project, err := s.store.GetProject(task.Project.ID())
	if err != nil {
		return nil, err
	}
	if project.Responsible == nil || project.Responsible.ID != me.ID {
		return nil, errNotFound
	}
	return task, nil
}

// checkTask verifies the project and assignee references of a task payload
func (s *Server) checkTask(in models.TaskInput) error {
	fe := fieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		fe.add("titulo", msgRequired)
	}
	if !in.ProjectID.Valid() {
		fe.add("proyecto_id", msgRequired)
	} else if _, err := s.store.GetProject(in.ProjectID.ID()); err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return err
		}
		fe.add("proyecto_id", msgNoSuchObject)
	}
	if in.AssigneeID.Valid() {
		if _, err := s.store.GetUser(in.AssigneeID.ID()); err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				return err
			}
			fe.add("asignado_a_id", msgNoSuchObject)
		}
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request, me *models.User) {
	in := models.TaskInput{Priority: models.PriorityMedium, Status: models.StatusPending}
	if err := s.schemas.decode(r, "task", false, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.checkTask(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	task, err := s.store.CreateTask(in, me.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r, events.TaskCreated, task.ID, task)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request, me *models.User) {
	task, err := s.lookupTask(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, me *models.User) {
	task, err := s.lookupTask(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in := task.Input()
	if err := s.schemas.decode(r, "task", r.Method == http.MethodPatch, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.checkTask(in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateTask(task.ID, in); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.store.GetTask(task.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r, events.TaskUpdated, updated.ID, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request, me *models.User) {
	task, err := s.lookupTask(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteTask(task.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r, events.TaskDeleted, task.ID, task)
	w.WriteHeader(http.StatusNoContent)
}
