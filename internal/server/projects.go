package server

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/events"
	"github.com/digitalbuho/buho/internal/models"
)

// projectScope returns the user id project listings are restricted to, or 0
// when the caller sees everything: superusers, and users who take part in no
// project at all.
func (s *Server) projectScope(me *models.User) (int64, error) {
	if me.IsSuperuser {
		return 0, nil
	}
	own, err := s.store.ListProjectsFiltered(db.ProjectQuery{VisibleTo: me.ID})
	if err != nil {
		return 0, err
	}
	if len(own) == 0 {
		return 0, nil
	}
	return me.ID, nil
}

func canSeeProject(p *models.Project, userID int64) bool {
	if userID == 0 || p.CreatedBy.ID() == userID {
		return true
	}
	if p.Responsible != nil && p.Responsible.ID == userID {
		return true
	}
	return slices.ContainsFunc(p.Developers, func(u models.User) bool { return u.ID == userID })
}

// lookupProject loads the {id} project if the caller may see it
func (s *Server) lookupProject(r *http.Request, me *models.User) (*models.Project, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(id)
	if err != nil {
		return nil, err
	}
	scope, err := s.projectScope(me)
	if err != nil {
		return nil, err
	}
	if !canSeeProject(project, scope) {
		return nil, errNotFound
	}
	return project, nil
}

func statusFilter(r *http.Request) (models.Status, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("estado"))
	if raw == "" {
		return "", nil
	}
	status, ok := models.ParseStatus(raw)
	if !ok {
		return "", fieldErrors{"estado": {fmt.Sprintf("%q no es una elección válida.", raw)}}
	}
	return status, nil
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request, me *models.User) {
	status, err := statusFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	scope, err := s.projectScope(me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	projects, err := s.store.ListProjectsFiltered(db.ProjectQuery{
		VisibleTo: scope,
		Status:    status,
		Search:    strings.TrimSpace(r.URL.Query().Get("search")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(projects))
}

// checkProject verifies the user references of a project payload
func (s *Server) checkProject(in models.ProjectInput) error {
	fe := fieldErrors{}
	if _, err := s.store.GetUser(in.ResponsibleID.ID()); err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return err
		}
		fe.add("responsable_id", msgNoSuchObject)
	}
	for _, ref := range in.DeveloperIDs {
		if _, err := s.store.GetUser(ref.ID()); err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				return err
			}
			fe.add("desarrolladores_ids", fmt.Sprintf("El usuario %d no existe.", ref.ID()))
		}
	}
	if strings.TrimSpace(in.Title) == "" {
		fe.add("titulo", msgRequired)
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request, me *models.User) {
	in := models.ProjectInput{Priority: models.PriorityMedium, Status: models.StatusPending}
	if err := s.schemas.decode(r, "project", false, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.checkProject(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	project, err := s.store.CreateProject(in, me.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r, events.ProjectCreated, project.ID, project)
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request, me *models.User) {
	project, err := s.lookupProject(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request, me *models.User) {
	project, err := s.lookupProject(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in := project.Input()
	if err := s.schemas.decode(r, "project", r.Method == http.MethodPatch, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.checkProject(in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateProject(project.ID, in); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.store.GetProject(project.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r, events.ProjectUpdated, updated.ID, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request, me *models.User) {
	project, err := s.lookupProject(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteProject(project.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r, events.ProjectDeleted, project.ID, project)
	w.WriteHeader(http.StatusNoContent)
}

// projectTasks returns every task of a visible project, whoever they are assigned to
func (s *Server) projectTasks(w http.ResponseWriter, r *http.Request, me *models.User) {
	project, err := s.lookupProject(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tasks, err := s.store.ListProjectTasks(project.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(tasks))
}
