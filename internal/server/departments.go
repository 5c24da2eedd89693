package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/models"
)

func (s *Server) listDepartments(w http.ResponseWriter, r *http.Request, _ *models.User) {
	departments, err := s.store.ListDepartments()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(departments))
}

func (s *Server) createDepartment(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var in models.Department
	if err := s.schemas.decode(r, "department", false, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.store.CreateDepartment(strings.TrimSpace(in.Name), in.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) getDepartment(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.store.GetDepartment(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) updateDepartment(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.store.GetDepartment(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.schemas.decode(r, "department", r.Method == http.MethodPatch, d); err != nil {
		s.writeError(w, r, err)
		return
	}
	d.ID = id
	d.Name = strings.TrimSpace(d.Name)
	if err := s.store.UpdateDepartment(id, d.Name, d.Description); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDepartment(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteDepartment(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Workers: superusers manage every profile, other users only their own.

func (s *Server) listWorkers(w http.ResponseWriter, r *http.Request, me *models.User) {
	var userID int64
	if !me.IsSuperuser {
		userID = me.ID
	}
	workers, err := s.store.ListWorkers(userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(workers))
}

func (s *Server) lookupWorker(r *http.Request, me *models.User) (*models.Worker, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	worker, err := s.store.GetWorker(id)
	if err != nil {
		return nil, err
	}
	if !me.IsSuperuser && (worker.User == nil || worker.User.ID != me.ID) {
		return nil, errNotFound
	}
	return worker, nil
}

// checkWorker verifies the references of a worker payload
func (s *Server) checkWorker(in models.WorkerInput, me *models.User) error {
	fe := fieldErrors{}
	if _, err := s.store.GetUser(in.UserID.ID()); err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return err
		}
		fe.add("user_id", msgNoSuchObject)
	} else if !me.IsSuperuser && in.UserID.ID() != me.ID {
		return errForbidden
	}
	if in.DepartmentID.Valid() {
		if _, err := s.store.GetDepartment(in.DepartmentID.ID()); err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				return err
			}
			fe.add("departamento_id", msgNoSuchObject)
		}
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

func (s *Server) createWorker(w http.ResponseWriter, r *http.Request, me *models.User) {
	in := models.WorkerInput{Active: true}
	if err := s.schemas.decode(r, "worker", false, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.checkWorker(in, me); err != nil {
		s.writeError(w, r, err)
		return
	}
	worker, err := s.store.CreateWorker(in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, worker)
}

func (s *Server) getWorker(w http.ResponseWriter, r *http.Request, me *models.User) {
	worker, err := s.lookupWorker(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

func (s *Server) updateWorker(w http.ResponseWriter, r *http.Request, me *models.User) {
	worker, err := s.lookupWorker(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in := worker.Input()
	if err := s.schemas.decode(r, "worker", r.Method == http.MethodPatch, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.checkWorker(in, me); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateWorker(worker.ID, in); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.store.GetWorker(worker.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteWorker(w http.ResponseWriter, r *http.Request, me *models.User) {
	worker, err := s.lookupWorker(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteWorker(worker.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
