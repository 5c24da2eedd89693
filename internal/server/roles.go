package server

import (
	"net/http"
	"strings"

	"github.com/digitalbuho/buho/internal/models"
)

// list never encodes a nil slice as null
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request, _ *models.User) {
	roles, err := s.store.ListRoles()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(roles))
}

func (s *Server) createRole(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var in models.Role
	if err := s.schemas.decode(r, "role", false, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	role, err := s.store.CreateRole(strings.TrimSpace(in.Name), in.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	role, err := s.store.GetRole(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	role, err := s.store.GetRole(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.schemas.decode(r, "role", r.Method == http.MethodPatch, role); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateRole(id, strings.TrimSpace(role.Name), role.Description); err != nil {
		s.writeError(w, r, err)
		return
	}
	role.ID = id
	role.Name = strings.TrimSpace(role.Name)
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteRole(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
