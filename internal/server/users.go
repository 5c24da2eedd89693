package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/models"
)

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := s.schemas.decode(r, "token", false, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, hash, err := s.store.GetUserByEmail(strings.TrimSpace(req.Email))
	if errors.Is(err, db.ErrNotFound) || (err == nil && !auth.CheckPassword(hash, req.Password)) {
		s.writeError(w, r, errBadCredentials)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	pair, err := s.tokens.Issue(*u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := s.schemas.decode(r, "refresh", false, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	access, err := s.tokens.Refresh(req.Refresh)
	if err != nil {
		s.writeError(w, r, errTokenNotValid)
		return
	}
	writeJSON(w, http.StatusOK, auth.Pair{Access: access})
}

// userInput is the writable part of a user
type userInput struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

func (in userInput) user(id int64) models.User {
	return models.User{
		ID:          id,
		Email:       strings.TrimSpace(in.Email),
		Username:    strings.TrimSpace(in.Username),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		IsStaff:     in.IsStaff,
		IsSuperuser: in.IsSuperuser,
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, me *models.User) {
	if !me.IsSuperuser {
		writeJSON(w, http.StatusOK, []models.User{*me})
		return
	}
	users, err := s.store.ListUsers()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// createUser is open to anyone; only staff callers may grant staff flags
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in userInput
	if err := s.schemas.decode(r, "user", false, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Password == "" {
		s.writeError(w, r, fieldErrors{"password": {msgRequired}})
		return
	}

	caller, err := s.currentUser(r)
	if err != nil || !caller.IsStaff {
		in.IsStaff, in.IsSuperuser = false, false
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.store.CreateUser(in.user(0), hash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// lookupUser applies list visibility: superusers see everyone, others only themselves
func (s *Server) lookupUser(r *http.Request, me *models.User) (*models.User, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	if !me.IsSuperuser && id != me.ID {
		return nil, errNotFound
	}
	return s.store.GetUser(id)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request, me *models.User) {
	u, err := s.lookupUser(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, me *models.User) {
	u, err := s.lookupUser(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in := userInput{
		Email:       u.Email,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	}
	if err := s.schemas.decode(r, "user", r.Method == http.MethodPatch, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !me.IsSuperuser {
		in.IsSuperuser = u.IsSuperuser
	}

	if err := s.store.UpdateUser(in.user(u.ID)); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.store.SetPassword(u.ID, hash); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	updated, err := s.store.GetUser(u.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request, me *models.User) {
	u, err := s.lookupUser(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteUser(u.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRole(w http.ResponseWriter, r *http.Request, me *models.User) {
	u, err := s.lookupUser(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		RoleID models.Ref `json:"role_id"`
	}
	if err := s.schemas.decode(r, "add_role", false, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.AddRoleToUser(u.ID, req.RoleID.ID()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			err = fieldErrors{"role_id": {"El rol no existe."}}
		}
		s.writeError(w, r, err)
		return
	}
	s.writeUser(w, r, u.ID)
}

func (s *Server) updateRoles(w http.ResponseWriter, r *http.Request, me *models.User) {
	u, err := s.lookupUser(r, me)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		RoleIDs []models.Ref `json:"role_ids"`
	}
	if err := s.schemas.decode(r, "update_roles", false, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ids := make([]int64, len(req.RoleIDs))
	for i, id := range req.RoleIDs {
		ids[i] = id.ID()
	}
	if err := s.store.SetUserRoles(u.ID, ids); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			err = fieldErrors{"role_ids": {"Uno de los roles no existe."}}
		}
		s.writeError(w, r, err)
		return
	}
	s.writeUser(w, r, u.ID)
}

func (s *Server) writeUser(w http.ResponseWriter, r *http.Request, id int64) {
	u, err := s.store.GetUser(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
