package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) routes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/token/", s.handleToken).Methods(http.MethodPost)
	api.HandleFunc("/token/refresh/", s.handleRefresh).Methods(http.MethodPost)

	api.HandleFunc("/users/", s.staff(s.listUsers)).Methods(http.MethodGet)
	api.HandleFunc("/users/", s.createUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}/", s.staff(s.getUser)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/", s.staff(s.updateUser)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/users/{id:[0-9]+}/", s.staff(s.deleteUser)).Methods(http.MethodDelete)
	api.HandleFunc("/users/{id:[0-9]+}/add_role/", s.staff(s.addRole)).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}/update_roles/", s.staff(s.updateRoles)).Methods(http.MethodPost)

	api.HandleFunc("/roles/", s.staff(s.listRoles)).Methods(http.MethodGet)
	api.HandleFunc("/roles/", s.staff(s.createRole)).Methods(http.MethodPost)
	api.HandleFunc("/roles/{id:[0-9]+}/", s.staff(s.getRole)).Methods(http.MethodGet)
	api.HandleFunc("/roles/{id:[0-9]+}/", s.staff(s.updateRole)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/roles/{id:[0-9]+}/", s.staff(s.deleteRole)).Methods(http.MethodDelete)

	api.HandleFunc("/departamentos/", s.authenticated(s.listDepartments)).Methods(http.MethodGet)
	api.HandleFunc("/departamentos/", s.authenticated(s.createDepartment)).Methods(http.MethodPost)
	api.HandleFunc("/departamentos/{id:[0-9]+}/", s.authenticated(s.getDepartment)).Methods(http.MethodGet)
	api.HandleFunc("/departamentos/{id:[0-9]+}/", s.authenticated(s.updateDepartment)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/departamentos/{id:[0-9]+}/", s.authenticated(s.deleteDepartment)).Methods(http.MethodDelete)

	api.HandleFunc("/trabajadores/", s.authenticated(s.listWorkers)).Methods(http.MethodGet)
	api.HandleFunc("/trabajadores/", s.authenticated(s.createWorker)).Methods(http.MethodPost)
	api.HandleFunc("/trabajadores/{id:[0-9]+}/", s.authenticated(s.getWorker)).Methods(http.MethodGet)
	api.HandleFunc("/trabajadores/{id:[0-9]+}/", s.authenticated(s.updateWorker)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/trabajadores/{id:[0-9]+}/", s.authenticated(s.deleteWorker)).Methods(http.MethodDelete)

	api.HandleFunc("/proyectos/", s.authenticated(s.listProjects)).Methods(http.MethodGet)
	api.HandleFunc("/proyectos/", s.authenticated(s.createProject)).Methods(http.MethodPost)
	api.HandleFunc("/proyectos/{id:[0-9]+}/", s.authenticated(s.getProject)).Methods(http.MethodGet)
	api.HandleFunc("/proyectos/{id:[0-9]+}/", s.authenticated(s.updateProject)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/proyectos/{id:[0-9]+}/", s.authenticated(s.deleteProject)).Methods(http.MethodDelete)
	api.HandleFunc("/proyectos/{id:[0-9]+}/tareas/", s.authenticated(s.projectTasks)).Methods(http.MethodGet)

	api.HandleFunc("/tareas/", s.authenticated(s.listTasks)).Methods(http.MethodGet)
	api.HandleFunc("/tareas/", s.authenticated(s.createTask)).Methods(http.MethodPost)
	api.HandleFunc("/tareas/{id:[0-9]+}/", s.authenticated(s.getTask)).Methods(http.MethodGet)
	api.HandleFunc("/tareas/{id:[0-9]+}/", s.authenticated(s.updateTask)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/tareas/{id:[0-9]+}/", s.authenticated(s.deleteTask)).Methods(http.MethodDelete)
}
