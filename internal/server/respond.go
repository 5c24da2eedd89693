package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/logging"
	"github.com/mattn/go-sqlite3"
)

const nonFieldErrors = "non_field_errors"

// fieldErrors is the 400 body: field name to messages
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Error renders "field: a, b; other: c" with fields in sorted order
func (fe fieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + strings.Join(fe[f], ", ")
	}
	return strings.Join(parts, "; ")
}

// apiError is any non-validation failure with a status and a detail message
type apiError struct {
	status int
	detail string
	code   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s", e.status, e.detail)
}

func badRequest(detail string) error {
	return &apiError{status: http.StatusBadRequest, detail: detail}
}

var (
	errNotAuthenticated = &apiError{status: http.StatusUnauthorized, detail: "Las credenciales de autenticación no se proveyeron.", code: "not_authenticated"}
	errForbidden        = &apiError{status: http.StatusForbidden, detail: "Usted no tiene permiso para realizar esta acción.", code: "permission_denied"}
	errNotFound         = &apiError{status: http.StatusNotFound, detail: "No encontrado.", code: "not_found"}
	errBadCredentials   = &apiError{status: http.StatusUnauthorized, detail: "No se encontró una cuenta activa con las credenciales proporcionadas.", code: "no_active_account"}
	errTokenNotValid    = &apiError{status: http.StatusUnauthorized, detail: "El token dado no es válido para ningún tipo de token.", code: "token_not_valid"}
	errUserNotFound     = &apiError{status: http.StatusUnauthorized, detail: "Usuario no encontrado.", code: "user_not_found"}
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and JSON body
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fe  fieldErrors
		ae  *apiError
		sqe sqlite3.Error
	)
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusBadRequest, fe)
	case errors.As(err, &ae):
		body := map[string]string{"detail": ae.detail}
		if ae.code != "" {
			body["code"] = ae.code
		}
		writeJSON(w, ae.status, body)
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": errNotFound.detail})
	case errors.As(err, &sqe) && sqe.ExtendedCode == sqlite3.ErrConstraintUnique:
		writeJSON(w, http.StatusBadRequest, fieldErrors{uniqueField(sqe): {"Ya existe un registro con este valor."}})
	case errors.As(err, &sqe) && sqe.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		writeJSON(w, http.StatusBadRequest, fieldErrors{nonFieldErrors: {"Referencia a un objeto que no existe."}})
	default:
		logging.WithRequestID(s.log, requestID(r.Context())).WithError(err).
			WithField("path", r.URL.Path).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Error interno del servidor."})
	}
}

// uniqueField extracts the column from "UNIQUE constraint failed: users.email"
func uniqueField(err sqlite3.Error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, "."); i >= 0 && i+1 < len(msg) {
		field := msg[i+1:]
		if j := strings.IndexAny(field, " ,"); j >= 0 {
			field = field[:j]
		}
		return field
	}
	return nonFieldErrors
}
