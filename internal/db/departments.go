package db

import (
	"database/sql"

	"github.com/digitalbuho/buho/internal/models"
)

// CreateDepartment creates a new department
func (db *DB) CreateDepartment(name, description string) (*models.Department, error) {
	result, err := db.Exec(`
		INSERT INTO departments (nombre, descripcion) VALUES (?, ?)
	`, name, description)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetDepartment(id)
}

// GetDepartment retrieves a department by ID
func (db *DB) GetDepartment(id int64) (*models.Department, error) {
	d := &models.Department{}
	err := db.QueryRow(`
		SELECT id, nombre, descripcion
		FROM departments WHERE id = ?
	`, id).Scan(&d.ID, &d.Name, &d.Description)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

// ListDepartments returns all departments ordered by name
func (db *DB) ListDepartments() ([]models.Department, error) {
	rows, err := db.Query(`
		SELECT id, nombre, descripcion
		FROM departments
		ORDER BY nombre ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	departments := []models.Department{}
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// UpdateDepartment updates a department
func (db *DB) UpdateDepartment(id int64, name, description string) error {
	result, err := db.Exec("UPDATE departments SET nombre = ?, descripcion = ? WHERE id = ?", name, description, id)
	return affected(result, err)
}

// DeleteDepartment deletes a department
func (db *DB) DeleteDepartment(id int64) error {
	result, err := db.Exec("DELETE FROM departments WHERE id = ?", id)
	return affected(result, err)
}

const workerColumns = "id, user_id, departamento_id, cargo, fecha_contratacion, activo"

type workerRow struct {
	worker       models.Worker
	userID       int64
	departmentID sql.NullInt64
}

func scanWorker(s scanner) (workerRow, error) {
	var (
		r    workerRow
		hire sql.NullString
	)
	w := &r.worker
	err := s.Scan(&w.ID, &r.userID, &r.departmentID, &w.Position, &hire, &w.Active)
	w.HireDate = scanDate(hire)
	return r, err
}

// CreateWorker creates the worker profile of a user
func (db *DB) CreateWorker(in models.WorkerInput) (*models.Worker, error) {
	result, err := db.Exec(`
		INSERT INTO workers (user_id, departamento_id, cargo, fecha_contratacion, activo) VALUES (?, ?, ?, ?, ?)
	`, in.UserID.ID(), nullRef(in.DepartmentID), in.Position, in.HireDate.String(), in.Active)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetWorker(id)
}

// GetWorker retrieves a worker by ID with its user and department
func (db *DB) GetWorker(id int64) (*models.Worker, error) {
	r, err := scanWorker(db.QueryRow("SELECT "+workerColumns+" FROM workers WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	if err := db.loadWorker(&r); err != nil {
		return nil, err
	}
	return &r.worker, nil
}

// ListWorkers returns all workers, or only the worker profile of userID when it is non-zero
func (db *DB) ListWorkers(userID int64) ([]models.Worker, error) {
	query := "SELECT " + workerColumns + " FROM workers"
	var args []any
	if userID != 0 {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	rows, err := db.Query(query+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scanned []workerRow
	for rows.Next() {
		r, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		scanned = append(scanned, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	workers := make([]models.Worker, 0, len(scanned))
	for i := range scanned {
		if err := db.loadWorker(&scanned[i]); err != nil {
			return nil, err
		}
		workers = append(workers, scanned[i].worker)
	}
	return workers, nil
}

// UpdateWorker updates a worker profile
func (db *DB) UpdateWorker(id int64, in models.WorkerInput) error {
	result, err := db.Exec(`
		UPDATE workers SET user_id = ?, departamento_id = ?, cargo = ?, fecha_contratacion = ?, activo = ?
		WHERE id = ?
	`, in.UserID.ID(), nullRef(in.DepartmentID), in.Position, in.HireDate.String(), in.Active, id)
	return affected(result, err)
}

// DeleteWorker deletes a worker profile
func (db *DB) DeleteWorker(id int64) error {
	result, err := db.Exec("DELETE FROM workers WHERE id = ?", id)
	return affected(result, err)
}

func (db *DB) loadWorker(r *workerRow) error {
	u, err := db.GetUser(r.userID)
	if err != nil {
		return err
	}
	r.worker.User = u
	if r.departmentID.Valid {
		d, err := db.GetDepartment(r.departmentID.Int64)
		if err != nil && err != ErrNotFound {
			return err
		}
		r.worker.Department = d
	}
	return nil
}
