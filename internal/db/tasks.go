package db

import (
	"database/sql"
	"strings"

	"github.com/digitalbuho/buho/internal/models"
)

const taskColumns = `t.id, t.titulo, t.descripcion, t.prioridad, t.estado, t.fecha_limite,
	t.proyecto_id, t.asignado_a_id, t.creado_por, t.created_at, t.updated_at`

// TaskQuery narrows a task listing. Zero values disable a filter.
type TaskQuery struct {
	ProjectID int64
	VisibleTo int64 // assignee or lead of the task's project
	Status    models.Status
	Priority  models.Priority
	Search    string
}

type taskRow struct {
	task       models.Task
	assigneeID sql.NullInt64
}

func scanTask(s scanner) (taskRow, error) {
	var (
		r         taskRow
		due       sql.NullString
		createdBy sql.NullInt64
	)
	t := &r.task
	err := s.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status, &due,
		&t.Project, &r.assigneeID, &createdBy, &t.CreatedAt, &t.UpdatedAt)
	t.DueDate = scanDate(due)
	t.CreatedBy = models.Ref(createdBy.Int64)
	return r, err
}

// CreateTask creates a new task
func (db *DB) CreateTask(in models.TaskInput, createdBy int64) (*models.Task, error) {
	result, err := db.Exec(`
		INSERT INTO tasks (titulo, descripcion, prioridad, estado, fecha_limite, proyecto_id, asignado_a_id, creado_por)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Title, in.Description, in.Priority, in.Status, nullDate(in.DueDate), in.ProjectID.ID(),
		nullRef(in.AssigneeID), nullRef(models.Ref(createdBy)))
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetTask(id)
}

// GetTask retrieves a task by ID with its assignee
func (db *DB) GetTask(id int64) (*models.Task, error) {
	r, err := scanTask(db.QueryRow("SELECT "+taskColumns+" FROM tasks t WHERE t.id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	users := userCache{db: db, byID: map[int64]*models.User{}}
	if r.assigneeID.Valid {
		if r.task.Assignee, err = users.get(r.assigneeID.Int64); err != nil {
			return nil, err
		}
	}
	return &r.task, nil
}

// ListTasks returns all tasks
func (db *DB) ListTasks() ([]models.Task, error) {
	return db.ListTasksFiltered(TaskQuery{})
}

// ListProjectTasks returns all tasks of a project
func (db *DB) ListProjectTasks(projectID int64) ([]models.Task, error) {
	return db.ListTasksFiltered(TaskQuery{ProjectID: projectID})
}

// ListTasksFiltered returns tasks matching q, highest priority first
func (db *DB) ListTasksFiltered(q TaskQuery) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks t"
	var (
		where []string
		args  []any
	)

	if q.VisibleTo != 0 {
		query += " JOIN projects p ON p.id = t.proyecto_id"
		where = append(where, "(t.asignado_a_id = ? OR p.responsable_id = ?)")
		args = append(args, q.VisibleTo, q.VisibleTo)
	}
	if q.ProjectID != 0 {
		where = append(where, "t.proyecto_id = ?")
		args = append(args, q.ProjectID)
	}
	if q.Status != "" {
		where = append(where, "t.estado = ?")
		args = append(args, q.Status)
	}
	if q.Priority != "" {
		where = append(where, "t.prioridad = ?")
		args = append(args, q.Priority)
	}
	if q.Search != "" {
		where = append(where, "(t.titulo LIKE ? OR t.descripcion LIKE ?)")
		searchPattern := "%" + q.Search + "%"
		args = append(args, searchPattern, searchPattern)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += `
		ORDER BY CASE t.prioridad WHEN 'U' THEN 3 WHEN 'A' THEN 2 WHEN 'M' THEN 1 ELSE 0 END DESC,
			t.created_at DESC, t.id DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scanned []taskRow
	for rows.Next() {
		r, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		scanned = append(scanned, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// Resolve the assignee of each task
	users := userCache{db: db, byID: map[int64]*models.User{}}
	tasks := make([]models.Task, 0, len(scanned))
	for _, r := range scanned {
		if r.assigneeID.Valid {
			if r.task.Assignee, err = users.get(r.assigneeID.Int64); err != nil {
				return nil, err
			}
		}
		tasks = append(tasks, r.task)
	}
	return tasks, nil
}

// UpdateTask replaces a task's fields
func (db *DB) UpdateTask(id int64, in models.TaskInput) error {
	result, err := db.Exec(`
		UPDATE tasks SET titulo = ?, descripcion = ?, prioridad = ?, estado = ?, fecha_limite = ?,
			proyecto_id = ?, asignado_a_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, in.Title, in.Description, in.Priority, in.Status, nullDate(in.DueDate), in.ProjectID.ID(),
		nullRef(in.AssigneeID), id)
	return affected(result, err)
}

// DeleteTask deletes a task
func (db *DB) DeleteTask(id int64) error {
	result, err := db.Exec("DELETE FROM tasks WHERE id = ?", id)
	return affected(result, err)
}
