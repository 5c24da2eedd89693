package db

import (
	"database/sql"
	"strings"

	"github.com/digitalbuho/buho/internal/models"
)

const projectColumns = `p.id, p.titulo, p.descripcion, p.prioridad, p.estado, p.fecha_limite,
	p.responsable_id, p.progreso, p.creado_por, p.created_at, p.updated_at`

// ProjectQuery narrows a project listing. Zero values disable a filter.
type ProjectQuery struct {
	VisibleTo int64 // responsable, developer or creator
	Status    models.Status
	Search    string
}

// projectRow holds a scanned project and the foreign keys still to resolve
type projectRow struct {
	project       models.Project
	responsableID sql.NullInt64
}

func scanProject(s scanner) (projectRow, error) {
	var (
		r         projectRow
		due       sql.NullString
		createdBy sql.NullInt64
	)
	p := &r.project
	err := s.Scan(&p.ID, &p.Title, &p.Description, &p.Priority, &p.Status, &due,
		&r.responsableID, &p.Progress, &createdBy, &p.CreatedAt, &p.UpdatedAt)
	p.DueDate = scanDate(due)
	p.CreatedBy = models.Ref(createdBy.Int64)
	return r, err
}

// CreateProject creates a new project and its developer links
func (db *DB) CreateProject(in models.ProjectInput, createdBy int64) (*models.Project, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO projects (titulo, descripcion, prioridad, estado, fecha_limite, responsable_id, progreso, creado_por)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Title, in.Description, in.Priority, in.Status, nullDate(in.DueDate), nullRef(in.ResponsibleID),
		in.Progress, nullRef(models.Ref(createdBy)))
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := setDevelopers(tx, id, in.DeveloperIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return db.GetProject(id)
}

// GetProject retrieves a project by ID with its lead and developers
func (db *DB) GetProject(id int64) (*models.Project, error) {
	r, err := scanProject(db.QueryRow("SELECT "+projectColumns+" FROM projects p WHERE p.id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	users := userCache{db: db, byID: map[int64]*models.User{}}
	if err := db.loadProject(&r, &users); err != nil {
		return nil, err
	}
	return &r.project, nil
}

// ListProjects returns all projects, most recently updated first
func (db *DB) ListProjects() ([]models.Project, error) {
	return db.ListProjectsFiltered(ProjectQuery{})
}

// ListProjectsFiltered returns projects matching q
func (db *DB) ListProjectsFiltered(q ProjectQuery) ([]models.Project, error) {
	query := "SELECT DISTINCT " + projectColumns + " FROM projects p"
	var (
		where []string
		args  []any
	)

	if q.VisibleTo != 0 {
		query += " LEFT JOIN project_developers d ON d.project_id = p.id"
		where = append(where, "(p.responsable_id = ? OR d.user_id = ? OR p.creado_por = ?)")
		args = append(args, q.VisibleTo, q.VisibleTo, q.VisibleTo)
	}
	if q.Status != "" {
		where = append(where, "p.estado = ?")
		args = append(args, q.Status)
	}
	if q.Search != "" {
		where = append(where, "(p.titulo LIKE ? OR p.descripcion LIKE ?)")
		searchPattern := "%" + q.Search + "%"
		args = append(args, searchPattern, searchPattern)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.updated_at DESC, p.id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scanned []projectRow
	for rows.Next() {
		r, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		scanned = append(scanned, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// Resolve lead and developers for each project
	users := userCache{db: db, byID: map[int64]*models.User{}}
	projects := make([]models.Project, 0, len(scanned))
	for i := range scanned {
		if err := db.loadProject(&scanned[i], &users); err != nil {
			return nil, err
		}
		projects = append(projects, scanned[i].project)
	}
	return projects, nil
}

// UpdateProject replaces a project's fields and developer links
func (db *DB) UpdateProject(id int64, in models.ProjectInput) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE projects SET titulo = ?, descripcion = ?, prioridad = ?, estado = ?, fecha_limite = ?,
			responsable_id = ?, progreso = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, in.Title, in.Description, in.Priority, in.Status, nullDate(in.DueDate), nullRef(in.ResponsibleID),
		in.Progress, id)
	if err := affected(result, err); err != nil {
		return err
	}
	if err := setDevelopers(tx, id, in.DeveloperIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteProject deletes a project and all its tasks
func (db *DB) DeleteProject(id int64) error {
	result, err := db.Exec("DELETE FROM projects WHERE id = ?", id)
	return affected(result, err)
}

// ProjectCount returns the number of projects
func (db *DB) ProjectCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&count)
	return count, err
}

// ProjectDeveloperIDs returns the IDs of a project's developers
func (db *DB) ProjectDeveloperIDs(projectID int64) ([]int64, error) {
	rows, err := db.Query("SELECT user_id FROM project_developers WHERE project_id = ? ORDER BY user_id", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func setDevelopers(tx *sql.Tx, projectID int64, userIDs []models.Ref) error {
	if _, err := tx.Exec("DELETE FROM project_developers WHERE project_id = ?", projectID); err != nil {
		return err
	}
	for _, uid := range userIDs {
		if !uid.Valid() {
			continue
		}
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO project_developers (project_id, user_id) VALUES (?, ?)
		`, projectID, uid.ID()); err != nil {
			return err
		}
	}
	return nil
}

// loadProject fills in the lead and developers of a scanned project
func (db *DB) loadProject(r *projectRow, users *userCache) error {
	if r.responsableID.Valid {
		u, err := users.get(r.responsableID.Int64)
		if err != nil {
			return err
		}
		r.project.Responsible = u
	}

	ids, err := db.ProjectDeveloperIDs(r.project.ID)
	if err != nil {
		return err
	}
	r.project.Developers = []models.User{}
	for _, id := range ids {
		u, err := users.get(id)
		if err != nil {
			return err
		}
		if u != nil {
			r.project.Developers = append(r.project.Developers, *u)
		}
	}
	return nil
}

// userCache resolves user references once per listing
type userCache struct {
	db   *DB
	byID map[int64]*models.User
}

// get returns the user with the given ID, or nil if it no longer exists
func (c *userCache) get(id int64) (*models.User, error) {
	if u, ok := c.byID[id]; ok {
		return u, nil
	}
	u, err := c.db.GetUser(id)
	if err == ErrNotFound {
		u, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.byID[id] = u
	return u, nil
}
