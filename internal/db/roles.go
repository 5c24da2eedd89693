package db

import (
	"database/sql"

	"github.com/digitalbuho/buho/internal/models"
)

// CreateRole creates a new role
func (db *DB) CreateRole(name, description string) (*models.Role, error) {
	result, err := db.Exec("INSERT INTO roles (name, description) VALUES (?, ?)", name, description)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetRole(id)
}

// GetRole retrieves a role by ID
func (db *DB) GetRole(id int64) (*models.Role, error) {
	r := &models.Role{}
	err := db.QueryRow("SELECT id, name, description FROM roles WHERE id = ?", id).
		Scan(&r.ID, &r.Name, &r.Description)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// GetRoleByName retrieves a role by its name (case-insensitive)
func (db *DB) GetRoleByName(name string) (*models.Role, error) {
	r := &models.Role{}
	err := db.QueryRow("SELECT id, name, description FROM roles WHERE LOWER(name) = LOWER(?)", name).
		Scan(&r.ID, &r.Name, &r.Description)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// ListRoles returns all roles
func (db *DB) ListRoles() ([]models.Role, error) {
	rows, err := db.Query("SELECT id, name, description FROM roles ORDER BY name")
	if err != nil {
		return nil, err
	}
	return scanRoles(rows)
}

// UpdateRole updates a role
func (db *DB) UpdateRole(id int64, name, description string) error {
	result, err := db.Exec("UPDATE roles SET name = ?, description = ? WHERE id = ?", name, description, id)
	return affected(result, err)
}

// DeleteRole deletes a role (users holding it lose it)
func (db *DB) DeleteRole(id int64) error {
	result, err := db.Exec("DELETE FROM roles WHERE id = ?", id)
	return affected(result, err)
}

// GetUserRoles returns all roles held by a user
func (db *DB) GetUserRoles(userID int64) ([]models.Role, error) {
	rows, err := db.Query(`
		SELECT r.id, r.name, r.description
		FROM roles r
		JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = ?
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanRoles(rows)
}

// AddRoleToUser grants a role to a user; granting it twice is a no-op
func (db *DB) AddRoleToUser(userID, roleID int64) error {
	if _, err := db.GetRole(roleID); err != nil {
		return err
	}
	_, err := db.Exec("INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)", userID, roleID)
	return err
}

// RemoveRoleFromUser revokes a role from a user
func (db *DB) RemoveRoleFromUser(userID, roleID int64) error {
	_, err := db.Exec("DELETE FROM user_roles WHERE user_id = ? AND role_id = ?", userID, roleID)
	return err
}

// SetUserRoles replaces the full set of roles held by a user
func (db *DB) SetUserRoles(userID int64, roleIDs []int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM user_roles WHERE user_id = ?", userID); err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		var exists int
		if err := tx.QueryRow("SELECT 1 FROM roles WHERE id = ?", roleID).Scan(&exists); err != nil {
			return notFound(err)
		}
		if _, err := tx.Exec("INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)", userID, roleID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanRoles(rows *sql.Rows) ([]models.Role, error) {
	defer rows.Close()

	roles := []models.Role{}
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// affected turns an update that matched no row into ErrNotFound
func affected(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
