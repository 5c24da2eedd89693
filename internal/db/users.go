package db

import (
	"github.com/digitalbuho/buho/internal/models"
)

const userColumns = "id, email, username, first_name, last_name, is_staff, is_superuser"

func scanUser(s scanner) (models.User, error) {
	var u models.User
	err := s.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.IsStaff, &u.IsSuperuser)
	return u, err
}

// CreateUser creates a new user with an already hashed password
func (db *DB) CreateUser(u models.User, passwordHash string) (*models.User, error) {
	result, err := db.Exec(`
		INSERT INTO users (email, username, password_hash, first_name, last_name, is_staff, is_superuser)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.Email, u.Username, passwordHash, u.FirstName, u.LastName, u.IsStaff, u.IsSuperuser)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUser(id)
}

// GetUser retrieves a user by ID with its roles
func (db *DB) GetUser(id int64) (*models.User, error) {
	u, err := scanUser(db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	if u.Roles, err = db.GetUserRoles(id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email along with the stored password hash
func (db *DB) GetUserByEmail(email string) (*models.User, string, error) {
	var (
		id   int64
		hash string
	)
	row := db.QueryRow("SELECT id, password_hash FROM users WHERE LOWER(email) = LOWER(?)", email)
	if err := row.Scan(&id, &hash); err != nil {
		return nil, "", notFound(err)
	}
	u, err := db.GetUser(id)
	if err != nil {
		return nil, "", err
	}
	return u, hash, nil
}

// ListUsers returns all users ordered by email
func (db *DB) ListUsers() ([]models.User, error) {
	rows, err := db.Query("SELECT " + userColumns + " FROM users ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// Load roles for each user
	for i := range users {
		roles, err := db.GetUserRoles(users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].Roles = roles
	}
	return users, nil
}

// UpdateUser updates a user's profile and flags
func (db *DB) UpdateUser(u models.User) error {
	result, err := db.Exec(`
		UPDATE users SET email = ?, username = ?, first_name = ?, last_name = ?, is_staff = ?, is_superuser = ?
		WHERE id = ?
	`, u.Email, u.Username, u.FirstName, u.LastName, u.IsStaff, u.IsSuperuser, u.ID)
	return affected(result, err)
}

// SetPassword replaces a user's password hash
func (db *DB) SetPassword(id int64, passwordHash string) error {
	result, err := db.Exec("UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	return affected(result, err)
}

// DeleteUser deletes a user; projects and tasks they were linked to keep existing
func (db *DB) DeleteUser(id int64) error {
	result, err := db.Exec("DELETE FROM users WHERE id = ?", id)
	return affected(result, err)
}

// UserCount returns the number of users
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
