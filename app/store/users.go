package store

import (
	"context"
	"fmt"
	"time"
)

// User is a club participant or organizer
type User struct {
	ID        int64
	Username  string
	Email     string
	Role      string
	CreatedAt time.Time
}

type userRow struct {
	ID        int64  `db:"id"`
	Username  string `db:"username"`
	Email     string `db:"email"`
	Role      string `db:"role"`
	CreatedAt int64  `db:"created_at"`
}

func (r userRow) user() User {
	return User{ID: r.ID, Username: r.Username, Email: r.Email, Role: r.Role, CreatedAt: fromMillis(r.CreatedAt)}
}

// userSortColumns maps sortable api fields to columns
var userSortColumns = map[string]string{
	"id":        "id",
	"username":  "username",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
}

// CreateUser inserts a user and returns it with id and creation time set
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	id, err := s.insertID(ctx, `INSERT INTO users (username, email, role, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.Role, toMillis(u.CreatedAt))
	if err != nil {
		return User{}, fmt.Errorf("failed to create user %q: %w", u.Username, err)
	}
	u.ID = id
	u.CreatedAt = fromMillis(toMillis(u.CreatedAt))
	return u, nil
}

// GetUser returns a user by id
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, s.q(`SELECT id, username, email, role, created_at FROM users WHERE id = ?`), id); err != nil {
		return User{}, fmt.Errorf("failed to get user %d: %w", id, notFound(err))
	}
	return row.user(), nil
}

// ListUsers returns a page of users
func (s *Store) ListUsers(ctx context.Context, page Page) (PageResult[User], error) {
	page = page.Normalized()
	order, err := page.orderBy(userSortColumns)
	if err != nil {
		return PageResult[User]{}, err
	}
	total, err := s.CountUsers(ctx)
	if err != nil {
		return PageResult[User]{}, err
	}
	var rows []userRow
	query := `SELECT id, username, email, role, created_at FROM users ` + order + ` LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &rows, s.q(query), page.Size, page.Offset()); err != nil {
		return PageResult[User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	res := PageResult[User]{Items: make([]User, 0, len(rows)), Total: total, Number: page.Number, Size: page.Size}
	for _, r := range rows {
		res.Items = append(res.Items, r.user())
	}
	return res, nil
}

// UpdateUser overwrites username, email and role of an existing user
func (s *Store) UpdateUser(ctx context.Context, u User) (User, error) {
	err := s.exec(ctx, `UPDATE users SET username = ?, email = ?, role = ? WHERE id = ?`, u.Username, u.Email, u.Role, u.ID)
	if err != nil {
		return User{}, fmt.Errorf("failed to update user %d: %w", u.ID, err)
	}
	return s.GetUser(ctx, u.ID)
}

// DeleteUser removes a user, memberships and notifications go with it
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if err := s.exec(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}

// UserExists checks if a user with the id exists
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM users WHERE id = ?`, id)
}

// ExistsByUsername checks if the username is taken
func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM users WHERE username = ?`, username)
}

// ExistsByEmail checks if the email is taken
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM users WHERE email = ?`, email)
}

// GetUserByUsername returns a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT id, username, email, role, created_at FROM users WHERE username = ?`), username)
	if err != nil {
		return User{}, fmt.Errorf("failed to get user %q: %w", username, notFound(err))
	}
	return row.user(), nil
}

// CountUsers returns the number of users
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}
