package postgres

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
)

var (
	_ users.Repository      = (*UserRepository)(nil)
	_ categories.Repository = (*CategoryRepository)(nil)
)

type UserRepository struct {
	conn
}

func (r *UserRepository) Create(ctx context.Context, user users.User) error {
	_, err := r.queryer().Exec(ctx, `INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`,
		user.ID, user.Name, user.Email)
	if err != nil {
		return fmt.Errorf("create user: %w", conflict(err, "user"))
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (users.User, error) {
	var user users.User
	err := r.queryer().QueryRow(ctx, `SELECT id, name, email FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		return users.User{}, fmt.Errorf("get user: %w", notFound(err, "user", id))
	}
	return user, nil
}

// List returns users ordered by id; an empty ids list selects every user.
func (r *UserRepository) List(ctx context.Context, ids []string, page pagination.Page) ([]users.User, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT id, name, email
  FROM users
 WHERE (cardinality($1::text[]) = 0 OR id = ANY($1))
 ORDER BY id
 OFFSET $2 LIMIT $3
`, nonNil(ids), page.Offset(), page.Limit())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]users.User, 0, page.Limit())
	for rows.Next() {
		var user users.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("scan users: %w", err)
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

type CategoryRepository struct {
	conn
}

func (r *CategoryRepository) Create(ctx context.Context, category categories.Category) error {
	_, err := r.queryer().Exec(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2)`, category.ID, category.Name)
	if err != nil {
		return fmt.Errorf("create category: %w", conflict(err, "category"))
	}
	return nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (categories.Category, error) {
	var category categories.Category
	err := r.queryer().QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).
		Scan(&category.ID, &category.Name)
	if err != nil {
		return categories.Category{}, fmt.Errorf("get category: %w", notFound(err, "category", id))
	}
	return category, nil
}

func (r *CategoryRepository) List(ctx context.Context, page pagination.Page) ([]categories.Category, error) {
	rows, err := r.queryer().Query(ctx, `SELECT id, name FROM categories ORDER BY id OFFSET $1 LIMIT $2`,
		page.Offset(), page.Limit())
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := make([]categories.Category, 0, page.Limit())
	for rows.Next() {
		var category categories.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("scan categories: %w", err)
		}
		items = append(items, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return items, nil
}
