package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ariabot/aria/aria/database/models"
	"github.com/uptrace/bun"
)

var ErrTodoNotFound = errors.New("todo not found")

type TodoRepository interface {
	Add(ctx context.Context, userID, content string) (*models.Todo, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Todo, error)
	MarkDone(ctx context.Context, userID string, id int64) error
	Delete(ctx context.Context, userID string, id int64) error
}

type todoRepository struct {
	db *bun.DB
}

func NewTodoRepository(db *bun.DB) TodoRepository {
	return &todoRepository{db: db}
}

func (r *todoRepository) Add(ctx context.Context, userID, content string) (*models.Todo, error) {
	todo := &models.Todo{
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(todo).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return todo, nil
}

func (r *todoRepository) ListByUser(ctx context.Context, userID string) ([]*models.Todo, error) {
	var todos []*models.Todo
	err := r.db.NewSelect().
		Model(&todos).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return todos, nil
}

func (r *todoRepository) MarkDone(ctx context.Context, userID string, id int64) error {
	res, err := r.db.NewUpdate().
		Model((*models.Todo)(nil)).
		Set("done = true").
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTodoNotFound
	}
	return nil
}

func (r *todoRepository) Delete(ctx context.Context, userID string, id int64) error {
	res, err := r.db.NewDelete().
		Model((*models.Todo)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTodoNotFound
	}
	return nil
}
