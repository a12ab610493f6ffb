package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ariabot/aria/aria/database/models"
	"github.com/uptrace/bun"
)

var ErrTimerNotFound = errors.New("timer not found")

type TimerRepository interface {
	Insert(ctx context.Context, timer *models.Timer) error
	DueWithin(ctx context.Context, window time.Duration) ([]*models.Timer, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Timer, error)
	ListByEventAndUser(ctx context.Context, event, userID string) ([]*models.Timer, error)
	CountPending(ctx context.Context) (int, error)
}

type timerRepository struct {
	db *bun.DB
}

func NewTimerRepository(db *bun.DB) TimerRepository {
	return &timerRepository{db: db}
}

func (r *timerRepository) Insert(ctx context.Context, timer *models.Timer) error {
	_, err := r.db.NewInsert().
		Model(timer).
		Returning("id").
		Exec(ctx)
	return err
}

func (r *timerRepository) DueWithin(ctx context.Context, window time.Duration) ([]*models.Timer, error) {
	var timers []*models.Timer
	err := r.db.NewSelect().
		Model(&timers).
		Where("expires < ?", time.Now().Add(window)).
		Order("expires ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return timers, nil
}

// Delete removes a timer row and reports whether this call deleted it.
// The dispatcher relies on the report for at-most-once dispatch.
func (r *timerRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*models.Timer)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *timerRepository) GetByID(ctx context.Context, id int64) (*models.Timer, error) {
	timer := new(models.Timer)
	err := r.db.NewSelect().
		Model(timer).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTimerNotFound
	}
	if err != nil {
		return nil, err
	}
	return timer, nil
}

func (r *timerRepository) ListByEventAndUser(ctx context.Context, event, userID string) ([]*models.Timer, error) {
	var timers []*models.Timer
	err := r.db.NewSelect().
		Model(&timers).
		Where("event = ?", event).
		Where("payload->>'user_id' = ?", userID).
		Order("expires ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return timers, nil
}

func (r *timerRepository) CountPending(ctx context.Context) (int, error) {
	return r.db.NewSelect().
		Model((*models.Timer)(nil)).
		Count(ctx)
}
