package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ariabot/aria/aria/database/models"
	"github.com/uptrace/bun"
)

var (
	ErrMuteExists   = errors.New("user is already muted")
	ErrMuteNotFound = errors.New("mute not found")
)

type MuteRepository interface {
	Create(ctx context.Context, mute *models.Mute) error
	Get(ctx context.Context, guildID, userID string) (*models.Mute, error)
	Delete(ctx context.Context, guildID, userID string) (bool, error)
	ListByGuild(ctx context.Context, guildID string) ([]*models.Mute, error)
}

type muteRepository struct {
	db *bun.DB
}

func NewMuteRepository(db *bun.DB) MuteRepository {
	return &muteRepository{db: db}
}

func (r *muteRepository) Create(ctx context.Context, mute *models.Mute) error {
	if mute.CreatedAt.IsZero() {
		mute.CreatedAt = time.Now()
	}

	res, err := r.db.NewInsert().
		Model(mute).
		On("CONFLICT (guild_id, user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMuteExists
	}
	return nil
}

func (r *muteRepository) Get(ctx context.Context, guildID, userID string) (*models.Mute, error) {
	mute := new(models.Mute)
	err := r.db.NewSelect().
		Model(mute).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMuteNotFound
	}
	if err != nil {
		return nil, err
	}
	return mute, nil
}

func (r *muteRepository) Delete(ctx context.Context, guildID, userID string) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*models.Mute)(nil)).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
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

func (r *muteRepository) ListByGuild(ctx context.Context, guildID string) ([]*models.Mute, error) {
	var mutes []*models.Mute
	err := r.db.NewSelect().
		Model(&mutes).
		Where("guild_id = ?", guildID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return mutes, nil
}
