package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ariabot/aria/aria/database/models"
	"github.com/uptrace/bun"
)

var ErrSongNotFound = errors.New("song not found")

type SongRepository interface {
	GetByVideoID(ctx context.Context, videoID string) (*models.Song, error)
	Upsert(ctx context.Context, song *models.Song) error
	IncrementPlays(ctx context.Context, videoID string) error
	TopByPlays(ctx context.Context, limit int) ([]*models.Song, error)
	Count(ctx context.Context) (int, error)
}

type songRepository struct {
	db *bun.DB
}

func NewSongRepository(db *bun.DB) SongRepository {
	return &songRepository{db: db}
}

func (r *songRepository) GetByVideoID(ctx context.Context, videoID string) (*models.Song, error) {
	song := new(models.Song)
	err := r.db.NewSelect().
		Model(song).
		Where("video_id = ?", videoID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, err
	}
	return song, nil
}

func (r *songRepository) Upsert(ctx context.Context, song *models.Song) error {
	now := time.Now()
	if song.RegisteredAt.IsZero() {
		song.RegisteredAt = now
	}
	song.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(song).
		On("CONFLICT (video_id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("duration_secs = EXCLUDED.duration_secs").
		Set("filename = EXCLUDED.filename").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id, plays").
		Exec(ctx)
	return err
}

func (r *songRepository) IncrementPlays(ctx context.Context, videoID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Song)(nil)).
		Set("plays = plays + 1").
		Set("updated_at = ?", time.Now()).
		Where("video_id = ?", videoID).
		Exec(ctx)
	return err
}

func (r *songRepository) TopByPlays(ctx context.Context, limit int) ([]*models.Song, error) {
	var songs []*models.Song
	err := r.db.NewSelect().
		Model(&songs).
		Order("plays DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return songs, nil
}

func (r *songRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().
		Model((*models.Song)(nil)).
		Count(ctx)
}
