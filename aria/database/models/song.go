package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Song is the persisted record of a resolved track and its cached file.
type Song struct {
	bun.BaseModel `bun:"table:songs,alias:s"`

	ID           int64     `bun:"id,pk,autoincrement"`
	VideoID      string    `bun:"video_id,notnull,unique"`
	Title        string    `bun:"title,notnull"`
	DurationSecs int       `bun:"duration_secs,notnull"`
	Filename     string    `bun:"filename"`
	Plays        int64     `bun:"plays,notnull,default:0"`
	RegisteredAt time.Time `bun:"registered_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}
