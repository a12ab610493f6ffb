package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Mute struct {
	bun.BaseModel `bun:"table:mutes,alias:m"`

	ID          int64      `bun:"id,pk,autoincrement"`
	GuildID     string     `bun:"guild_id,notnull"`
	UserID      string     `bun:"user_id,notnull"`
	ModeratorID string     `bun:"moderator_id,notnull"`
	Reason      string     `bun:"reason"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	ExpiresAt   *time.Time `bun:"expires_at"`
}
