package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Todo struct {
	bun.BaseModel `bun:"table:todos,alias:td"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	Content   string    `bun:"content,notnull"`
	Done      bool      `bun:"done,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
