package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Timer is a persisted deferred action. Timers whose delay is below the
// short-timer threshold never reach this table.
type Timer struct {
	bun.BaseModel `bun:"table:timers,alias:t"`

	ID      int64           `bun:"id,pk,autoincrement"`
	Event   string          `bun:"event,notnull"`
	Payload json.RawMessage `bun:"payload,type:jsonb"`
	Created time.Time       `bun:"created,notnull"`
	Expires time.Time       `bun:"expires,notnull"`
}
