package music

import (
	"time"

	"github.com/ariabot/aria/aria/database/models"
	"github.com/disgoorg/snowflake/v2"
)

// Song is a resolved, playable track. Once enqueued it is owned by the
// queue; the currently playing song is owned by the player.
type Song struct {
	VideoID  string
	Title    string
	Duration time.Duration

	// StreamURL is the direct media URL from the resolver; Path is the
	// local cache file. Path wins when the file exists.
	StreamURL string
	Path      string

	Requester     snowflake.ID
	RequesterName string

	// Record is the persisted metadata row, nil for songs that have
	// not been cached yet.
	Record *models.Song
}

func (s *Song) URL() string {
	return "https://www.youtube.com/watch?v=" + s.VideoID
}
