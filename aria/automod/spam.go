package automod

import (
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
)

// Bucket parameters. Each bucket allows capacity events per window,
// keyed as listed; exceeding any one bucket flags the message.
const (
	byUserCapacity     = 10
	byUserWindow       = 12 * time.Second
	byContentCapacity  = 15
	byContentWindow    = 17 * time.Second
	newAccountCapacity = 30
	newAccountWindow   = 35 * time.Second
	fastJoinerCapacity = 10
	fastJoinerWindow   = 12 * time.Second

	newAccountMaxAge  = 90 * 24 * time.Hour
	newMemberMaxAge   = 7 * 24 * time.Hour
	fastJoinGap       = 2 * time.Second
	fastJoinFlagTTL   = 30 * time.Minute
	fastJoinCacheSize = 1024
)

// Message carries the fields the checker inspects. The message handler
// builds one from the gateway event so the checker stays independent of
// disgo's event types.
type Message struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	AuthorID  snowflake.ID
	Content   string

	AccountCreated time.Time
	JoinedAt       time.Time
}

type contentKey struct {
	channelID snowflake.ID
	content   string
}

// windowCount is a fixed-window event counter. The window anchors at
// the first event after the previous window lapses; events inside an
// open window never extend it.
type windowCount struct {
	start time.Time
	count int
}

// hit records one event and reports whether it pushed the bucket past
// capacity within the current window.
func (w *windowCount) hit(now time.Time, capacity int, window time.Duration) bool {
	if w.count == 0 || now.Sub(w.start) >= window {
		w.start = now
		w.count = 0
	}
	w.count++
	return w.count > capacity
}

// Checker flags spam-like messages using layered fixed-window buckets.
// It takes no action itself; callers decide how to escalate.
type Checker struct {
	mu         sync.Mutex
	byUser     map[snowflake.ID]*windowCount
	byContent  map[contentKey]*windowCount
	newAccount map[snowflake.ID]*windowCount
	fastJoiner map[snowflake.ID]*windowCount

	lastJoin  map[snowflake.ID]time.Time
	fastJoins *lru.Cache

	now func() time.Time
}

func NewChecker() *Checker {
	cache, _ := lru.New(fastJoinCacheSize)
	return &Checker{
		byUser:     make(map[snowflake.ID]*windowCount),
		byContent:  make(map[contentKey]*windowCount),
		newAccount: make(map[snowflake.ID]*windowCount),
		fastJoiner: make(map[snowflake.ID]*windowCount),
		lastJoin:   make(map[snowflake.ID]time.Time),
		fastJoins:  cache,
		now:        time.Now,
	}
}

// IsSpamming checks the message against each applicable bucket in
// order fast-joiner, new-account, by-user, by-content and returns the
// name of the first exhausted bucket. Buckets short-circuit: a message
// counts against every bucket it reaches, but evaluation stops at the
// first violation.
func (c *Checker) IsSpamming(msg Message) (reason string, spam bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if c.fastJoinFlagged(msg.GuildID, msg.AuthorID, now) {
		if bucket(c.fastJoiner, msg.ChannelID).hit(now, fastJoinerCapacity, fastJoinerWindow) {
			return "fast-joiner", true
		}
	}

	if c.isNewAccount(msg, now) {
		if bucket(c.newAccount, msg.ChannelID).hit(now, newAccountCapacity, newAccountWindow) {
			return "new-account", true
		}
	}

	if bucket(c.byUser, msg.AuthorID).hit(now, byUserCapacity, byUserWindow) {
		return "by-user", true
	}

	if bucket(c.byContent, contentKey{msg.ChannelID, msg.Content}).hit(now, byContentCapacity, byContentWindow) {
		return "by-content", true
	}

	return "", false
}

// TrackJoin records a guild join and flags the member as a fast joiner
// when the join lands within 2 seconds of the previous one. The flag
// is cached for 30 minutes.
func (c *Checker) TrackJoin(guildID, userID snowflake.ID, joinedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.lastJoin[guildID]; ok && joinedAt.Sub(last) <= fastJoinGap {
		c.fastJoins.Add(fastJoinKey(guildID, userID), joinedAt)
	}
	c.lastJoin[guildID] = joinedAt
}

// IsFastJoin reports whether the member carries an unexpired
// fast-joiner flag.
func (c *Checker) IsFastJoin(guildID, userID snowflake.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fastJoinFlagged(guildID, userID, c.now())
}

func (c *Checker) fastJoinFlagged(guildID, userID snowflake.ID, now time.Time) bool {
	v, ok := c.fastJoins.Get(fastJoinKey(guildID, userID))
	if !ok {
		return false
	}
	flaggedAt := v.(time.Time)
	if now.Sub(flaggedAt) > fastJoinFlagTTL {
		c.fastJoins.Remove(fastJoinKey(guildID, userID))
		return false
	}
	return true
}

func (c *Checker) isNewAccount(msg Message, now time.Time) bool {
	if msg.AccountCreated.IsZero() || msg.JoinedAt.IsZero() {
		return false
	}
	return now.Sub(msg.AccountCreated) < newAccountMaxAge &&
		now.Sub(msg.JoinedAt) < newMemberMaxAge
}

func bucket[K comparable](m map[K]*windowCount, key K) *windowCount {
	w, ok := m[key]
	if !ok {
		w = &windowCount{}
		m[key] = w
	}
	return w
}

func fastJoinKey(guildID, userID snowflake.ID) string {
	return fmt.Sprintf("%s:%s", guildID, userID)
}
