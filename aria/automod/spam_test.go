package automod

import (
	"fmt"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

func newTestChecker(start time.Time) (*Checker, *time.Time) {
	now := start
	c := NewChecker()
	c.now = func() time.Time { return now }
	return c, &now
}

func msgFrom(user snowflake.ID, content string) Message {
	return Message{
		GuildID:   snowflake.ID(1),
		ChannelID: snowflake.ID(10),
		AuthorID:  user,
		Content:   content,
	}
}

func TestChecker_PerUserBucket(t *testing.T) {
	c, _ := newTestChecker(time.Unix(1000, 0))

	for i := 0; i < byUserCapacity; i++ {
		msg := msgFrom(snowflake.ID(5), fmt.Sprintf("message %d", i))
		if reason, spam := c.IsSpamming(msg); spam {
			t.Fatalf("message %d flagged as %q, want clean", i+1, reason)
		}
	}

	reason, spam := c.IsSpamming(msgFrom(snowflake.ID(5), "one more"))
	if !spam || reason != "by-user" {
		t.Errorf("message %d: reason=%q spam=%v, want by-user/true", byUserCapacity+1, reason, spam)
	}

	// Another user in the same channel is unaffected.
	if reason, spam := c.IsSpamming(msgFrom(snowflake.ID(6), "hello")); spam {
		t.Errorf("other user flagged as %q", reason)
	}
}

func TestChecker_PerContentBucket(t *testing.T) {
	c, _ := newTestChecker(time.Unix(1000, 0))

	// Rotate authors so only the shared content can trip a bucket.
	for i := 0; i < byContentCapacity; i++ {
		msg := msgFrom(snowflake.ID(100+i), "free nitro click here")
		if reason, spam := c.IsSpamming(msg); spam {
			t.Fatalf("message %d flagged as %q, want clean", i+1, reason)
		}
	}

	reason, spam := c.IsSpamming(msgFrom(snowflake.ID(999), "free nitro click here"))
	if !spam || reason != "by-content" {
		t.Errorf("reason=%q spam=%v, want by-content/true", reason, spam)
	}

	// Same content in a different channel uses a separate bucket.
	other := msgFrom(snowflake.ID(999), "free nitro click here")
	other.ChannelID = snowflake.ID(11)
	if reason, spam := c.IsSpamming(other); spam {
		t.Errorf("different channel flagged as %q", reason)
	}
}

func TestChecker_PerUserBucketCountsSpacedMessages(t *testing.T) {
	c, now := newTestChecker(time.Unix(1000, 0))

	// Spread the burst across the window instead of sending it in one
	// instant. 11 messages at 1.19s spacing all land inside 12s, so the
	// 11th must flag even though the bucket is never hit twice in the
	// same moment.
	gap := 1190 * time.Millisecond
	for i := 0; i < byUserCapacity; i++ {
		if i > 0 {
			*now = now.Add(gap)
		}
		msg := msgFrom(snowflake.ID(5), fmt.Sprintf("spaced %d", i))
		if reason, spam := c.IsSpamming(msg); spam {
			t.Fatalf("message %d flagged as %q, want clean", i+1, reason)
		}
	}

	*now = now.Add(gap)
	reason, spam := c.IsSpamming(msgFrom(snowflake.ID(5), "spaced 10"))
	if !spam || reason != "by-user" {
		t.Errorf("11th message within window: reason=%q spam=%v, want by-user/true", reason, spam)
	}
}

func TestChecker_BucketRefillsAfterWindow(t *testing.T) {
	c, now := newTestChecker(time.Unix(1000, 0))

	for i := 0; i < byUserCapacity; i++ {
		c.IsSpamming(msgFrom(snowflake.ID(5), fmt.Sprintf("m%d", i)))
	}
	if _, spam := c.IsSpamming(msgFrom(snowflake.ID(5), "over")); !spam {
		t.Fatal("bucket should be exhausted")
	}

	*now = now.Add(byUserWindow)
	if reason, spam := c.IsSpamming(msgFrom(snowflake.ID(5), "later")); spam {
		t.Errorf("flagged as %q after window elapsed", reason)
	}
}

func TestChecker_NewAccountBucket(t *testing.T) {
	start := time.Unix(1_000_000, 0)
	c, _ := newTestChecker(start)

	fresh := func(user snowflake.ID, content string) Message {
		msg := msgFrom(user, content)
		msg.AccountCreated = start.Add(-24 * time.Hour)
		msg.JoinedAt = start.Add(-time.Hour)
		return msg
	}

	// Rotate authors and contents so only the shared channel bucket for
	// new accounts can trip.
	for i := 0; i < newAccountCapacity; i++ {
		msg := fresh(snowflake.ID(200+i), fmt.Sprintf("hi %d", i))
		if reason, spam := c.IsSpamming(msg); spam {
			t.Fatalf("message %d flagged as %q, want clean", i+1, reason)
		}
	}

	reason, spam := c.IsSpamming(fresh(snowflake.ID(500), "one more"))
	if !spam || reason != "new-account" {
		t.Errorf("reason=%q spam=%v, want new-account/true", reason, spam)
	}
}

func TestChecker_EstablishedAccountSkipsNewAccountBucket(t *testing.T) {
	start := time.Unix(1_000_000, 0)
	c, _ := newTestChecker(start)

	msg := msgFrom(snowflake.ID(7), "hello")
	msg.AccountCreated = start.Add(-365 * 24 * time.Hour)
	msg.JoinedAt = start.Add(-time.Hour)

	if c.isNewAccount(msg, start) {
		t.Error("year-old account treated as new")
	}

	msg.AccountCreated = start.Add(-24 * time.Hour)
	msg.JoinedAt = start.Add(-30 * 24 * time.Hour)
	if c.isNewAccount(msg, start) {
		t.Error("long-standing member treated as new")
	}
}

func TestChecker_FastJoinFlag(t *testing.T) {
	start := time.Unix(2000, 0)
	c, now := newTestChecker(start)

	guild := snowflake.ID(1)
	c.TrackJoin(guild, snowflake.ID(21), start)
	c.TrackJoin(guild, snowflake.ID(22), start.Add(time.Second))
	c.TrackJoin(guild, snowflake.ID(23), start.Add(10*time.Second))

	if c.IsFastJoin(guild, snowflake.ID(21)) {
		t.Error("first joiner flagged")
	}
	if !c.IsFastJoin(guild, snowflake.ID(22)) {
		t.Error("joiner 1s after previous not flagged")
	}
	if c.IsFastJoin(guild, snowflake.ID(23)) {
		t.Error("joiner 10s after previous flagged")
	}

	*now = now.Add(fastJoinFlagTTL + time.Minute)
	if c.IsFastJoin(guild, snowflake.ID(22)) {
		t.Error("fast-join flag survived past its TTL")
	}
}

func TestChecker_FastJoinerBucketCheckedFirst(t *testing.T) {
	start := time.Unix(2000, 0)
	c, _ := newTestChecker(start)

	guild := snowflake.ID(1)
	c.TrackJoin(guild, snowflake.ID(30), start)
	c.TrackJoin(guild, snowflake.ID(31), start.Add(time.Second))

	for i := 0; i < fastJoinerCapacity; i++ {
		msg := msgFrom(snowflake.ID(31), fmt.Sprintf("raid %d", i))
		if reason, spam := c.IsSpamming(msg); spam {
			t.Fatalf("message %d flagged as %q, want clean", i+1, reason)
		}
	}

	reason, spam := c.IsSpamming(msgFrom(snowflake.ID(31), "again"))
	if !spam || reason != "fast-joiner" {
		t.Errorf("reason=%q spam=%v, want fast-joiner/true", reason, spam)
	}
}
