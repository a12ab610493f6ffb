package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/ariabot/aria/aria"
	"github.com/ariabot/aria/aria/automod"
	"github.com/ariabot/aria/aria/services"
)

const spamMuteDuration = 10 * time.Minute

// AutomodHandler feeds gateway traffic into the spam checker and
// escalates violations to a timed mute.
type AutomodHandler struct {
	checker *automod.Checker
	mod     *services.ModService

	exemptRoles   map[string]struct{}
	ignoredGuilds map[snowflake.ID]struct{}

	// logChannel receives a notice per violation; zero disables it.
	logChannel snowflake.ID
}

func NewAutomodHandler(checker *automod.Checker, mod *services.ModService, cfg aria.AutomodConfig) *AutomodHandler {
	h := &AutomodHandler{
		checker:       checker,
		mod:           mod,
		exemptRoles:   make(map[string]struct{}, len(cfg.ExemptRoles)),
		ignoredGuilds: make(map[snowflake.ID]struct{}, len(cfg.IgnoredGuilds)),
		logChannel:    cfg.LogChannel,
	}
	for _, r := range cfg.ExemptRoles {
		h.exemptRoles[r] = struct{}{}
	}
	for _, g := range cfg.IgnoredGuilds {
		h.ignoredGuilds[g] = struct{}{}
	}
	return h
}

func (h *AutomodHandler) OnMemberJoin(e *events.GuildMemberJoin) {
	h.checker.TrackJoin(e.GuildID, e.Member.User.ID, e.Member.JoinedAt)
}

func (h *AutomodHandler) OnMessage(e *events.MessageCreate) {
	if e.Message.Author.Bot || e.GuildID == nil {
		return
	}
	guildID := *e.GuildID
	if _, ok := h.ignoredGuilds[guildID]; ok {
		return
	}

	msg := automod.Message{
		GuildID:        guildID,
		ChannelID:      e.ChannelID,
		AuthorID:       e.Message.Author.ID,
		Content:        e.Message.Content,
		AccountCreated: e.Message.Author.ID.Time(),
	}

	member := e.Message.Member
	if member == nil {
		if cached, ok := e.Client().Caches().Member(guildID, e.Message.Author.ID); ok {
			member = &cached
		}
	}
	if member != nil {
		msg.JoinedAt = member.JoinedAt
		if h.isExempt(e, member.RoleIDs) {
			return
		}
	}

	reason, spam := h.checker.IsSpamming(msg)
	if !spam {
		return
	}

	slog.Warn("Spam detected",
		slog.String("type", "mod"),
		slog.String("bucket", reason),
		slog.String("guild_id", guildID.String()),
		slog.String("user_id", e.Message.Author.ID.String()),
		slog.String("channel_id", e.ChannelID.String()))

	if err := e.Client().Rest().DeleteMessage(e.ChannelID, e.MessageID); err != nil {
		slog.Warn("Failed to delete spam message",
			slog.String("type", "mod"),
			slog.Any("error", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := h.mod.Mute(ctx, e.Client(), guildID, e.Message.Author.ID, e.Client().ApplicationID(), "spam: "+reason, spamMuteDuration)
	if err != nil {
		slog.Error("Failed to mute spammer",
			slog.String("type", "mod"),
			slog.String("guild_id", guildID.String()),
			slog.String("user_id", e.Message.Author.ID.String()),
			slog.Any("error", err))
	}

	if h.logChannel != 0 {
		_, err := e.Client().Rest().CreateMessage(h.logChannel, discord.MessageCreate{
			Content: fmt.Sprintf("🔇 Muted <@%s> in <#%s> for %s (%s bucket).",
				e.Message.Author.ID, e.ChannelID, spamMuteDuration, reason),
		})
		if err != nil {
			slog.Warn("Failed to post automod notice",
				slog.String("type", "mod"),
				slog.Any("error", err))
		}
	}
}

func (h *AutomodHandler) isExempt(e *events.MessageCreate, roleIDs []snowflake.ID) bool {
	if len(h.exemptRoles) == 0 {
		return false
	}
	for _, id := range roleIDs {
		role, ok := e.Client().Caches().Role(*e.GuildID, id)
		if !ok {
			continue
		}
		if _, exempt := h.exemptRoles[role.Name]; exempt {
			return true
		}
	}
	return false
}
