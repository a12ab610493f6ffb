package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/ariabot/aria/aria/music"
)

// guildIDAttr renders the guild ID for log attrs. Commands invoked from
// a DM carry no guild.
func guildIDAttr(id *snowflake.ID) string {
	if id == nil {
		return "DM"
	}
	return id.String()
}

// WrapWithLogging wraps a command handler with logging. Domain errors
// carrying a user-facing message are answered as ephemeral replies and
// not counted as failures.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()

		slog.Info("Command started",
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
			slog.String("guild_id", guildIDAttr(e.GuildID())),
			slog.String("channel_id", e.ChannelID().String()),
		)

		done := make(chan error, 1)
		go func() {
			done <- h(e)
		}()

		select {
		case err := <-done:
			duration := time.Since(start)

			attrs := []any{
				slog.String("type", "cmd"),
				slog.String("name", name),
				slog.String("user_id", e.User().ID.String()),
				slog.String("user_name", e.User().Username),
				slog.Duration("took", duration),
			}

			if msg, ok := music.UserMessage(err); ok {
				slog.Info("Command rejected", append(attrs,
					slog.String("status", "rejected"),
					slog.String("reason", msg),
				)...)
				return e.CreateMessage(discord.MessageCreate{
					Content: msg,
					Flags:   discord.MessageFlagEphemeral,
				})
			}

			if err != nil {
				slog.Error("Command failed", append(attrs,
					slog.Any("error", err),
					slog.String("status", "failed"),
				)...)
			} else {
				if duration > 2*time.Second {
					slog.Warn("Command executed slowly", append(attrs,
						slog.String("status", "slow"),
					)...)
				} else {
					slog.Info("Command completed", append(attrs,
						slog.String("status", "success"),
					)...)
				}
			}
			return err

		case <-time.After(30 * time.Second):
			slog.Error("Command timed out",
				slog.String("type", "cmd"),
				slog.String("name", name),
				slog.String("user_id", e.User().ID.String()),
				slog.String("user_name", e.User().Username),
				slog.String("status", "timeout"),
			)
			return fmt.Errorf("command timed out after 30 seconds")
		}
	}
}
