package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/ariabot/aria/aria"
	"github.com/ariabot/aria/aria/utils"
)

var Version = discord.SlashCommandCreate{
	Name:        "version",
	Description: "version command",
}

var Stats = discord.SlashCommandCreate{
	Name:        "stats",
	Description: "📊 Playback and timer statistics",
}

func VersionHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}
		_, err := e.UpdateInteractionResponse(discord.MessageUpdate{
			Content: utils.Ptr(fmt.Sprintf("Version: %s\nCommit: %s", b.Version, b.Commit)),
		})
		return err
	}
}

func StatsHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		top, err := b.SongRepo.TopByPlays(ctx, 10)
		if err != nil {
			return err
		}
		songCount, err := b.SongRepo.Count(ctx)
		if err != nil {
			return err
		}
		pendingTimers, err := b.TimerRepo.CountPending(ctx)
		if err != nil {
			return err
		}
		activeMutes := 0
		if guildID := e.GuildID(); guildID != nil {
			mutes, err := b.MuteRepo.ListByGuild(ctx, guildID.String())
			if err != nil {
				return err
			}
			activeMutes = len(mutes)
		}

		var sb strings.Builder
		for i, song := range top {
			sb.WriteString(fmt.Sprintf("`%2d.` %s • %d plays\n",
				i+1, utils.Truncate(song.Title, 60), song.Plays))
		}
		if sb.Len() == 0 {
			sb.WriteString("Nothing played yet.")
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "📊 Stats",
				Description: sb.String(),
				Color:       utils.InfoColor,
				Fields: []discord.EmbedField{
					{Name: "Cached songs", Value: fmt.Sprintf("%d", songCount), Inline: utils.Ptr(true)},
					{Name: "Pending timers", Value: fmt.Sprintf("%d", pendingTimers), Inline: utils.Ptr(true)},
					{Name: "Active players", Value: fmt.Sprintf("%d", b.Players.Count()), Inline: utils.Ptr(true)},
					{Name: "Active mutes", Value: fmt.Sprintf("%d", activeMutes), Inline: utils.Ptr(true)},
				},
			}},
		})
	}
}
