package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/ariabot/aria/aria"
	"github.com/ariabot/aria/aria/music"
	"github.com/ariabot/aria/aria/utils"
)

var Play = discord.SlashCommandCreate{
	Name:        "play",
	Description: "🎵 Play a song or add it to the queue",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "query",
			Description: "A YouTube link or search terms",
			Required:    true,
		},
	},
}

func PlayHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return music.ErrNoPlayer
		}
		guildID := *e.GuildID()

		voiceState, ok := b.Client.Caches().VoiceState(guildID, e.User().ID)
		if !ok || voiceState.ChannelID == nil {
			return music.ErrNotListening
		}

		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		song, err := b.Resolver.Resolve(ctx, e.SlashCommandInteractionData().String("query"), e.User().ID, e.User().Username)
		if err != nil {
			if msg, ok := music.UserMessage(err); ok {
				_, uerr := e.UpdateInteractionResponse(discord.MessageUpdate{Content: utils.Ptr(msg)})
				if uerr != nil {
					return uerr
				}
				return nil
			}
			return err
		}

		player, err := playerFor(b, e, guildID, *voiceState.ChannelID)
		if err != nil {
			return err
		}
		player.Enqueue(song)

		content := fmt.Sprintf("▶️ Queued **%s** (%s)", song.Title, utils.FormatDuration(song.Duration))
		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{Content: utils.Ptr(content)})
		return err
	}
}

// playerFor returns the guild's player, creating it and joining the
// caller's voice channel on first use.
func playerFor(b *aria.Bot, e *handler.CommandEvent, guildID, channelID snowflake.ID) (*music.Player, error) {
	if p, ok := b.Players.Get(guildID); ok {
		return p, nil
	}

	conn := b.Client.VoiceManager().CreateConn(guildID)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := conn.Open(ctx, channelID, false, true); err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	notifyChannelID := e.ChannelID()
	p, created := b.Players.GetOrCreate(guildID, func() *music.Player {
		return music.NewPlayer(guildID, music.NewVoiceOutput(conn), music.Options{
			IdleTimeout: b.Cfg.Music.IdleTimeoutDuration(),
			Volume:      b.Cfg.Music.DefaultVolume,
			Notify:      b.Cfg.Music.Notify,
			Recorder:    music.SongPlayRecorder{Repo: b.SongRepo},
			OnTrackStart: func(song *music.Song) {
				_, err := b.Client.Rest().CreateMessage(notifyChannelID, discord.MessageCreate{
					Content: fmt.Sprintf("🎶 Now playing **%s**", song.Title),
				})
				if err != nil {
					slog.Warn("Failed to send now-playing message",
						slog.String("type", "player"),
						slog.Any("error", err))
				}
			},
			OnClose: func(p *music.Player) {
				b.Players.Remove(guildID, p)
			},
		})
	})
	if !created {
		// Lost the race to another command; drop the spare connection.
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		conn.Close(closeCtx)
		closeCancel()
	}
	return p, nil
}
