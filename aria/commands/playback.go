package commands

import (
	"fmt"
	"strings"
	"sync"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/ariabot/aria/aria"
	"github.com/ariabot/aria/aria/music"
	"github.com/ariabot/aria/aria/utils"
)

var Skip = discord.SlashCommandCreate{
	Name:        "skip",
	Description: "⏭️ Vote to skip the current song",
}

var Stop = discord.SlashCommandCreate{
	Name:        "stop",
	Description: "⏹️ Stop playback and clear the queue",
}

var Pause = discord.SlashCommandCreate{
	Name:        "pause",
	Description: "⏸️ Pause the current song",
}

var Resume = discord.SlashCommandCreate{
	Name:        "resume",
	Description: "▶️ Resume a paused song",
}

var NowPlaying = discord.SlashCommandCreate{
	Name:        "nowplaying",
	Description: "🎵 Show the current song",
}

var Loop = discord.SlashCommandCreate{
	Name:        "loop",
	Description: "🔁 Set the loop mode",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "mode",
			Description: "What to loop",
			Required:    true,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "off", Value: "off"},
				{Name: "one", Value: "one"},
				{Name: "all", Value: "all"},
			},
		},
	},
}

var Volume = discord.SlashCommandCreate{
	Name:        "volume",
	Description: "🔊 Set the playback volume",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "percent",
			Description: "Volume from 1 to 150",
			Required:    true,
			MinValue:    utils.Ptr(1),
			MaxValue:    utils.Ptr(150),
		},
	},
}

var Disconnect = discord.SlashCommandCreate{
	Name:        "disconnect",
	Description: "👋 Disconnect from the voice channel",
}

// requirePlayer resolves the guild's player and checks the caller
// shares a voice channel with the bot.
func requirePlayer(b *aria.Bot, e *handler.CommandEvent) (*music.Player, error) {
	if e.GuildID() == nil {
		return nil, music.ErrNoPlayer
	}
	guildID := *e.GuildID()

	p, ok := b.Players.Get(guildID)
	if !ok {
		return nil, music.ErrNoPlayer
	}

	userState, ok := b.Client.Caches().VoiceState(guildID, e.User().ID)
	if !ok || userState.ChannelID == nil {
		return nil, music.ErrNotListening
	}
	botState, ok := b.Client.Caches().VoiceState(guildID, b.Client.ID())
	if ok && botState.ChannelID != nil && *botState.ChannelID != *userState.ChannelID {
		return nil, music.ErrNotListening
	}
	return p, nil
}

// hasDJRole reports whether the caller carries the configured DJ role.
// An empty role name means everyone is a DJ.
func hasDJRole(b *aria.Bot, e *handler.CommandEvent) bool {
	if b.Cfg.Music.DJRole == "" {
		return true
	}
	member := e.Member()
	if member == nil || e.GuildID() == nil {
		return false
	}
	for _, id := range member.RoleIDs {
		role, ok := b.Client.Caches().Role(*e.GuildID(), id)
		if ok && role.Name == b.Cfg.Music.DJRole {
			return true
		}
	}
	return false
}

// listenerCount counts non-bot members in the bot's voice channel.
func listenerCount(b *aria.Bot, guildID snowflake.ID) int {
	botState, ok := b.Client.Caches().VoiceState(guildID, b.Client.ID())
	if !ok || botState.ChannelID == nil {
		return 0
	}
	count := 0
	b.Client.Caches().VoiceStatesForEach(guildID, func(state discord.VoiceState) {
		if state.ChannelID == nil || *state.ChannelID != *botState.ChannelID {
			return
		}
		if state.UserID == b.Client.ID() {
			return
		}
		count++
	})
	return count
}

type skipBallot struct {
	videoID string
	voters  map[snowflake.ID]struct{}
}

func SkipHandler(b *aria.Bot) handler.CommandHandler {
	var mu sync.Mutex
	ballots := map[snowflake.ID]*skipBallot{}

	return func(e *handler.CommandEvent) error {
		p, err := requirePlayer(b, e)
		if err != nil {
			return err
		}
		current := p.Current()
		if current == nil {
			return music.ErrNothingPlaying
		}
		guildID := *e.GuildID()

		// The requester of the current song and DJs skip immediately.
		if e.User().ID == current.Requester || hasDJRole(b, e) {
			if err := p.Skip(); err != nil {
				return err
			}
			mu.Lock()
			delete(ballots, guildID)
			mu.Unlock()
			return e.CreateMessage(discord.MessageCreate{Content: "⏭️ Skipped."})
		}

		listeners := listenerCount(b, guildID)
		needed := listeners/2 + 1

		mu.Lock()
		ballot := ballots[guildID]
		if ballot == nil || ballot.videoID != current.VideoID {
			ballot = &skipBallot{videoID: current.VideoID, voters: map[snowflake.ID]struct{}{}}
			ballots[guildID] = ballot
		}
		ballot.voters[e.User().ID] = struct{}{}
		votes := len(ballot.voters)
		if votes >= needed {
			delete(ballots, guildID)
		}
		mu.Unlock()

		if votes >= needed {
			if err := p.Skip(); err != nil {
				return err
			}
			return e.CreateMessage(discord.MessageCreate{Content: "⏭️ Vote passed, skipping."})
		}
		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("🗳️ Skip vote: %d/%d", votes, needed),
		})
	}
}

func StopHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		p, err := requirePlayer(b, e)
		if err != nil {
			return err
		}
		if !hasDJRole(b, e) {
			return music.ErrNotDJ
		}
		cleared := p.Queue().Clear()
		p.Close()
		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("⏹️ Stopped and dropped %d queued songs.", cleared),
		})
	}
}

func PauseHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		p, err := requirePlayer(b, e)
		if err != nil {
			return err
		}
		if err := p.Pause(); err != nil {
			return err
		}
		return e.CreateMessage(discord.MessageCreate{Content: "⏸️ Paused."})
	}
}

func ResumeHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		p, err := requirePlayer(b, e)
		if err != nil {
			return err
		}
		if err := p.Resume(); err != nil {
			return err
		}
		return e.CreateMessage(discord.MessageCreate{Content: "▶️ Resumed."})
	}
}

func NowPlayingHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return music.ErrNoPlayer
		}
		p, ok := b.Players.Get(*e.GuildID())
		if !ok {
			return music.ErrNoPlayer
		}
		current := p.Current()
		if current == nil || p.State() == music.StateWaiting {
			return music.ErrNothingPlaying
		}

		loopOne, loopAll := p.LoopMode()
		var mode string
		switch {
		case loopOne:
			mode = " • 🔂 looping"
		case loopAll:
			mode = " • 🔁 looping queue"
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "🎵 Now Playing",
				Description: fmt.Sprintf("[%s](%s)\n%s • requested by %s%s",
					current.Title, current.URL(),
					utils.FormatDuration(current.Duration),
					current.RequesterName, mode),
				Color: utils.InfoColor,
			}},
		})
	}
}

func LoopHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		p, err := requirePlayer(b, e)
		if err != nil {
			return err
		}

		mode := e.SlashCommandInteractionData().String("mode")
		switch mode {
		case "one":
			p.SetLoopOne(true)
		case "all":
			p.SetLoopAll(true)
		default:
			p.SetLoopOne(false)
			p.SetLoopAll(false)
		}
		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("🔁 Loop mode set to **%s**.", strings.ToLower(mode)),
		})
	}
}

func VolumeHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		p, err := requirePlayer(b, e)
		if err != nil {
			return err
		}
		if !hasDJRole(b, e) {
			return music.ErrNotDJ
		}
		percent := e.SlashCommandInteractionData().Int("percent")
		p.SetVolume(percent)
		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("🔊 Volume set to %d%%. Takes effect from the next song.", percent),
		})
	}
}

func DisconnectHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		p, err := requirePlayer(b, e)
		if err != nil {
			return err
		}
		p.Close()
		return e.CreateMessage(discord.MessageCreate{Content: "👋 Disconnected."})
	}
}
