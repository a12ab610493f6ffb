package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/json"

	"github.com/ariabot/aria/aria"
	"github.com/ariabot/aria/aria/database/repositories"
	"github.com/ariabot/aria/aria/services"
	"github.com/ariabot/aria/aria/utils"
)

var Mute = discord.SlashCommandCreate{
	Name:                     "mute",
	Description:              "🔇 Mute a member",
	DefaultMemberPermissions: json.NewNullablePtr(discord.PermissionModerateMembers),
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Member to mute",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "duration",
			Description: "How long, e.g. 10m, 2h, 7d. Omit for indefinite",
			Required:    false,
		},
		discord.ApplicationCommandOptionString{
			Name:        "reason",
			Description: "Why the member is muted",
			Required:    false,
		},
	},
}

var Unmute = discord.SlashCommandCreate{
	Name:                     "unmute",
	Description:              "🔊 Unmute a member",
	DefaultMemberPermissions: json.NewNullablePtr(discord.PermissionModerateMembers),
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Member to unmute",
			Required:    true,
		},
	},
}

func MuteHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return errors.New("mute used outside a guild")
		}
		data := e.SlashCommandInteractionData()
		target := data.User("user")

		var duration time.Duration
		if raw, ok := data.OptString("duration"); ok {
			var err error
			duration, err = parseMuteDuration(raw)
			if err != nil {
				return e.CreateMessage(discord.MessageCreate{
					Content: "I couldn't parse that duration. Use forms like `10m`, `2h` or `7d`.",
					Flags:   discord.MessageFlagEphemeral,
				})
			}
		}
		reason, _ := data.OptString("reason")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := b.ModService.Mute(ctx, b.Client, *e.GuildID(), target.ID, e.User().ID, reason, duration)
		if err != nil {
			switch {
			case errors.Is(err, repositories.ErrMuteExists):
				return e.CreateMessage(discord.MessageCreate{
					Content: fmt.Sprintf("%s is already muted.", target.Mention()),
					Flags:   discord.MessageFlagEphemeral,
				})
			case errors.Is(err, services.ErrNoMutedRole):
				return e.CreateMessage(discord.MessageCreate{
					Content: fmt.Sprintf("This server has no role named %q. Create one first.", services.MutedRoleName),
					Flags:   discord.MessageFlagEphemeral,
				})
			}
			return err
		}

		content := fmt.Sprintf("🔇 Muted %s indefinitely.", target.Mention())
		if duration > 0 {
			content = fmt.Sprintf("🔇 Muted %s for %s.", target.Mention(), utils.FormatDuration(duration))
		}
		return e.CreateMessage(discord.MessageCreate{Content: content})
	}
}

func UnmuteHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return errors.New("unmute used outside a guild")
		}
		target := e.SlashCommandInteractionData().User("user")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := b.ModService.Unmute(ctx, b.Client, *e.GuildID(), target.ID); err != nil {
			return err
		}
		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("🔊 Unmuted %s.", target.Mention()),
		})
	}
}

// parseMuteDuration accepts time.ParseDuration forms plus a day suffix.
func parseMuteDuration(raw string) (time.Duration, error) {
	var d time.Duration
	if n := len(raw); n > 1 && raw[n-1] == 'd' {
		var days float64
		if _, err := fmt.Sscanf(raw[:n-1], "%g", &days); err != nil {
			return 0, err
		}
		d = time.Duration(days * 24 * float64(time.Hour))
	} else {
		var err error
		d, err = time.ParseDuration(raw)
		if err != nil {
			return 0, err
		}
	}
	if d <= 0 {
		return 0, errors.New("duration must be positive")
	}
	return d, nil
}
