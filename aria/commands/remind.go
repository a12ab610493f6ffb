package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sho0pi/naturaltime"

	"github.com/ariabot/aria/aria"
	"github.com/ariabot/aria/aria/database/repositories"
	"github.com/ariabot/aria/aria/scheduler"
	"github.com/ariabot/aria/aria/utils"
)

var Remind = discord.SlashCommandCreate{
	Name:        "remind",
	Description: "⏰ Manage reminders",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "set",
			Description: "Set a reminder",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "when",
					Description: "When to remind you, e.g. 'in 2 hours' or 'friday at 3pm'",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "text",
					Description: "What to remind you about",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "List your pending reminders",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "delete",
			Description: "Delete a pending reminder",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Reminder id from /remind list",
					Required:    true,
				},
			},
		},
	},
}

func RemindHandler(b *aria.Bot, parser *naturaltime.Parser) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		switch *data.SubCommandName {
		case "set":
			return remindSet(b, parser, e)
		case "list":
			return remindList(b, e)
		case "delete":
			return remindDelete(b, e)
		}
		return nil
	}
}

func remindSet(b *aria.Bot, parser *naturaltime.Parser, e *handler.CommandEvent) error {
	data := e.SlashCommandInteractionData()
	now := time.Now()

	when, err := parser.ParseDate(data.String("when"), now)
	if err != nil || when == nil {
		return e.CreateMessage(discord.MessageCreate{
			Content: "I couldn't parse that time. Try formats like 'in 2 hours' or 'friday at 3pm'.",
			Flags:   discord.MessageFlagEphemeral,
		})
	}
	if when.Before(now) {
		return e.CreateMessage(discord.MessageCreate{
			Content: "The reminder time must be in the future.",
			Flags:   discord.MessageFlagEphemeral,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	timer, err := b.Scheduler.Schedule(ctx, scheduler.EventReminder, *when, scheduler.ReminderPayload{
		UserID:    e.User().ID.String(),
		ChannelID: e.ChannelID().String(),
		Message:   data.String("text"),
	})
	if err != nil {
		return err
	}

	content := fmt.Sprintf("⏰ Reminder set %s (<t:%d:f>).", utils.FormatRelative(time.Until(*when)), when.Unix())
	if timer.ID == 0 {
		// Short timers stay in memory and have no id to delete by.
		content = fmt.Sprintf("⏰ Reminder set %s.", utils.FormatRelative(time.Until(*when)))
	}
	return e.CreateMessage(discord.MessageCreate{Content: content, Flags: discord.MessageFlagEphemeral})
}

func remindList(b *aria.Bot, e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	timers, err := b.TimerRepo.ListByEventAndUser(ctx, scheduler.EventReminder, e.User().ID.String())
	if err != nil {
		return err
	}
	if len(timers) == 0 {
		return e.CreateMessage(discord.MessageCreate{
			Content: "You have no pending reminders.",
			Flags:   discord.MessageFlagEphemeral,
		})
	}

	var sb strings.Builder
	for _, timer := range timers {
		var payload scheduler.ReminderPayload
		if err := scheduler.DecodePayload(timer, &payload); err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("`%d` <t:%d:f> • %s\n",
			timer.ID, timer.Expires.Unix(), utils.Truncate(payload.Message, 80)))
	}

	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "⏰ Your reminders",
			Description: sb.String(),
			Color:       utils.InfoColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

func remindDelete(b *aria.Bot, e *handler.CommandEvent) error {
	id := int64(e.SlashCommandInteractionData().Int("id"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	timer, err := b.TimerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTimerNotFound) {
			return e.CreateMessage(discord.MessageCreate{
				Content: "No reminder with that id.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}
		return err
	}

	var payload scheduler.ReminderPayload
	if err := scheduler.DecodePayload(timer, &payload); err != nil {
		return err
	}
	if timer.Event != scheduler.EventReminder || payload.UserID != e.User().ID.String() {
		return e.CreateMessage(discord.MessageCreate{
			Content: "No reminder with that id.",
			Flags:   discord.MessageFlagEphemeral,
		})
	}

	if _, err := b.Scheduler.Cancel(ctx, id); err != nil {
		return err
	}
	return e.CreateMessage(discord.MessageCreate{
		Content: "🗑️ Reminder deleted.",
		Flags:   discord.MessageFlagEphemeral,
	})
}
