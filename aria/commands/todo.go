package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/ariabot/aria/aria"
	"github.com/ariabot/aria/aria/database/repositories"
	"github.com/ariabot/aria/aria/utils"
)

var Todo = discord.SlashCommandCreate{
	Name:        "todo",
	Description: "📝 Manage your todo list",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "add",
			Description: "Add a todo",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "content",
					Description: "What needs doing",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "List your todos",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "done",
			Description: "Mark a todo as done",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Todo id from /todo list",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "delete",
			Description: "Delete a todo",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Todo id from /todo list",
					Required:    true,
				},
			},
		},
	},
}

func TodoHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		userID := e.User().ID.String()

		switch *data.SubCommandName {
		case "add":
			todo, err := b.TodoRepo.Add(ctx, userID, data.String("content"))
			if err != nil {
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("📝 Added todo `%d`.", todo.ID),
				Flags:   discord.MessageFlagEphemeral,
			})

		case "list":
			todos, err := b.TodoRepo.ListByUser(ctx, userID)
			if err != nil {
				return err
			}
			if len(todos) == 0 {
				return e.CreateMessage(discord.MessageCreate{
					Content: "Your todo list is empty.",
					Flags:   discord.MessageFlagEphemeral,
				})
			}

			totalPages := int(math.Max(1, math.Ceil(float64(len(todos))/float64(utils.TodosPerPage))))
			return b.Paginator.Create(e.Respond, paginator.Pages{
				ID:      e.ID().String(),
				Creator: e.User().ID,
				PageFunc: func(page int, embed *discord.EmbedBuilder) {
					startIdx := page * utils.TodosPerPage
					endIdx := min(startIdx+utils.TodosPerPage, len(todos))

					var sb strings.Builder
					for _, todo := range todos[startIdx:endIdx] {
						box := "⬜"
						if todo.Done {
							box = "✅"
						}
						sb.WriteString(fmt.Sprintf("%s `%d` %s\n", box, todo.ID, utils.Truncate(todo.Content, 80)))
					}
					embed.
						SetTitle("📝 Your todos").
						SetDescription(sb.String()).
						SetColor(utils.EmbedDefaultColor).
						SetFooter(fmt.Sprintf("Page %d/%d", page+1, totalPages), "")
				},
				Pages:      totalPages,
				ExpireMode: paginator.ExpireModeAfterLastUsage,
			}, true)

		case "done":
			id := int64(data.Int("id"))
			if err := b.TodoRepo.MarkDone(ctx, userID, id); err != nil {
				if errors.Is(err, repositories.ErrTodoNotFound) {
					return e.CreateMessage(discord.MessageCreate{
						Content: "No todo with that id.",
						Flags:   discord.MessageFlagEphemeral,
					})
				}
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("✅ Todo `%d` done.", id),
				Flags:   discord.MessageFlagEphemeral,
			})

		case "delete":
			id := int64(data.Int("id"))
			if err := b.TodoRepo.Delete(ctx, userID, id); err != nil {
				if errors.Is(err, repositories.ErrTodoNotFound) {
					return e.CreateMessage(discord.MessageCreate{
						Content: "No todo with that id.",
						Flags:   discord.MessageFlagEphemeral,
					})
				}
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("🗑️ Todo `%d` deleted.", id),
				Flags:   discord.MessageFlagEphemeral,
			})
		}
		return nil
	}
}
