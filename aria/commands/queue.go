package commands

import (
	"fmt"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/sahilm/fuzzy"

	"github.com/ariabot/aria/aria"
	"github.com/ariabot/aria/aria/music"
	"github.com/ariabot/aria/aria/utils"
)

var QueueCommand = discord.SlashCommandCreate{
	Name:        "queue",
	Description: "📜 Show the song queue",
}

var Shuffle = discord.SlashCommandCreate{
	Name:        "shuffle",
	Description: "🔀 Shuffle the queue",
}

var Remove = discord.SlashCommandCreate{
	Name:        "remove",
	Description: "🗑️ Remove a song from the queue",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "position",
			Description: "Queue position to remove, starting at 1",
			Required:    false,
			MinValue:    utils.Ptr(1),
		},
		discord.ApplicationCommandOptionString{
			Name:        "title",
			Description: "Title to search for instead of a position",
			Required:    false,
		},
	},
}

func QueueHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return music.ErrNoPlayer
		}
		p, ok := b.Players.Get(*e.GuildID())
		if !ok {
			return music.ErrNoPlayer
		}

		songs := p.Queue().Snapshot()
		current := p.Current()
		if len(songs) == 0 && current == nil {
			return music.ErrQueueEmpty
		}

		totalPages := int(math.Max(1, math.Ceil(float64(len(songs))/float64(utils.SongsPerPage))))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				startIdx := page * utils.SongsPerPage
				endIdx := min(startIdx+utils.SongsPerPage, len(songs))

				var description strings.Builder
				if current != nil && p.State() != music.StateWaiting {
					description.WriteString(fmt.Sprintf("**Now playing:** [%s](%s)\n\n",
						current.Title, current.URL()))
				}
				for i, song := range songs[startIdx:endIdx] {
					description.WriteString(fmt.Sprintf("`%2d.` %s (%s) • %s\n",
						startIdx+i+1,
						utils.Truncate(song.Title, 60),
						utils.FormatDuration(song.Duration),
						song.RequesterName))
				}

				embed.
					SetTitle("📜 Queue").
					SetDescription(description.String()).
					SetColor(utils.EmbedDefaultColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d songs", page+1, totalPages, len(songs)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func ShuffleHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		p, err := requirePlayer(b, e)
		if err != nil {
			return err
		}
		if p.Queue().Len() == 0 {
			return music.ErrQueueEmpty
		}
		p.Queue().Shuffle()
		return e.CreateMessage(discord.MessageCreate{Content: "🔀 Queue shuffled."})
	}
}

// songTitles implements fuzzy.Source over a queue snapshot.
type songTitles []*music.Song

func (s songTitles) String(i int) string { return s[i].Title }
func (s songTitles) Len() int            { return len(s) }

func RemoveHandler(b *aria.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		p, err := requirePlayer(b, e)
		if err != nil {
			return err
		}

		data := e.SlashCommandInteractionData()
		if position, ok := data.OptInt("position"); ok {
			song, err := p.Queue().Remove(position - 1)
			if err != nil {
				return err
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("🗑️ Removed **%s**.", song.Title),
			})
		}

		title, ok := data.OptString("title")
		if !ok || title == "" {
			return music.ErrBadPosition
		}

		songs := p.Queue().Snapshot()
		matches := fuzzy.FindFrom(title, songTitles(songs))
		if len(matches) == 0 {
			return music.ErrBadPosition
		}

		song, err := p.Queue().Remove(matches[0].Index)
		if err != nil {
			return err
		}
		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("🗑️ Removed **%s**.", song.Title),
		})
	}
}
