package aria

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariabot/aria/aria/automod"
	"github.com/ariabot/aria/aria/database"
	"github.com/ariabot/aria/aria/database/repositories"
	"github.com/ariabot/aria/aria/music"
	"github.com/ariabot/aria/aria/scheduler"
	"github.com/ariabot/aria/aria/services"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB             *database.DB
	TimerRepo      repositories.TimerRepository
	SongRepo       repositories.SongRepository
	MuteRepo       repositories.MuteRepository
	TodoRepo       repositories.TodoRepository
	Scheduler      *scheduler.Dispatcher
	Players        *music.Registry
	Resolver       *music.Resolver
	SpamChecker    *automod.Checker
	ModService     *services.ModService
	ArchiveService *services.ArchiveService
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildMessages,
			gateway.IntentGuildMembers,
			gateway.IntentGuildVoiceStates,
			gateway.IntentMessageContent,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds, cache.FlagVoiceStates, cache.FlagMembers, cache.FlagRoles)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Aria is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithListeningActivity("/play"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}
