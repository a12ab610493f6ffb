package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sho0pi/naturaltime"

	"github.com/ariabot/aria/aria"
	"github.com/ariabot/aria/aria/automod"
	"github.com/ariabot/aria/aria/commands"
	"github.com/ariabot/aria/aria/database"
	"github.com/ariabot/aria/aria/database/models"
	"github.com/ariabot/aria/aria/database/repositories"
	"github.com/ariabot/aria/aria/handlers"
	"github.com/ariabot/aria/aria/logger"
	"github.com/ariabot/aria/aria/music"
	"github.com/ariabot/aria/aria/scheduler"
	"github.com/ariabot/aria/aria/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := aria.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	slog.Info("Starting Aria",
		slog.String("version", version),
		slog.String("commit", commit))

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := aria.New(*cfg, version, commit)
	b.DB = db
	b.TimerRepo = repositories.NewTimerRepository(db.BunDB())
	b.SongRepo = repositories.NewSongRepository(db.BunDB())
	b.MuteRepo = repositories.NewMuteRepository(db.BunDB())
	b.TodoRepo = repositories.NewTodoRepository(db.BunDB())

	if cfg.Spaces.Bucket != "" {
		b.ArchiveService = services.NewArchiveService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.AudioRoot,
		)
	}

	if err := os.MkdirAll(cfg.Music.CacheDir, 0o755); err != nil {
		slog.Error("Failed to create audio cache dir", slog.Any("error", err))
		os.Exit(-1)
	}
	var archive music.Archive
	if b.ArchiveService != nil {
		archive = b.ArchiveService
	}
	b.Resolver = music.NewResolver(b.SongRepo, cfg.Music.CacheDir, archive)
	b.Players = music.NewRegistry()

	b.Scheduler = scheduler.NewDispatcher(b.TimerRepo)
	b.SpamChecker = automod.NewChecker()
	b.ModService = services.NewModService(b.MuteRepo, b.Scheduler)

	parser, err := naturaltime.New()
	if err != nil {
		slog.Error("Failed to initialize time parser", slog.Any("error", err))
		os.Exit(-1)
	}

	h := handler.New()

	// Music commands
	h.Command("/play", handlers.WrapWithLogging("play", commands.PlayHandler(b)))
	h.Command("/skip", handlers.WrapWithLogging("skip", commands.SkipHandler(b)))
	h.Command("/stop", handlers.WrapWithLogging("stop", commands.StopHandler(b)))
	h.Command("/pause", handlers.WrapWithLogging("pause", commands.PauseHandler(b)))
	h.Command("/resume", handlers.WrapWithLogging("resume", commands.ResumeHandler(b)))
	h.Command("/queue", handlers.WrapWithLogging("queue", commands.QueueHandler(b)))
	h.Command("/nowplaying", handlers.WrapWithLogging("nowplaying", commands.NowPlayingHandler(b)))
	h.Command("/shuffle", handlers.WrapWithLogging("shuffle", commands.ShuffleHandler(b)))
	h.Command("/remove", handlers.WrapWithLogging("remove", commands.RemoveHandler(b)))
	h.Command("/loop", handlers.WrapWithLogging("loop", commands.LoopHandler(b)))
	h.Command("/volume", handlers.WrapWithLogging("volume", commands.VolumeHandler(b)))
	h.Command("/disconnect", handlers.WrapWithLogging("disconnect", commands.DisconnectHandler(b)))

	// Reminders, moderation, todos
	h.Command("/remind", handlers.WrapWithLogging("remind", commands.RemindHandler(b, parser)))
	h.Command("/mute", handlers.WrapWithLogging("mute", commands.MuteHandler(b)))
	h.Command("/unmute", handlers.WrapWithLogging("unmute", commands.UnmuteHandler(b)))
	h.Command("/todo", handlers.WrapWithLogging("todo", commands.TodoHandler(b)))

	// System commands
	h.Command("/version", commands.VersionHandler(b))
	h.Command("/stats", handlers.WrapWithLogging("stats", commands.StatsHandler(b)))

	listeners := []bot.EventListener{h, bot.NewListenerFunc(b.OnReady)}
	if cfg.Automod.Enabled {
		automodHandler := handlers.NewAutomodHandler(b.SpamChecker, b.ModService, cfg.Automod)
		listeners = append(listeners,
			bot.NewListenerFunc(automodHandler.OnMessage),
			bot.NewListenerFunc(automodHandler.OnMemberJoin),
		)
	}

	if err = b.SetupBot(listeners...); err != nil {
		logger.LogError("Failed to setup bot", err,
			slog.String("error_details", fmt.Sprintf("%+v", err)))
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	// Timer handlers need the client, so they register after SetupBot.
	b.Scheduler.OnTimer(scheduler.EventReminder, func(ctx context.Context, timer *models.Timer) error {
		var payload scheduler.ReminderPayload
		if err := scheduler.DecodePayload(timer, &payload); err != nil {
			return err
		}
		channelID, err := snowflake.Parse(payload.ChannelID)
		if err != nil {
			return fmt.Errorf("bad channel id in reminder payload: %w", err)
		}
		_, err = b.Client.Rest().CreateMessage(channelID, discord.MessageCreate{
			Content: fmt.Sprintf("⏰ <@%s> %s", payload.UserID, payload.Message),
		})
		return err
	})
	b.Scheduler.OnTimer(scheduler.EventUnmute, b.ModService.HandleUnmuteTimer(b.Client))

	if *shouldSyncCommands {
		logger.LogSystem("Syncing commands", slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			logger.LogError("Failed to sync commands", err)
		}
	}

	b.Scheduler.Start()
	defer b.Scheduler.Stop()

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		logger.LogError("Failed to open gateway", err)
		os.Exit(-1)
	}

	slog.Info("Aria is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down...")
	b.Players.CloseAll()
}
