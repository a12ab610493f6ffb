package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/ariabot/aria/aria/database/models"
	"github.com/ariabot/aria/aria/database/repositories"
	"github.com/ariabot/aria/aria/scheduler"
)

const MutedRoleName = "Muted"

var ErrNoMutedRole = errors.New("guild has no Muted role")

// ModService applies and lifts mutes. A timed mute assigns the guild's
// Muted role, records the mute, and schedules an unmute timer; the
// dispatcher calls Unmute when it fires.
type ModService struct {
	mutes repositories.MuteRepository
	sched *scheduler.Dispatcher
}

func NewModService(mutes repositories.MuteRepository, sched *scheduler.Dispatcher) *ModService {
	return &ModService{
		mutes: mutes,
		sched: sched,
	}
}

// Mute assigns the Muted role and records the mute. duration == 0 means
// indefinite: no unmute timer is scheduled.
func (s *ModService) Mute(ctx context.Context, client bot.Client, guildID, userID, moderatorID snowflake.ID, reason string, duration time.Duration) error {
	role, err := s.mutedRole(client, guildID)
	if err != nil {
		return err
	}

	if err := client.Rest().AddMemberRole(guildID, userID, role.ID); err != nil {
		return fmt.Errorf("failed to assign muted role: %w", err)
	}

	now := time.Now()
	mute := &models.Mute{
		GuildID:     guildID.String(),
		UserID:      userID.String(),
		ModeratorID: moderatorID.String(),
		Reason:      reason,
		CreatedAt:   now,
	}
	if duration > 0 {
		expires := now.Add(duration)
		mute.ExpiresAt = &expires
	}

	if err := s.mutes.Create(ctx, mute); err != nil {
		if errors.Is(err, repositories.ErrMuteExists) {
			return err
		}
		return fmt.Errorf("failed to record mute: %w", err)
	}

	if duration > 0 {
		_, err := s.sched.Schedule(ctx, scheduler.EventUnmute, now.Add(duration), scheduler.UnmutePayload{
			GuildID: guildID.String(),
			UserID:  userID.String(),
		})
		if err != nil {
			return fmt.Errorf("failed to schedule unmute: %w", err)
		}
	}

	slog.Info("Member muted",
		slog.String("type", "mod"),
		slog.String("guild_id", guildID.String()),
		slog.String("user_id", userID.String()),
		slog.String("reason", reason),
		slog.Duration("duration", duration))
	return nil
}

// Unmute removes the Muted role and clears the mute record. Used by
// both the /unmute command and the unmute timer handler.
func (s *ModService) Unmute(ctx context.Context, client bot.Client, guildID, userID snowflake.ID) error {
	role, err := s.mutedRole(client, guildID)
	if err == nil {
		if err := client.Rest().RemoveMemberRole(guildID, userID, role.ID); err != nil {
			slog.Warn("Failed to remove muted role",
				slog.String("type", "mod"),
				slog.String("guild_id", guildID.String()),
				slog.String("user_id", userID.String()),
				slog.Any("error", err))
		}
	}

	removed, err := s.mutes.Delete(ctx, guildID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to clear mute record: %w", err)
	}
	if removed {
		slog.Info("Member unmuted",
			slog.String("type", "mod"),
			slog.String("guild_id", guildID.String()),
			slog.String("user_id", userID.String()))
	}
	return nil
}

// HandleUnmuteTimer is the dispatcher handler for unmute timers.
func (s *ModService) HandleUnmuteTimer(client bot.Client) scheduler.Handler {
	return func(ctx context.Context, timer *models.Timer) error {
		var payload scheduler.UnmutePayload
		if err := scheduler.DecodePayload(timer, &payload); err != nil {
			return err
		}
		guildID, err := snowflake.Parse(payload.GuildID)
		if err != nil {
			return fmt.Errorf("bad guild id in unmute payload: %w", err)
		}
		userID, err := snowflake.Parse(payload.UserID)
		if err != nil {
			return fmt.Errorf("bad user id in unmute payload: %w", err)
		}
		return s.Unmute(ctx, client, guildID, userID)
	}
}

func (s *ModService) mutedRole(client bot.Client, guildID snowflake.ID) (discord.Role, error) {
	roles, err := client.Rest().GetRoles(guildID)
	if err != nil {
		return discord.Role{}, fmt.Errorf("could not get roles: %w", err)
	}
	for _, r := range roles {
		if r.Name == MutedRoleName {
			return r, nil
		}
	}
	return discord.Role{}, ErrNoMutedRole
}
