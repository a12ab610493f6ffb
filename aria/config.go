package aria

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log     LogConfig     `toml:"log"`
	Bot     BotConfig     `toml:"bot"`
	DB      DBConfig      `toml:"db"`
	Music   MusicConfig   `toml:"music"`
	Automod AutomodConfig `toml:"automod"`
	Spaces  SpacesConfig  `toml:"spaces"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type MusicConfig struct {
	CacheDir      string `toml:"cache_dir"`
	DefaultVolume int    `toml:"default_volume"`
	IdleTimeout   int    `toml:"idle_timeout_secs"`
	// DJRole names the role that bypasses vote skips. Empty grants DJ
	// powers to everyone.
	DJRole string `toml:"dj_role"`
	Notify bool   `toml:"notify"`
}

type AutomodConfig struct {
	Enabled       bool           `toml:"enabled"`
	ExemptRoles   []string       `toml:"exempt_roles"`
	LogChannel    snowflake.ID   `toml:"log_channel"`
	IgnoredGuilds []snowflake.ID `toml:"ignored_guilds"`
}

// SpacesConfig configures the optional S3-compatible archive for the
// audio cache. Left empty, archiving is disabled.
type SpacesConfig struct {
	Key       string `toml:"key"`
	Secret    string `toml:"secret"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	AudioRoot string `toml:"audioroot"`
}

func (c *Config) applyDefaults() {
	if c.Music.CacheDir == "" {
		c.Music.CacheDir = "cache"
	}
	if c.Music.DefaultVolume == 0 {
		c.Music.DefaultVolume = 100
	}
	if c.Music.IdleTimeout == 0 {
		c.Music.IdleTimeout = 180
	}
	if c.DB.PoolSize == 0 {
		c.DB.PoolSize = 10
	}
}

func (c MusicConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}
