package aria

import "testing"

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.Music.CacheDir != "cache" {
		t.Errorf("CacheDir = %q, want %q", cfg.Music.CacheDir, "cache")
	}
	if cfg.Music.DefaultVolume != 100 {
		t.Errorf("DefaultVolume = %d, want 100", cfg.Music.DefaultVolume)
	}
	if cfg.Music.IdleTimeout != 180 {
		t.Errorf("IdleTimeout = %d, want 180", cfg.Music.IdleTimeout)
	}
	if cfg.DB.PoolSize != 10 {
		t.Errorf("PoolSize = %d, want 10", cfg.DB.PoolSize)
	}

	// An empty DJ role grants DJ powers to everyone and must survive
	// default application untouched.
	if cfg.Music.DJRole != "" {
		t.Errorf("DJRole = %q, want empty", cfg.Music.DJRole)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Music.DefaultVolume = 60
	cfg.Music.DJRole = "Selecta"
	cfg.applyDefaults()

	if cfg.Music.DefaultVolume != 60 {
		t.Errorf("DefaultVolume = %d, want 60", cfg.Music.DefaultVolume)
	}
	if cfg.Music.DJRole != "Selecta" {
		t.Errorf("DJRole = %q, want %q", cfg.Music.DJRole, "Selecta")
	}
}
