package handlers

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func TestGuildIDAttr(t *testing.T) {
	if got := guildIDAttr(nil); got != "DM" {
		t.Errorf("guildIDAttr(nil) = %q, want %q", got, "DM")
	}

	id := snowflake.ID(123456789)
	if got := guildIDAttr(&id); got != "123456789" {
		t.Errorf("guildIDAttr(&id) = %q, want %q", got, "123456789")
	}
}
