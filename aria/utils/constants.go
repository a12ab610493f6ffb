package utils

import (
	"fmt"
	"time"
)

const (
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	EmbedDefaultColor = 0x2B2D31

	SongsPerPage = 10
	TodosPerPage = 10
)

func Ptr[T any](v T) *T {
	return &v
}

// FormatDuration renders a track length as m:ss or h:mm:ss.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatRelative renders a duration like "in 2h30m" for reminder
// confirmations.
func FormatRelative(until time.Duration) string {
	until = until.Round(time.Second)
	if until < time.Minute {
		return fmt.Sprintf("in %ds", int(until.Seconds()))
	}
	if until < time.Hour {
		return fmt.Sprintf("in %dm", int(until.Minutes()))
	}
	if until < 24*time.Hour {
		return fmt.Sprintf("in %dh%02dm", int(until.Hours()), int(until.Minutes())%60)
	}
	days := int(until.Hours()) / 24
	return fmt.Sprintf("in %dd%dh", days, int(until.Hours())%24)
}

func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
