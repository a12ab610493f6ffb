package commands

import "github.com/disgoorg/disgo/discord"

var Commands = []discord.ApplicationCommandCreate{
	Play,
	Skip,
	Stop,
	Pause,
	Resume,
	QueueCommand,
	NowPlaying,
	Shuffle,
	Remove,
	Loop,
	Volume,
	Disconnect,
	Remind,
	Mute,
	Unmute,
	Todo,
	Version,
	Stats,
}
