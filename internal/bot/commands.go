package bot

import (
	"github.com/bwmarrin/discordgo"
)

// PracticeCommandName is the slash command that starts a practice duel
const PracticeCommandName = "practice"

var dmPermission = false

// Commands defines all slash commands for the bot
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:         PracticeCommandName,
		Description:  "(Admin only) Start a practice duel vs the bot and get a private link to the Duel UI.",
		DMPermission: &dmPermission,
	},
}
