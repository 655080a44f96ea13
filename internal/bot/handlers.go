package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/duelbot/internal/discord"
	"github.com/fadedpez/duelbot/internal/types"
)

// handleSlashCommand handles all slash commands
func (b *Bot) handleSlashCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name

	switch name {
	case PracticeCommandName:
		b.practice.Handle(ctx, b.session, i)
	default:
		b.logger.Warn("Unknown command: %s", name)
		err := types.NewDuelError(types.ErrInvalidCommand, fmt.Sprintf("Unknown command: %s", name))
		if err := discord.SendErrorResponse(b.session, i, err); err != nil {
			b.logger.Error("Error sending response: %v", err)
		}
	}
}
