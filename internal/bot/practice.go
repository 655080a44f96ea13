package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/duelbot/internal/config"
	"github.com/fadedpez/duelbot/internal/discord"
	"github.com/fadedpez/duelbot/internal/duel"
	"github.com/fadedpez/duelbot/internal/logging"
	"github.com/fadedpez/duelbot/internal/types"
)

const (
	// PracticeQuery is appended to the Duel UI URL
	PracticeQuery = "mode=practice"

	practiceColor  = 0x2ecc71
	practiceTitle  = "Practice Duel Ready"
	practiceFooter = "This message is visible only to you (ephemeral)."
	openUILabel    = "Open Duel UI"
)

const practiceDescription = "A fresh duel vs **Practice Bot** has been initialized.\n\n" +
	"• Both sides start at **200 HP**\n" +
	"• Each draws **3 cards**\n" +
	"• **Coin flip** decides who goes first\n\n" +
	"Click the button below to open the Duel UI."

// PracticeHandler serves /practice: it gates on channel and role, asks the
// backend for a fresh practice duel and replies privately with a Duel UI link.
type PracticeHandler struct {
	backend   duel.Initializer
	uiURL     string
	channelID string
	roleID    string
	logger    *logging.Logger
}

// NewPracticeHandler creates a PracticeHandler from the startup configuration
func NewPracticeHandler(cfg *config.Config, backend duel.Initializer, logger *logging.Logger) *PracticeHandler {
	return &PracticeHandler{
		backend:   backend,
		uiURL:     cfg.UIURL,
		channelID: cfg.BattlefieldChannelID,
		roleID:    cfg.AdminRoleID,
		logger:    logger,
	}
}

// PracticeURL returns the Duel UI link handed to the user
func (h *PracticeHandler) PracticeURL() string {
	return h.uiURL + "?" + PracticeQuery
}

// Handle always produces exactly one terminal reply: an immediate ephemeral
// rejection, or a deferred ephemeral response that is edited once.
func (h *PracticeHandler) Handle(ctx context.Context, s discord.SessionHandler, i *discordgo.InteractionCreate) {
	logger := h.logger.With("interaction_id", i.ID, "user_id", invokerID(i), "channel_id", i.ChannelID)

	if err := h.authorize(i); err != nil {
		logger.Info("Rejected /practice: %v", err)
		if err := discord.SendErrorResponse(s, i, err); err != nil {
			logger.Error("Error sending rejection: %v", err)
		}
		return
	}

	// Acknowledge before touching the network so the interaction can't expire
	if err := discord.DeferResponse(s, i, true); err != nil {
		logger.Error("Error deferring response: %v", err)
		return
	}

	if _, err := h.backend.InitPractice(ctx); err != nil {
		logger.LogError(err)
		if err := discord.EditErrorResponse(s, i, backendFailure(err)); err != nil {
			logger.Error("Error editing response: %v", err)
		}
		return
	}

	resp := discord.NewEmbedResponse(practiceEmbed(), []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label: openUILabel,
					Style: discordgo.LinkButton,
					URL:   h.PracticeURL(),
				},
			},
		},
	})
	if err := discord.EditResponse(s, i, resp); err != nil {
		logger.Error("Error editing response: %v", err)
		return
	}
	logger.Info("Practice duel ready")
}

// authorize checks the channel first, then the role
func (h *PracticeHandler) authorize(i *discordgo.InteractionCreate) error {
	if i.ChannelID != h.channelID {
		return types.NewDuelError(types.ErrWrongChannel,
			fmt.Sprintf("This command can only be used in <#%s>.", h.channelID))
	}
	if !hasRole(i.Member, h.roleID) {
		return types.NewDuelError(types.ErrPermissionDenied,
			"You must have the **Admin** role to use this command.")
	}
	return nil
}

// backendFailure turns a backend error into the message shown to the user
func backendFailure(err error) error {
	var duelErr *types.DuelError
	if !types.As(err, &duelErr) {
		duelErr = types.WrapError(types.ErrNetworkError, err.Error(), err)
	}

	if duelErr.Code == types.ErrBackendTimeout {
		return types.WrapError(types.ErrBackendTimeout,
			"The duel server timed out while starting practice. Try again in a moment.", err)
	}
	return types.WrapError(duelErr.Code,
		fmt.Sprintf("Failed to start practice duel:\n`%s`\nCheck DUEL_BACKEND_URL or server logs.", duelErr.Message), err)
}

func practiceEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       practiceTitle,
		Description: practiceDescription,
		Color:       practiceColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: practiceFooter,
		},
	}
}

// hasRole reports whether the member's role set contains roleID. Users
// outside a guild have no roles.
func hasRole(member *discordgo.Member, roleID string) bool {
	if member == nil {
		return false
	}
	roles := make(map[string]struct{}, len(member.Roles))
	for _, r := range member.Roles {
		roles[r] = struct{}{}
	}
	_, ok := roles[roleID]
	return ok
}

func invokerID(i *discordgo.InteractionCreate) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID
	case i.User != nil:
		return i.User.ID
	}
	return ""
}
