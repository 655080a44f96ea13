package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/duelbot/internal/config"
	"github.com/fadedpez/duelbot/internal/discord"
	"github.com/fadedpez/duelbot/internal/duel"
	"github.com/fadedpez/duelbot/internal/logging"
	"github.com/fadedpez/duelbot/internal/types"
)

// Bot represents the Discord bot and its dependencies
type Bot struct {
	config     *config.Config
	session    discord.SessionHandler
	logger     *logging.Logger
	commands   []*discordgo.ApplicationCommand
	practice   *PracticeHandler
	shutdownWg sync.WaitGroup

	mu       sync.Mutex
	draining bool
}

// New creates a new instance of Bot
func New(cfg *config.Config, logger *logging.Logger) (*Bot, error) {
	session, err := discord.NewSession(cfg.Token)
	if err != nil {
		return nil, err
	}

	backend := duel.NewClient(cfg.BackendURL, duel.WithLogger(logger))
	logger.Info("Practice duels initialize via %s", backend.Endpoint())

	return newBot(cfg, session, backend, logger), nil
}

func newBot(cfg *config.Config, session discord.SessionHandler, backend duel.Initializer, logger *logging.Logger) *Bot {
	bot := &Bot{
		config:   cfg,
		session:  session,
		logger:   logger,
		commands: make([]*discordgo.ApplicationCommand, 0),
		practice: NewPracticeHandler(cfg, backend, logger),
	}

	// Register handlers
	bot.registerHandlers()

	return bot
}

// Start connects to Discord and registers slash commands
func (b *Bot) Start() error {
	// Open connection to Discord
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	// Register commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the bot
func (b *Bot) Shutdown() {
	// Stop accepting interactions before waiting on the ones in flight
	b.mu.Lock()
	b.draining = true
	b.mu.Unlock()

	// Cleanup commands if in development
	if b.config.IsDevelopment() {
		if err := b.cleanupCommands(); err != nil {
			b.logger.Error("Error cleaning up commands: %v", err)
		}
	}

	// Close Discord session
	if err := b.session.Close(); err != nil {
		b.logger.Error("Error closing Discord session: %v", err)
	}

	// Wait for in-flight invocations to send their final reply
	b.shutdownWg.Wait()
}

func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteractionCreate)
}

// registerCommands creates every command in Commands, guild-scoped when a
// guild is configured
func (b *Bot) registerCommands() error {
	for _, cmd := range Commands {
		created, err := b.session.ApplicationCommandCreate(b.config.AppID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("failed to create command %s: %w", cmd.Name, err)
		}
		b.commands = append(b.commands, created)
		b.logger.Info("Registered command /%s", cmd.Name)
	}
	return nil
}

// cleanupCommands removes all of the application's commands
func (b *Bot) cleanupCommands() error {
	existing, err := b.session.ApplicationCommands(b.config.AppID, b.config.GuildID)
	if err != nil {
		return fmt.Errorf("failed to list commands: %w", err)
	}

	for _, cmd := range existing {
		if err := b.session.ApplicationCommandDelete(b.config.AppID, b.config.GuildID, cmd.ID); err != nil {
			return fmt.Errorf("failed to delete command %s: %w", cmd.Name, err)
		}
	}
	b.commands = b.commands[:0]
	return nil
}

// handleInteractionCreate handles Discord interaction events. discordgo runs
// each event on its own goroutine.
func (b *Bot) handleInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.beginInvocation() {
		b.logger.Debug("Dropping interaction %s during shutdown", i.ID)
		return
	}
	defer b.shutdownWg.Done()
	defer b.recoverInvocation(i)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleSlashCommand(context.Background(), i)
	default:
		b.logger.Debug("Ignoring interaction type %v", i.Type)
	}
}

// beginInvocation registers an in-flight invocation unless Shutdown has
// started. Add always happens under mu before Shutdown can reach Wait.
func (b *Bot) beginInvocation() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.draining {
		return false
	}
	b.shutdownWg.Add(1)
	return true
}

// recoverInvocation turns a panic in a command handler into an internal
// error reply so the process keeps serving other invocations.
func (b *Bot) recoverInvocation(i *discordgo.InteractionCreate) {
	r := recover()
	if r == nil {
		return
	}
	b.logger.Error("Panic while handling interaction %s: %v", i.ID, r)

	err := types.NewDuelError(types.ErrInternalError, "Something went wrong while handling this command.")
	b.logger.LogError(err)

	// An acknowledged interaction rejects a second response, so edit instead
	if sendErr := discord.SendErrorResponse(b.session, i, err); sendErr != nil {
		if editErr := discord.EditErrorResponse(b.session, i, err); editErr != nil {
			b.logger.Error("Error reporting internal error: %v", editErr)
		}
	}
}
