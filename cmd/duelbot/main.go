package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fadedpez/duelbot/internal/bot"
	"github.com/fadedpez/duelbot/internal/config"
	"github.com/fadedpez/duelbot/internal/duel"
	"github.com/fadedpez/duelbot/internal/logging"
	"github.com/urfave/cli/v3"
)

// Version is set during build using ldflags
var Version = "dev"

var configFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   config.DefaultConfigPath,
		Usage:   "JSON config file consulted when an environment variable is unset",
	},
	&cli.StringFlag{
		Name:  "env-file",
		Value: config.DefaultEnvFile,
		Usage: "dotenv file loaded before reading the environment",
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "overrides LOG_LEVEL (debug, info, warn, error)",
	},
}

func main() {
	app := &cli.Command{
		Name:    "duelbot",
		Version: Version,
		Usage:   "Discord bot that starts practice duels against the duel backend",
		Flags:   configFlags,
		Action:  runAction,
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Resolve and validate configuration without connecting to Discord",
				Flags:  configFlags,
				Action: checkAction,
			},
			{
				Name:  "version",
				Usage: "Print the version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("duelbot version %s\n", cmd.Root().Version)
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(
		config.WithConfigFile(cmd.String("config")),
		config.WithEnvFile(cmd.String("env-file")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. A non-empty override wins over the
// configured level.
func newLogger(cfg *config.Config, override string) (*logging.Logger, error) {
	name := cfg.LogLevel
	if override != "" {
		name = override
	}
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(level, cfg.IsDevelopment())
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, cmd.String("log-level"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Create and initialize bot
	duelBot, err := bot.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// Start the bot
	if err := duelBot.Start(); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	logger.Info("Bot is now running at log level %s. Press CTRL-C to exit.", logger.Level())

	// Wait for interrupt signal to gracefully shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down...")
	duelBot.Shutdown()
	return nil
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Print(renderSummary(cfg))
	return nil
}

// renderSummary lists the resolved settings without the token
func renderSummary(cfg *config.Config) string {
	return fmt.Sprintf(
		"environment:         %s\n"+
			"practice endpoint:   %s\n"+
			"duel UI:             %s?%s\n"+
			"battlefield channel: %s\n"+
			"admin role:          %s\n",
		cfg.Environment,
		duel.NewClient(cfg.BackendURL).Endpoint(),
		cfg.UIURL, bot.PracticeQuery,
		cfg.BattlefieldChannelID,
		cfg.AdminRoleID,
	)
}
