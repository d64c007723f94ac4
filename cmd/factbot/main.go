package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	"github.com/NullMeDev/factlens/internal/config"
	"github.com/NullMeDev/factlens/internal/logging"
	"github.com/NullMeDev/factlens/internal/verify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.Printf("factbot: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	fmt.Println("factbot starting up...")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		return fmt.Errorf("invalid bot config: %w", err)
	}

	initErr := logging.Init(logging.Options{Level: cfg.LogLevel, Path: cfg.LogPath, Format: cfg.LogFormat})
	logger := logging.Default().With("component", "factbot")
	defer logger.Sync()
	if initErr != nil {
		logger.Warning("Logging falls back to stdout at info level: %v", initErr)
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	bot := NewBot(dg, verify.FromConfig(cfg, logger), cfg.DiscordAppID, cfg.DiscordGuildID, logger)
	if err := bot.Start(); err != nil {
		return err
	}
	defer bot.Stop()

	logger.Info("Bot is now running. Press CTRL-C to exit.")
	<-ctx.Done()
	logger.Info("Shutting down...")
	return nil
}
