package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
)

func main() {
	// Initialize custom loggers
	initLoggers()

	InfoLogger.Println("Starting InterServer Bot")

	cfg, err := loadConfig()
	if err != nil {
		ErrorLogger.Fatalf("Error loading configuration: %v", err)
	}

	db, err := initDB(cfg.DatabasePath)
	if err != nil {
		ErrorLogger.Fatalf("Error initializing database: %v", err)
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		ErrorLogger.Fatalf("Error creating Discord session: %v", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentMessageContent

	bot := NewBot(db, cfg, RealClock{}, session)

	session.AddHandler(bot.handleReady)
	session.AddHandler(bot.handleMessageCreate)
	session.AddHandler(bot.handleReactionAdd)
	session.AddHandler(bot.handleGuildCreate)
	session.AddHandler(bot.handleGuildDelete)

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	bot.Start(ctx)

	if err := session.Open(); err != nil {
		ErrorLogger.Fatalf("Error connecting to the gateway: %v", err)
	}

	// Daily retention sweep over the spam tracking table
	scheduler := cron.New()
	if _, err := scheduler.AddJob("@daily", bot.sweeper); err != nil {
		ErrorLogger.Fatalf("Error scheduling retention sweep: %v", err)
	}
	scheduler.Start()

	<-ctx.Done()
	InfoLogger.Println("Shutdown signal received")

	scheduler.Stop()
	if err := session.Close(); err != nil {
		ErrorLogger.Printf("Error closing the Discord session: %v", err)
	}

	InfoLogger.Println("Bot stopped. Exiting application.")
}
