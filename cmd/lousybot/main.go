package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lousybook/lousybot-go/internal/assembler"
	"github.com/lousybook/lousybot-go/internal/bot"
	"github.com/lousybook/lousybot-go/internal/commands"
	"github.com/lousybook/lousybot-go/internal/config"
	"github.com/lousybook/lousybot-go/internal/history"
	"github.com/lousybook/lousybot-go/internal/llm"
	"github.com/lousybook/lousybot-go/internal/logger"
	"github.com/lousybook/lousybot-go/internal/mention"
	"github.com/lousybook/lousybot-go/internal/pipeline"
	"github.com/lousybook/lousybot-go/internal/platform/discord"
	"github.com/lousybook/lousybot-go/internal/providers"
)

func main() {

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	// Provider and model selection from the operator files
	provider, model, err := providers.Default(cfg.LLM.ModelDir)
	if err != nil {
		logger.L.Error("failed to load provider configuration", "error", err, "dir", cfg.LLM.ModelDir)
		os.Exit(1)
	}
	logger.L.Info("model selected", "provider", provider.Name, "model", model.ModelID)

	admins, err := mention.ParseAdminFile(cfg.Files.Admins)
	if err != nil {
		logger.L.Error("failed to read admin file", "error", err)
		os.Exit(1)
	}
	if admins.Missing {
		logger.L.Warn("admin file missing; admin commands are locked", "path", cfg.Files.Admins)
	}
	for _, line := range admins.Invalid {
		logger.L.Warn("ignoring invalid admin entry", "entry", line)
	}

	store, err := history.NewStore(cfg.History.CacheDir)
	if err != nil {
		logger.L.Error("failed to prepare history store", "error", err)
		os.Exit(1)
	}

	client := discord.NewClient(cfg.Discord.APIBase, cfg.Discord.Token, 30*time.Second)
	sink := discord.NewMessageSink(client)
	gateway := llm.NewGateway(llm.NewClient(provider), model.ModelID, cfg.LLM.Temperature)

	cmds := &commands.Handler{
		Store:     store,
		Admins:    admins,
		Registrar: discord.NewCommandRegistrar(client, cfg.Discord.AppID),
		Completer: gateway,
	}

	queue := pipeline.NewQueue()
	asm := assembler.New(sink, cfg.LLM.Dynamic, cfg.Stream.CharThreshold, cfg.Stream.UpdateInterval())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bot.New(cfg, client, sink, queue, cmds)
	if err := b.Start(ctx); err != nil {
		logger.L.Error("failed to start bot", "error", err)
		os.Exit(1)
	}

	worker := pipeline.New(pipeline.Options{
		Queue:         queue,
		Store:         store,
		Gateway:       gateway,
		Assembler:     asm,
		Sink:          sink,
		Instructions:  cfg.Instructions(),
		Admins:        admins,
		SelfID:        b.SelfID(),
		MaxHistory:    cfg.History.MaxEntries,
		Dynamic:       cfg.LLM.Dynamic,
		DisableStream: cfg.LLM.DisableStream,
	})
	go worker.Run(ctx)

	logger.L.Info("bot running", "poll_interval", cfg.Discord.PollInterval())
	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		logger.L.Error("poll loop failed", "error", err)
		os.Exit(1)
	}
	logger.L.Info("shutdown complete")
}
