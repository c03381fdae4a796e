package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MelnikovEI/fish-shop/bot"
	coreconfig "github.com/MelnikovEI/fish-shop/core/config"
	"github.com/MelnikovEI/fish-shop/core/logger"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app, err := bot.Bootstrap(cfg)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("close error: %v", err)
		}
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("bot stopped: %v", err)
	}
}
