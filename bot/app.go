// Package bot wires the shop conversation to Telegram via telebot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"

	"github.com/MelnikovEI/fish-shop/cms"
	coreconfig "github.com/MelnikovEI/fish-shop/core/config"
	coredatabase "github.com/MelnikovEI/fish-shop/core/database"
	"github.com/MelnikovEI/fish-shop/core/logger"
	"github.com/MelnikovEI/fish-shop/core/redisdb"
	coretelegram "github.com/MelnikovEI/fish-shop/core/telegram"
	"github.com/MelnikovEI/fish-shop/core/telegram/middleware"
	"github.com/MelnikovEI/fish-shop/session"
	"github.com/MelnikovEI/fish-shop/shop"
	"log/slog"
)

// App holds the bot's infrastructure and domain components.
type App struct {
	cfg     *coreconfig.Config
	db      *sqlx.DB
	rdb     *redis.Client
	machine *shop.Machine
}

// Bootstrap initializes the logger, storage, commerce client, and state machine.
func Bootstrap(cfg *coreconfig.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	dbCfg := databaseConfig(cfg)
	db, err := coredatabase.Connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := coredatabase.RunMigrations(dbCfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	rdb, err := redisdb.Connect(cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
	}

	client := cms.New(cms.Options{
		BaseURL:       cfg.CMS.BaseURL,
		ClientID:      cfg.CMS.ClientID,
		ClientSecret:  cfg.CMS.ClientSecret,
		ImageCacheDir: cfg.Images.CacheDir,
		HTTPClient:    coretelegram.BuildHTTPClient(),
		TokenStore:    cms.NewRedisTokenStore(rdb),
	})

	machine := shop.NewMachine(client, session.NewPostgres(db), cfg.Images.LogoPath)

	return &App{cfg: cfg, db: db, rdb: rdb, machine: machine}, nil
}

func databaseConfig(cfg *coreconfig.Config) coredatabase.Config {
	return coredatabase.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Name:           cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections,
	}
}

// Run starts the Telegram bot and blocks until the context is done.
func (a *App) Run(ctx context.Context) error {
	cfg := a.cfg

	poller := coretelegram.BuildPoller(coretelegram.PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: coretelegram.WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: coretelegram.BuildHTTPClient(),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	b.Use(middleware.Recover)
	b.Use(middleware.Logging)
	if cfg.RateLimit.IntervalMS > 0 {
		b.Use(middleware.RateLimit(middleware.RateLimitOptions{
			Interval: time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		}))
	}

	h := NewHandlers(a.machine)
	b.Handle("/start", h.OnStart)
	b.Handle(tele.OnCallback, h.OnCallback)
	b.Handle(tele.OnText, h.OnText)

	logger.TG.Info("bot ready",
		slog.String("event", "mode"),
		slog.String("mode", cfg.Telegram.RunMode),
	)

	runDone := make(chan struct{})
	go func() {
		b.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		b.Stop()
		<-runDone
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-runDone:
		return nil
	}
}

// Close releases storage connections.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	return errors.Join(errs...)
}
