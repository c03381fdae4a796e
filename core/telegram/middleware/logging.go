package middleware

import (
	"context"
	"time"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"github.com/MelnikovEI/fish-shop/core/telegram/callbacks"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Logging logs a single receipt line per update and exposes the rid to handlers.
func Logging(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		chatID, userID := int64(0), int64(0)
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.String("rid", rid),
			slog.Int("update_id", upd.ID),
		}
		if userID != 0 {
			attrs = append(attrs, slog.Int64("user_id", userID))
		}
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.Parse(upd.Callback)
			if key != "" {
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			}
			if payload != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
			}
		case upd.Message != nil:
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
			}
		}
		ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), upd.ID, userID, chatID)
		logger.TG.LogAttrs(ctx, slog.LevelDebug, "update.received", attrs...)

		return next(c)
	}
}
