package main

import (
	"log/slog"

	"trading-backtestv1/config"
	"trading-backtestv1/internal/metrics"
	"trading-backtestv1/internal/notification"
	redisstore "trading-backtestv1/internal/store/redis"
)

// buildNotifier fans run alerts out to the log and every configured backend.
// The returned func releases producer connections.
func buildNotifier(cfg config.NotifyConfig, rdb *redisstore.Client, prom *metrics.Metrics) (notification.Notifier, func()) {
	multi := notification.NewMulti().Add("log", notification.NewLogNotifier(slog.Default()))
	multi.OnResult = func(name string, err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		prom.NotificationsTotal.WithLabelValues(name, result).Inc()
	}

	closers := []func() error{}

	if cfg.WebhookURL != "" {
		multi.Add("webhook", notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		multi.Add("telegram", notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if len(cfg.KafkaBrokers) > 0 {
		k, err := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			slog.Warn("kafka notifier disabled", "error", err)
		} else {
			multi.Add("kafka", k)
			closers = append(closers, k.Close)
		}
	}
	if rdb != nil && cfg.RedisChannel != "" {
		multi.Add("redis", notification.NewPubSubNotifier(rdb, cfg.RedisChannel))
	}

	slog.Info("notifiers ready", "count", multi.Len())
	return multi, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("notifier close", "error", err)
			}
		}
	}
}
