package scheduler

import (
	"context"
	"versalex-ingest/config"
	"versalex-ingest/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

func newCron() *cron.Cron {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	return cron.New(cron.WithParser(parser))
}

// reportStats logs the shipper counters once.
func reportStats(shipper service.ShipperService) {
	status := shipper.Status()
	log.Info().
		Str("path", status.Path).
		Bool("running", status.Running).
		Int64("events", status.Follower.Events).
		Int64("failures", status.Follower.Failures).
		Int64("rotations", status.Follower.Rotations).
		Int64("shipped", status.Shipped).
		Int64("dropped", status.Dropped).
		Int("threads", len(status.Threads)).
		Int("watchers", status.Watchers).
		Msg("Shipper stats")
}

func NewScheduler(lc fx.Lifecycle, cfg *config.Config, shipper service.ShipperService) *cron.Cron {
	c := newCron()

	schedule := cfg.Stats.Schedule
	_, err := c.AddFunc(schedule, func() {
		reportStats(shipper)
	})

	if err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("Failed to add cron job")
		return nil
	}
	log.Info().Str("schedule", schedule).Msg("Scheduled shipper stats job")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Starting cron scheduler")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping cron scheduler...")
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
				log.Info().Msg("Cron scheduler stopped gracefully.")
				return nil
			case <-ctx.Done():
				log.Error().Msg("Context cancelled while waiting for cron scheduler to stop.")
				return ctx.Err()
			}
		},
	})

	return c
}
