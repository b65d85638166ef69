package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"versalex-ingest/config"
	_ "versalex-ingest/docs"
	"versalex-ingest/internal/archive"
	"versalex-ingest/internal/controller"
	"versalex-ingest/internal/elasticsearch"
	"versalex-ingest/internal/kafka"
	"versalex-ingest/internal/logger"
	"versalex-ingest/internal/metrics"
	"versalex-ingest/internal/scheduler"
	"versalex-ingest/internal/service"
	"versalex-ingest/internal/timescaledb"
)

// @title           VersaLex Ingest API
// @version         1.0
// @description     Search, metrics and live streaming over events shipped from the VersaLex Harmony event log.

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @tag.name         events
// @tag.description  Indexed and live VersaLex events

// @tag.name         metrics
// @tag.description  Aggregates derived from shipped events

// @tag.name         status
// @tag.description  Shipper state and live thread names

func main() {
	var wg sync.WaitGroup

	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewGinEngine,
			elasticsearch.NewElasticsearchEventRepository,
			timescaledb.NewTimescaleMetricRepository,
			service.NewEventQueryService,
			service.NewMetricQueryService,
			controller.NewEventController,
			controller.NewMetricController,
			controller.NewStatusController,
			kafka.NewKafkaEventProducer,
			kafka.NewKafkaEventConsumer,
			archive.NewS3Archiver,
			service.NewSinks,
			elasticsearch.NewElasticEventStore,
			timescaledb.ProvideTimescaleDBPool,
			metrics.NewVersaLexExtractor,
			service.NewShipperService,
			service.NewEventConsumerService,
		),
		fx.Invoke(RegisterAPIRoutes,
			RegisterScheduler,
			func(lc fx.Lifecycle, shipper service.ShipperService) {
				startBackground(lc, &wg, "VersaLex shipper", shipper.Run)
			},
			func(lc fx.Lifecycle, consumer service.EventConsumerService) {
				startBackground(lc, &wg, "Event consumer", consumer.Run)
			},
		),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute) // Elasticsearch connect retries for up to 90s
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}

	log.Info().Msg("Waiting for background goroutines to finish...")
	wg.Wait()
	log.Info().Msg("All background processes finished. Exiting.")
}

func NewConfig() (*config.Config, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)
	return cfg, nil
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	eventController *controller.EventController,
	metricController *controller.MetricController,
	statusController *controller.StatusController,
) {
	controller.RegisterEventRoutes(router, eventController)
	controller.RegisterMetricRoutes(router, metricController)
	controller.RegisterStatusRoutes(router, statusController)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// --- Invoker Functions ---

func RegisterScheduler(lc fx.Lifecycle, cfg *config.Config, shipper service.ShipperService) {
	scheduler.NewScheduler(lc, cfg, shipper)
}

// startBackground runs fn in a goroutine for the lifetime of the fx app.
func startBackground(lc fx.Lifecycle, wg *sync.WaitGroup, name string, fn func(context.Context, *sync.WaitGroup)) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msgf("Starting %s goroutine", name)
			wg.Add(1)
			go fn(ctx, wg)
			return nil
		},
		OnStop: func(context.Context) error {
			log.Info().Msgf("Signaling %s goroutine to stop...", name)
			cancel()
			return nil
		},
	})
}
