package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/Zobiii/Ets2RoutePlanner/config"
	"github.com/Zobiii/Ets2RoutePlanner/internal/repositories/cargorule"
	"github.com/Zobiii/Ets2RoutePlanner/internal/repositories/cargotype"
	"github.com/Zobiii/Ets2RoutePlanner/internal/repositories/city"
	"github.com/Zobiii/Ets2RoutePlanner/internal/repositories/citycompany"
	"github.com/Zobiii/Ets2RoutePlanner/internal/repositories/company"
	"github.com/Zobiii/Ets2RoutePlanner/internal/repositories/companyalias"
	"github.com/Zobiii/Ets2RoutePlanner/internal/repositories/maintenance"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/database"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/events"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/importer"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/kafka"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/middleware"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/recommend"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/reconcile"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/routes/health"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/routes/imports"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/routes/mapping"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/routes/suggestion"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/tracing"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	logger.WithField("version", version).Infof("Starting %s", cfg.AppName)

	tracing.Init(cfg.AppName)

	ctx := context.Background()
	db, err := database.Connect(ctx, database.ConnectConfig{
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, db.DB); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}

	cityRepo := city.NewRepository(db, logger)
	companyRepo := company.NewRepository(db, logger)
	aliasRepo := companyalias.NewRepository(db, logger)
	cargoRepo := cargotype.NewRepository(db, logger)
	ruleRepo := cargorule.NewRepository(db, logger)
	linkRepo := citycompany.NewRepository(db, logger)
	maintenanceRepo := maintenance.NewRepository(db, logger)

	var mergeEvents reconcile.MergeEventSink
	var importEvents importer.ImportEventSink
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()

		emitter := events.NewEmitter(producer, logger)
		mergeEvents = emitter
		importEvents = emitter
	}

	reconcileService := reconcile.NewService(
		logger,
		db,
		reconcile.NewEngine(reconcile.Config{
			AcceptScore:    cfg.ReconcileAcceptScore,
			AcceptOverlap:  cfg.ReconcileAcceptOverlap,
			DistanceRatio:  cfg.ReconcileDistanceRatio,
			DistanceFloor:  cfg.ReconcileDistanceFloor,
			CandidateCount: cfg.ReconcileCandidateCount,
		}),
		companyRepo,
		aliasRepo,
		linkRepo,
		ruleRepo,
		mergeEvents,
	)

	recommendService := recommend.NewService(
		logger,
		recommend.NewEngine(recommend.Config{
			CityMatchThreshold: cfg.CityMatchThreshold,
			CityHintCount:      cfg.CityHintCount,
		}),
		cityRepo,
		companyRepo,
		linkRepo,
		cargoRepo,
		ruleRepo,
	)

	progress := importer.NewProgressLog()
	pipeline := importer.NewPipeline(
		logger,
		importer.NewFileSource(),
		cityRepo,
		companyRepo,
		aliasRepo,
		linkRepo,
		cargoRepo,
		ruleRepo,
		reconcileService,
		progress,
		importer.PipelineConfig{DepotRadiusKm: cfg.DepotRadiusKm},
	)
	orchestrator := importer.NewOrchestrator(logger, pipeline, maintenanceRepo, importEvents, progress)
	defer orchestrator.Shutdown()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	checker := health.NewChecker(db, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	imports.NewHandler(orchestrator, cfg.ImportSourcePath).RegisterRoutes(api)
	mapping.NewHandler(reconcileService).RegisterRoutes(api)
	suggestion.NewHandler(recommendService).RegisterRoutes(api)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.WithField("addr", addr).Infof("Listening on %s", addr)
		if err := e.Start(addr); err != nil {
			logger.WithError(err).Warn("HTTP server stopped")
		}
	}()
	checker.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server")
	}
}

func newLogger(cfg *config.Config) ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		var out []byte
		var err error
		if cfg.PrettyLogs {
			out, err = json.MarshalIndent(msg, "", "  ")
		} else {
			out, err = json.Marshal(msg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal log message: %v\n", err)
			return
		}
		fmt.Println(string(out))
	})
}
