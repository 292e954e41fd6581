package main

import (
	"context"
	"log"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/config"
	"github.com/mergetab/mergetab-engine/pkg/database"
	"github.com/mergetab/mergetab-engine/pkg/handlers"
	"github.com/mergetab/mergetab-engine/pkg/logging"
	"github.com/mergetab/mergetab-engine/pkg/matching"
	"github.com/mergetab/mergetab-engine/pkg/middleware"
	"github.com/mergetab/mergetab-engine/pkg/repositories"
	"github.com/mergetab/mergetab-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.Bool("ai_naming", cfg.Naming.Enabled()))

	ctx := context.Background()

	if err := database.Migrate(cfg.Database.ConnectionString(), cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := database.Connect(ctx, cfg.Database.ConnectionString(), cfg.Database.MaxConnections)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	engine := matching.NewEngine()

	groupRepo := repositories.NewGroupRepository(db)
	schemaRepo := repositories.NewSchemaRepository(db)
	rowRepo := repositories.NewRowRepository(db)
	mappingRepo := repositories.NewMappingRepository(db)
	historyRepo := repositories.NewHistoryRepository(db)

	groupingService := services.NewGroupingService(cfg.Matching, engine, groupRepo, schemaRepo, rowRepo, logger)
	ingestionService := services.NewIngestionService(
		cfg.Upload, cfg.Matching, engine, groupingService, schemaRepo, rowRepo, mappingRepo, historyRepo, logger)
	tableService := services.NewTableService(engine, groupRepo, schemaRepo, rowRepo, mappingRepo, logger)
	searchService := services.NewSearchService(rowRepo, logger)
	namingService := services.NewNamingService(cfg.Naming, schemaRepo, logger)
	statsService := services.NewStatsService(groupRepo, rowRepo, historyRepo)
	exportService := services.NewExportService(groupRepo, schemaRepo, rowRepo, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(db, cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewUploadHandler(ingestionService, cfg.Upload, logger).RegisterRoutes(mux)
	handlers.NewGroupsHandler(tableService, namingService, logger).RegisterRoutes(mux)
	handlers.NewRowsHandler(tableService, logger).RegisterRoutes(mux)
	handlers.NewColumnsHandler(tableService, logger).RegisterRoutes(mux)
	handlers.NewHistoryHandler(statsService, logger).RegisterRoutes(mux)
	handlers.NewSearchHandler(searchService, logger).RegisterRoutes(mux)
	handlers.NewExportHandler(exportService, logger).RegisterRoutes(mux)
	handlers.NewMaintenanceHandler(groupingService, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting mergetab-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))

	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
