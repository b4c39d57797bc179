package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"mangrovewatch/internal/errs"
	"mangrovewatch/internal/handler"
	"mangrovewatch/internal/policy"
	"mangrovewatch/internal/pubsub"
	"mangrovewatch/internal/repository"
	"mangrovewatch/internal/service"
	"mangrovewatch/pkg/db"
	"mangrovewatch/pkg/helpers"
	"mangrovewatch/pkg/logger"
	"mangrovewatch/pkg/metrics"
)

func main() {
	log := logger.NewLogger("reports")

	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug(".env file not found, using process environment")
	}

	log.Info("Starting Mangrove Watch report service...")

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "3306"))
	if err != nil {
		log.WithError(err).Fatal("Invalid DB_PORT")
	}

	conn, err := db.NewConnection(db.Config{
		Host:     getEnv("DB_HOST", "mysql"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "mangrove_user"),
		Password: getEnv("DB_PASSWORD", "mangrove_password"),
		Database: getEnv("DB_DATABASE", "mangrove_db"),
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer conn.Close()

	validateSchema(conn, log)

	log.Info("Database connected and schema validated")

	publisher := newPublisher(log)
	defer publisher.Close()

	reportRepo := repository.NewReportRepository(conn.DB)
	userRepo := repository.NewUserRepository(conn.DB)
	pointRepo := repository.NewPointLogRepository(conn.DB)
	achievementRepo := repository.NewAchievementRepository(conn.DB)
	leaderboardRepo := repository.NewLeaderboardRepository(conn.DB)
	notificationRepo := repository.NewNotificationRepository(conn.DB)

	catalogCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	catalog, err := achievementRepo.ListDefinitions(catalogCtx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to load achievement catalog")
	}
	log.WithField("achievements", len(catalog)).Info("Achievement catalog loaded")

	serviceMetrics := metrics.NewMetrics("reports")
	reportPolicy := policy.NewReportPolicy()
	validator := helpers.NewCustomValidator()
	ids := helpers.NewIDGenerator()

	smsChannel := service.NewKavenegarSMSChannel(
		os.Getenv("KAVENEGAR_API_KEY"),
		os.Getenv("SMS_SENDER"),
	)
	emailChannel := service.NewEmailChannel()

	notificationService := service.NewNotificationService(notificationRepo, userRepo, smsChannel, emailChannel, log)
	achievementService := service.NewAchievementService(catalog, achievementRepo, log, serviceMetrics)
	gamificationService := service.NewGamificationService(
		pointRepo, userRepo, achievementService, reportPolicy, notificationService, log, serviceMetrics)
	reportService := service.NewReportService(
		reportRepo, userRepo, reportPolicy, gamificationService, publisher,
		notificationService, validator, ids, log, serviceMetrics)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo)

	apiMux := http.NewServeMux()
	handler.NewReportHandler(reportService, userRepo, log).Register(apiMux)
	handler.NewGamificationHandler(gamificationService, achievementService, userRepo).Register(apiMux)
	handler.NewLeaderboardHandler(leaderboardService).Register(apiMux)
	handler.NewNotificationHandler(notificationService, userRepo).Register(apiMux)
	apiMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"healthy","service":"reports"}`)
	})

	httpPort := getEnv("HTTP_PORT", "8080")
	apiServer := &http.Server{
		Addr:    ":" + httpPort,
		Handler: apiMux,
	}
	go func() {
		log.WithField("port", httpPort).Info("HTTP API listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP API server stopped")
		}
	}()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.UnaryServerInterceptor(log),
			metrics.UnaryServerInterceptor(serviceMetrics),
			statusInterceptor,
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsServer := &http.Server{
		Addr:    ":" + metricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()

	go recordPoolStats(conn, serviceMetrics)

	port := getEnv("GRPC_PORT", "50051")
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		log.WithError(err).WithField("port", port).Fatal("Failed to listen")
	}

	log.WithField("port", port).WithField("metrics_port", metricsPort).Info("Report service started")

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down gracefully...")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		apiServer.Shutdown(shutdownCtx)
		metricsServer.Shutdown(shutdownCtx)
		log.Info("Shutdown complete")
	}()

	if err := grpcServer.Serve(lis); err != nil {
		log.WithError(err).Fatal("Failed to serve")
	}
}

// statusInterceptor translates domain errors escaping a gRPC handler into
// transport status codes.
func statusInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
	resp, err := next(ctx, req)
	return resp, errs.GRPCStatus(err)
}

// newPublisher connects to Redis when REDIS_URL is set and falls back to a
// no-op publisher otherwise. Event publishing is best-effort and must not
// keep the service from starting.
func newPublisher(log *logger.Logger) pubsub.EventPublisher {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Warn("REDIS_URL not set, lifecycle events will not be published")
		return pubsub.NewNoopPublisher()
	}

	publisher, err := pubsub.NewRedisPublisher(redisURL)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, lifecycle events will not be published")
		return pubsub.NewNoopPublisher()
	}
	log.Info("Redis event publisher connected")
	return publisher
}

// validateSchema checks the columns the repositories depend on. A mismatch is
// logged as a warning so a lagging migration shows up immediately in logs.
func validateSchema(conn *db.Connection, log *logger.Logger) {
	guard := db.NewSchemaGuard(conn.DB)

	tables := []db.TableSchema{
		{
			Name: "reports",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "code", DataType: "varchar"},
				{Name: "reporter_id", DataType: "bigint"},
				{Name: "status", DataType: "varchar"},
				{Name: "validation_score", DataType: "int"},
				{Name: "deleted_at", DataType: "timestamp"},
			},
		},
		{
			Name: "users",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "role", DataType: "varchar"},
				{Name: "points", DataType: "bigint"},
				{Name: "level", DataType: "int"},
			},
		},
		{
			Name: "point_logs",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "user_id", DataType: "bigint"},
				{Name: "points", DataType: "bigint"},
				{Name: "action", DataType: "varchar"},
			},
		},
		{
			Name: "achievements",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "category", DataType: "varchar"},
				{Name: "criteria", DataType: "json"},
			},
		},
		{
			Name: "user_achievements",
			Columns: []db.ColumnType{
				{Name: "user_id", DataType: "bigint"},
				{Name: "achievement_id", DataType: "bigint"},
			},
		},
	}

	for _, table := range tables {
		if err := guard.ValidateTable(table); err != nil {
			log.WithError(err).WithField("table", table.Name).Warn("Schema validation warning")
		}
	}
}

// recordPoolStats samples the sql.DB pool every 15 seconds.
func recordPoolStats(conn *db.Connection, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := conn.DB.Stats()
		m.RecordDBPoolStats(stats.OpenConnections, stats.InUse, stats.Idle, stats.WaitCount, stats.WaitDuration)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
