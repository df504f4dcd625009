package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/hqv2016/invorder/internal/adapter/events"
	"github.com/hqv2016/invorder/internal/adapter/handler"
	"github.com/hqv2016/invorder/internal/adapter/identity"
	"github.com/hqv2016/invorder/internal/adapter/storage"
	"github.com/hqv2016/invorder/internal/config"
	"github.com/hqv2016/invorder/internal/core/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Str("service", "invorder").Logger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL: authoritative stock ledger plus order and catalog store.
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open mysql")
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnLifetime.Std())
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mysql")
	}
	log.Info().Msg("connected to mysql")

	// Redis: duplicate-request guard.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	log.Info().Msg("connected to redis")

	ledger := storage.NewMySQLLedger(db)
	store := storage.NewMySQLStore(db)
	cache := storage.NewRedisLedger(rdb)

	coordinator := service.NewCoordinator(ledger, store, service.RetryPolicy{
		MaxRetries:  cfg.Order.MaxRetries,
		BackoffBase: cfg.Order.BackoffBase.Std(),
		BackoffMax:  cfg.Order.BackoffMax.Std(),
	}).WithIdempotency(cache)

	var publisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		coordinator.WithPublisher(publisher)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}

	catalog := service.NewCatalog(store, store)
	gate := identity.NewStaticGate(cfg.AuthTokens)

	// HTTP API
	server := handler.NewServer(coordinator, catalog, store, gate)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Engine(),
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	// gRPC health endpoint for probes.
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("failed to listen")
	}
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("grpc health server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	grpcServer.GracefulStop()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("kafka close error")
		}
	}
	rdb.Close()
	db.Close()
	log.Info().Msg("stopped")
}
