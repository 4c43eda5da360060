package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/dbconfig"
	"github.com/duopick/duopick/go/internal/feed"
	"github.com/duopick/duopick/go/internal/gateway"
	"github.com/duopick/duopick/go/internal/items"
	"github.com/duopick/duopick/go/internal/rooms"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	dbCfg := dbconfig.NewConfigFromEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := dbCfg.Pool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", cfg.NATS.URL).
		Str("port", cfg.Server.Port).
		Msg("starting duopick server")

	// Apps
	roomsApp := rooms.NewApp(rooms.NewRepository(pool))
	itemsApp := items.NewApp(items.NewRepository(pool))

	// Feed relay: Postgres NOTIFY -> NATS
	nc, err := feed.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	relay, err := feed.NewRelay(feed.NewNATSPublisher(nc), feed.RelayConfig{
		DatabaseURL:   dbCfg.DSN(),
		NotifyChannel: cfg.Feed.NotifyChannel,
		PingInterval:  cfg.Feed.PingInterval.std(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create feed relay")
	}

	go func() {
		if err := relay.Start(ctx); err != nil {
			log.Error().Err(err).Msg("feed relay failed")
		}
	}()

	// Gateway
	gatewayConfig := gateway.Config{
		ConnectionConfig: gateway.DefaultConnectionConfig(),
		ConsumerConfig: gateway.ConsumerConfig{
			URL:           cfg.NATS.URL,
			SubjectFilter: "rooms.>",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
	}

	gatewayService, err := gateway.NewService(gatewayConfig, roomsApp, itemsApp)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID"},
		AllowCredentials: false,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  cfg.Server.ReadTimeout.std(),
		WriteTimeout: cfg.Server.WriteTimeout.std(),
		IdleTimeout:  cfg.Server.IdleTimeout.std(),
	}

	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()

	// Give the relay and consumer time to clean up
	time.Sleep(1 * time.Second)

	log.Info().Msg("duopick server shutdown complete")
}
