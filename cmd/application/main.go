package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"luxemarket_api/config"
	"luxemarket_api/internal/app"
	"luxemarket_api/pkg/dbconnect/postgres"
)

func main() {
	// local development reads credentials from .env; absence is fine
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", configPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connector := postgres.NewPgConnector(&cfg.Postgres)
	server := app.NewServer(connector, cfg, os.Stdout)

	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
