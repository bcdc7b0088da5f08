package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"faktura/cmd"
	"faktura/internal/config"
	"faktura/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// The logger must exist before any command runs; fall back to defaults
	// when the configuration is incomplete.
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Info().Msg("Starting faktura")

	cmd.Execute()

	log.Info().Msg("Faktura shutdown")
	os.Exit(0)
}
