package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/hcip-drill/internal/app"
	"github.com/gokatarajesh/hcip-drill/internal/config"
)

func main() {
	envFile := flag.String("env", "configs/.env", "dotenv file loaded outside production")
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("cmd", "api").Logger()

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Warn().Err(err).Str("file", *envFile).Msg("dotenv not loaded")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// dataset loading and backend connections share the bootstrap deadline
	instance, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build app")
	}

	if err := instance.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("runtime error")
	}
}
