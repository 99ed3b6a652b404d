package main

import (
	"context"
	"log"
	"os"

	"github.com/vaxtrace/vaxsync/internal/client/agent"
	"github.com/vaxtrace/vaxsync/internal/client/config"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)

	app, err := agent.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}
