package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"phoneadvisor/internal/app"
	"phoneadvisor/internal/config"
	"phoneadvisor/internal/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Fatal("failed to initialize app: " + err.Error())
	}

	lambda.Start(newHandler(a.Chat, log).Handle)
}
