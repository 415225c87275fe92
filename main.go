package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/handler"
	"github.com/dmorgan81/imagine/internal/inject"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/joho/godotenv"
	"github.com/samber/do"
)

func main() {
	// A missing .env is normal in Lambda.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("IMAGINE_CONFIG"))
	if err != nil {
		log.New(os.Stderr, log.ParseLevel("error")).Error("loading config", "error", err)
		os.Exit(1)
	}

	ctx := log.NewContext(context.Background(), log.New(os.Stderr, log.ParseLevel(cfg.LogLevel)))
	injector := inject.Setup(ctx, cfg)
	handler := do.MustInvoke[*handler.Handler](injector)
	lambda.StartWithOptions(handler.Handle, lambda.WithContext(ctx), lambda.WithEnableSIGTERM(func() {
		_ = injector.Shutdown()
	}))
}
