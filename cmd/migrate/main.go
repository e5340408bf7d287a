package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/clanhub/api/pkg/config"
	"github.com/clanhub/api/pkg/database"
	"github.com/clanhub/api/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	if err := database.NewInitializer(db, cfg.DBInitRetries).Run(context.Background()); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
