package main

import (
	"context"
	"log"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dmitrijs2005/pintask/internal/client/cli"
	"github.com/dmitrijs2005/pintask/internal/client/config"
	"github.com/dmitrijs2005/pintask/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	// The REPL owns stdout, so structured logs go to a rotating file.
	logWriter := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(logWriter, nil)))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
