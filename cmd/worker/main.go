package main

import (
	"context"
	"log"

	"github.com/profiledoc/profiledoc/internal/server"
	"github.com/profiledoc/profiledoc/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewWorkerApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
