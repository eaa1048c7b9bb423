package main

import (
	"context"
	"flag"
	"log"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/app/bootstrap"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to the tipping service config file")
	flag.Parse()

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, *configPath)
	if err != nil {
		log.Fatalf("bootstrap outbox worker: %v", err)
	}
	if err := runtime.RunWorker(ctx); err != nil {
		log.Fatalf("run outbox worker: %v", err)
	}
}
