package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	ctx := context.Background()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	app, err := buildApp(ctx, cfg)
	if err != nil {
		os.Exit(1)
	}

	app.Run(ctx)
}
