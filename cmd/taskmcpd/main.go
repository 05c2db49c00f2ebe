package main

import (
	"log"
	"os"

	"github.com/ctxforge/taskmcp/internal/app"
)

// version is set by ldflags during build.
var version = "dev"

func main() {
	application, err := app.New(version)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
