// Package main is the entry point for the retina node admin console.
package main

import (
	"os"

	"github.com/owl-os/retina-console/cmd/retina-console/app"
	"github.com/owl-os/retina-console/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
