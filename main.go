package main

import (
	"os"

	"github.com/joho/godotenv"

	"labsignal/internal"
	"labsignal/internal/config"
	"labsignal/internal/container"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("[main] no .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		internal.DefaultLogger.Error("[main] failed to load configuration: %v", err)
		os.Exit(1)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		internal.DefaultLogger.Error("[main] failed to create application container: %v", err)
		os.Exit(1)
	}

	server, err := appContainer.Server()
	if err != nil {
		appContainer.Logger.Error("[main] failed to initialize server: %v", err)
		os.Exit(1)
	}

	if appConfig.Paths.Dataset == "" {
		appContainer.Logger.Info("[main] no DATASET_FILE configured, requests must carry their own dataset")
	}
	if err := server.Start(appContainer.Addr()); err != nil {
		appContainer.Logger.Error("[main] server stopped: %v", err)
		os.Exit(1)
	}
}
