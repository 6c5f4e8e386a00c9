// ABOUTME: Entry point for the voxchat voice chat client
// ABOUTME: Parses CLI flags, loads config, and starts the application
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxchat/voxchat-go/internal/app"
	"github.com/voxchat/voxchat-go/internal/config"
	"github.com/voxchat/voxchat-go/internal/version"
)

var (
	configPath  = flag.String("config", "voxchat.yaml", "Configuration file path")
	backend     = flag.String("backend", "", "TTS backend override (cosyvoice or cartesia)")
	logFile     = flag.String("log-file", "voxchat.log", "Log file path")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	// TUI owns the terminal, so logs go to a file
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()
	log.SetOutput(f)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Starting %s %s (backend: %s)", version.Product, version.Version, cfg.Backend)

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Printf("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Printf("Application error: %v", err)
		}
	}

	a.Stop()
	log.Printf("Voxchat stopped")
}
