// ABOUTME: Entry point for the Cuecast hub
// ABOUTME: Parses environment and CLI flags and starts the hub
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/cuecast/cuecast-go/internal/server"
)

func main() {
	// Environment supplies defaults, flags override
	defaults := server.Config{
		Port:       8930,
		DataDir:    "cuecast-data",
		EnableMDNS: true,
	}
	if err := env.Parse(&defaults); err != nil {
		log.Fatalf("error parsing environment: %v", err)
	}

	port := flag.Int("port", defaults.Port, "WebSocket hub port")
	name := flag.String("name", defaults.Name, "Hub friendly name (default: hostname-cuecast-hub)")
	dataDir := flag.String("data-dir", defaults.DataDir, "Directory for audio files and the attribute store")
	logFile := flag.String("log-file", "cuecast-hub.log", "Log file path")
	debug := flag.Bool("debug", defaults.Debug, "Enable debug logging")
	noMDNS := flag.Bool("no-mdns", !defaults.EnableMDNS, "Disable mDNS advertisement")
	flag.Parse()

	// Log to both file and stdout
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	hubName := *name
	if hubName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		hubName = fmt.Sprintf("%s-cuecast-hub", hostname)
	}

	log.Printf("Starting Cuecast Hub: %s on port %d", hubName, *port)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Data directory: %s", *dataDir)
	log.Printf("Press Ctrl-C to stop")

	srv, err := server.New(server.Config{
		Port:       *port,
		Name:       hubName,
		DataDir:    *dataDir,
		EnableMDNS: !*noMDNS,
		Debug:      *debug,
	})
	if err != nil {
		log.Fatalf("Failed to create hub: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("\nReceived %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Hub error: %v", err)
	}

	log.Printf("Hub stopped")
}
