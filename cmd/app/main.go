package main

import (
	"flag"
	"log"
	"os"

	"KellyMux/internal/di"
	"KellyMux/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s kelly_fraction=%.2f unknown_clients=%s",
		cfg.Environment, cfg.Aggregation.KellyFraction, cfg.Aggregation.UnknownClients)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("kafka: brokers=%v input=%s output=%s",
		cfg.Kafka.Brokers, cfg.Kafka.InputTopic, cfg.Kafka.OutputTopic)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
