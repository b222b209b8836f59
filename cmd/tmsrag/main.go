package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/siherrmann/tmsrag"
	"github.com/siherrmann/tmsrag/api"
	"github.com/siherrmann/tmsrag/core/llm"
	"github.com/siherrmann/tmsrag/core/pipeline"
	"github.com/siherrmann/tmsrag/core/registry"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	registryKind := flag.String("registry", "postgres", "document registry: postgres or memory")
	flag.Parse()

	config, err := model.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := helper.NewLogger(os.Stdout, helper.ParseLogLevel(config.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		log.Fatalf("Failed to load database configuration: %v", err)
	}

	embed, err := pipeline.NewEmbedder(ctx, config.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	generate, err := llm.NewGenerator(ctx, config.LLM)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}

	service, err := tmsrag.New(config, dbConfig, embed, generate)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	switch *registryKind {
	case "postgres":
	case "memory":
		service.SetRegistry(registry.NewMemoryRegistry())
	default:
		log.Fatalf("Unknown registry %q", *registryKind)
	}

	logger.Info(
		"Starting TMS document service",
		slog.String("llm_provider", config.LLM.Provider),
		slog.String("llm_model", config.LLM.Model),
		slog.String("embedding_provider", config.Embedding.Provider),
		slog.String("embedding_model", config.Embedding.Model),
		slog.String("registry", *registryKind),
	)

	server := api.NewServer(service, config, logger)
	if err := server.Start(ctx); err != nil {
		logger.Error("Server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
