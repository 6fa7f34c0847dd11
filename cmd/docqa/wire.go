package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/extract/pdf"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/redisstore"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

var log = logger.Named("main")

// newLoader returns a cli.Loader that builds the core services from the
// current settings.
func newLoader(settingsService driving.SettingsService) cli.Loader {
	return func(ctx context.Context) (*cli.Services, error) {
		settings, err := settingsService.Get()
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		return build(ctx, settings)
	}
}

func build(ctx context.Context, settings *domain.AppSettings) (_ *cli.Services, err error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			_ = closeAll()
		}
	}()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dataDir := settings.Storage.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(home, ".docqa", "data")
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	closers = append(closers, store.Close)

	var indexes driven.IndexStore
	switch settings.Storage.IndexBackend {
	case domain.IndexBackendSQLite:
		indexes = store.IndexStore()
	default:
		fileIndexes, err := files.NewIndexStore(filepath.Join(dataDir, "indexes"))
		if err != nil {
			return nil, fmt.Errorf("open index store: %w", err)
		}
		indexes = fileIndexes
	}

	var conversations driven.ConversationStore
	if settings.Chat.RedisURL != "" {
		rs, err := redisstore.NewConversationStoreFromURL(ctx, settings.Chat.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect chat store: %w", err)
		}
		closers = append(closers, rs.Close)
		conversations = rs
	} else {
		conversations = store.ConversationStore()
	}

	aiServices, err := ai.NewServices(ctx, settings)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() error {
		aiServices.Close()
		return nil
	})
	if aiServices.LLM == nil {
		log.Warn("LLM provider not configured: questions and summaries are unavailable")
	}

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunking)
	if err != nil {
		return nil, fmt.Errorf("chunking pipeline: %w", err)
	}

	if err := pdf.CheckAvailable(); err != nil {
		log.Warn("%v\n%s", err, pdf.InstallInstructions())
	}

	factory := flat.Factory{}
	docs := store.DocumentStore()
	embedder := services.NewEmbedder(aiServices.Embedding, settings.Embedding.BatchSize, settings.Chunking.MinChunk)
	retriever := services.NewRetriever(indexes, factory, embedder, settings.Retrieval.TopK, settings.Retrieval.Threshold)
	memoryService := services.NewChatMemory(conversations, settings.Chat.TTL)

	answers := services.NewAnswerService(docs, retriever, aiServices.LLM, memoryService,
		services.WithHistoryWindow(settings.Retrieval.HistoryWindow),
		services.WithDefaultMode(settings.Retrieval.Mode),
	)
	summaries := services.NewSummaryService(docs, store.SummaryStore(), indexes, aiServices.LLM)

	prompts, err := file.NewPromptStore(filepath.Join(home, ".docqa", "prompts"), services.DefaultPrompts())
	if err != nil {
		log.Warn("custom prompts disabled: %v", err)
	} else {
		answers.SetPromptStore(prompts)
		summaries.SetPromptStore(prompts)
	}

	return &cli.Services{
		Ingest:    services.NewIngestService(docs, indexes, factory, pdf.New(), pipeline, embedder),
		Documents: services.NewDocumentService(docs, indexes),
		Answers:   answers,
		Chat:      memoryService,
		Summaries: summaries,
		Close:     closeAll,
	}, nil
}
