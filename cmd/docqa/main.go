// Command docqa indexes documents and answers questions about them.
package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/cache"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/hnsw"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/connectors"
	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/connectors/web"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/extractors/docx"
	"github.com/custodia-labs/docqa/internal/extractors/html"
	"github.com/custodia-labs/docqa/internal/extractors/markdown"
	"github.com/custodia-labs/docqa/internal/extractors/plaintext"
	"github.com/custodia-labs/docqa/internal/heuristics"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is fine; keys may come from the shell or config.toml.
	_ = godotenv.Load()

	cli.SetVersion(version)

	app, err := build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docqa: %v\n", err)
		return 1
	}
	defer app.close()

	cli.SetServices(app.services)
	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

type application struct {
	services cli.Services
	closers  []func() error
}

func (a *application) close() {
	for _, c := range slices.Backward(a.closers) {
		if err := c(); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}
}

func build() (*application, error) {
	app := &application{}

	home, err := file.HomeDir()
	if err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	dirs := layoutUnder(home)
	prompts, err := file.NewPromptStore(dirs.Prompts)
	if err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}

	caches, err := cache.NewManager(settings.Cache, dirs.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	store, err := hnsw.Open(hnsw.Options{
		Dir:       dirs.Vectors,
		Index:     settings.VectorIndex,
		Threshold: settings.Retrieval.SimilarityThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	app.closers = append(app.closers, store.Close)

	extractorList := []driven.Extractor{
		markdown.New(),
		html.New(),
		docx.New(),
		plaintext.New(),
	}
	registry := extractors.NewRegistry(extractorList...)

	fetcher := connectors.NewRouter().
		Register(filesystem.New(), "file").
		Register(web.New(web.Config{
			Timeout:           settings.Concurrency.ProviderTimeout,
			RequestsPerSecond: settings.Concurrency.RequestsPerSecond,
		}), "http", "https")

	pipeline, err := buildPipeline(settings.Chunking)
	if err != nil {
		return nil, fmt.Errorf("chunking pipeline: %w", err)
	}

	set, err := heuristics.NewDefaultRegistry().Build(settings.Retrieval.Heuristics)
	if err != nil {
		return nil, fmt.Errorf("heuristics: %w", err)
	}

	factory := ai.NewFactory(*settings)
	retrieval, err := services.NewRetrievalService(services.RetrievalDeps{
		Fetcher:    fetcher,
		Extractor:  registry,
		Pipeline:   pipeline,
		Store:      store,
		Caches:     caches.Caches(),
		CacheAdmin: caches,
		Prompts:    prompts,
		Embedding:  factory.Embedding,
		Reranker:   factory.Reranker,
		LLM:        factory.LLM,
		Adjusters:  set.Adjusters,
		Selectors:  set.Selectors,
	}, *settings)
	if err != nil {
		return nil, err
	}

	questionLog := services.NewQuestionLogService(openQuestionLog(app, home, settings.QuestionLog), settings.QuestionLog)
	scheduler := services.NewScheduler(domain.DefaultSchedulerConfig(),
		services.QuestionLogPruneTask(questionLog),
		services.CacheSweepTask(caches.Sweep),
	)

	app.services = cli.Services{
		Retrieval:       retrieval,
		Settings:        settingsService,
		QuestionLog:     questionLog,
		Scheduler:       scheduler,
		WatchExtensions: supportedExtensions(extractorList),
	}
	return app, nil
}

// dataLayout names the directories kept under the docqa home.
type dataLayout struct {
	Prompts string
	Cache   string
	Vectors string
}

func layoutUnder(home string) dataLayout {
	return dataLayout{
		Prompts: filepath.Join(home, "prompts"),
		Cache:   filepath.Join(home, "cache"),
		Vectors: filepath.Join(home, "vectors"),
	}
}

// buildPipeline layers explicit chunking.pipeline.chunker.* keys over the
// flat chunking settings.
func buildPipeline(s domain.ChunkingSettings) (*postprocessors.Pipeline, error) {
	cfg := s.Pipeline
	chunkerCfg := postprocessors.ChunkerConfig(s)
	maps.Copy(chunkerCfg, cfg.GetProcessorConfig("chunker"))

	configs := maps.Clone(cfg.ProcessorConfigs)
	if configs == nil {
		configs = make(map[string]map[string]any)
	}
	configs["chunker"] = chunkerCfg
	cfg.ProcessorConfigs = configs

	r := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(r)
	return postprocessors.FromConfig(r, cfg)
}

// openQuestionLog opens the SQLite log, falling back to an in-memory one
// so that asking still works on a read-only home directory.
func openQuestionLog(app *application, home string, s domain.QuestionLogSettings) driven.QuestionLog {
	if !s.Enabled {
		return nil
	}
	db, err := sqlite.NewStore(home)
	if err != nil {
		logger.Warn("question log: %v; keeping this session in memory", err)
		return memory.NewQuestionLog()
	}
	app.closers = append(app.closers, db.Close)
	return db
}

func supportedExtensions(list []driven.Extractor) []string {
	var exts []string
	for _, e := range list {
		exts = append(exts, e.SupportedExtensions()...)
	}
	slices.Sort(exts)
	return slices.Compact(exts)
}
