// Package app wires configuration, storage, model providers and services into one runnable unit
// shared by the HTTP server, the CLI and the Lambda entry point.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"phoneadvisor/internal/config"
	"phoneadvisor/internal/handler"
	"phoneadvisor/internal/integrations/paramstore"
	"phoneadvisor/internal/repository"
	"phoneadvisor/internal/service"
)

// App holds the long-lived components of the assistant
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Patterns *config.Patterns
	Catalog  *repository.Catalog
	Repo     *repository.PostgresRepository // nil unless the catalog or audit log uses Postgres
	Chat     *service.ChatService
	Search   *service.SearchService
}

// Options override how external dependencies are reached; zero values use the real ones
type Options struct {
	Params    paramstore.Getter
	Generator service.Generator
}

// New builds every component. It fails fast on an empty catalog, bad keyword tables or an
// unreachable database, since the pipeline cannot answer safely without them.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Log: log}

	patterns, err := loadPatterns(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	a.Patterns = patterns

	if cfg.NeedsDatabase() {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return nil, err
		}
		a.Repo = repo
		log.Info("connected to PostgreSQL", zap.Bool("audit", cfg.PostgreSQL.AuditEnabled))
	}

	a.Catalog, err = a.loadCatalog(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	generator := opts.Generator
	if generator == nil {
		generator, err = newGenerator(ctx, cfg, opts.Params, log)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var recorder service.TurnRecorder
	var searchLogger service.SearchLogger
	if a.Repo != nil && cfg.PostgreSQL.AuditEnabled {
		recorder = a.Repo
		searchLogger = a.Repo
	}

	ranker := service.NewRanker(cfg.Ranking)
	a.Chat, err = service.NewChatService(a.Catalog, patterns, ranker, generator, recorder, service.ChatOptionsFromConfig(cfg.Chat), log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Search = service.NewSearchService(a.Catalog, service.NewIntentParser(patterns), ranker, searchLogger, log)

	log.Info("services initialized",
		zap.Int("phones", a.Catalog.Len()),
		zap.String("provider", generator.Name()),
		zap.Bool("model_enabled", generator.IsEnabled()))

	return a, nil
}

// Router builds the HTTP router over the app's services
func (a *App) Router(build handler.BuildInfo) *gin.Engine {
	var store handler.FeedbackStore
	if a.Repo != nil && a.Config.PostgreSQL.AuditEnabled {
		store = a.Repo
	}

	return handler.NewRouter(handler.RouterDeps{
		Server:   a.Config.Server,
		Build:    build,
		Log:      a.Log,
		Chat:     handler.NewChatHandler(a.Chat),
		Search:   handler.NewSearchHandler(a.Search),
		Feedback: handler.NewFeedbackHandler(store, a.Catalog),
	})
}

// Close releases the database connection, if any
func (a *App) Close() error {
	if a.Repo == nil {
		return nil
	}
	return a.Repo.Close()
}

func loadPatterns(cfg config.CatalogConfig) (*config.Patterns, error) {
	if cfg.PatternsPath == "" {
		return config.DefaultPatterns(), nil
	}
	return config.LoadPatterns(cfg.PatternsPath)
}

func (a *App) loadCatalog(ctx context.Context) (*repository.Catalog, error) {
	switch {
	case a.Config.Catalog.Source == "postgres":
		phones, err := a.Repo.LoadPhones(ctx)
		if err != nil {
			return nil, err
		}
		return repository.NewCatalog(phones, a.Log)
	case a.Config.Catalog.Path != "":
		return repository.LoadCatalogFile(a.Config.Catalog.Path, a.Log)
	default:
		return repository.DefaultCatalog(a.Log)
	}
}

// newGenerator builds the configured provider, fetching its key from SSM when only a parameter
// name is configured. A provider that cannot be built leaves the pipeline on the fallback path.
func newGenerator(ctx context.Context, cfg *config.Config, params paramstore.Getter, log *zap.Logger) (service.Generator, error) {
	if cfg.LLM.Provider == "none" {
		log.Warn("no model provider configured, answers use the deterministic fallback")
		return service.NewDisabledGenerator(), nil
	}

	if err := resolveAPIKey(ctx, cfg, params); err != nil {
		return nil, err
	}

	switch cfg.LLM.Provider {
	case "gemini":
		client, err := service.NewGeminiClient(ctx, cfg.Gemini, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		log.Info("OpenAI-compatible client initialized",
			zap.String("api_base", cfg.OpenAI.APIBase),
			zap.String("chat_model", cfg.OpenAI.ChatModel),
			zap.Float64("temperature", cfg.OpenAI.ChatTemperature),
			zap.Int("max_tokens", cfg.OpenAI.ChatMaxTokens))
		return service.NewOpenAIClient(cfg.OpenAI, log), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.LLM.Provider)
	}
}

// resolveAPIKey fills the provider key from Parameter Store when it is not set directly
func resolveAPIKey(ctx context.Context, cfg *config.Config, params paramstore.Getter) error {
	var key *string
	switch cfg.LLM.Provider {
	case "gemini":
		key = &cfg.Gemini.APIKey
	case "openai":
		key = &cfg.OpenAI.APIKey
	default:
		return nil
	}
	if *key != "" || cfg.LLM.APIKeyParam == "" {
		return nil
	}

	if params == nil {
		client, err := paramstore.NewFromEnvironment(ctx)
		if err != nil {
			return err
		}
		params = client
	}

	value, err := params.GetParameter(ctx, cfg.LLM.APIKeyParam)
	if err != nil {
		return fmt.Errorf("fetch model API key: %w", err)
	}
	if value == "" {
		return errors.New("fetch model API key: empty value")
	}

	*key = value
	if cfg.LLM.Provider == "openai" {
		cfg.OpenAI.Enabled = true
	}
	return nil
}
