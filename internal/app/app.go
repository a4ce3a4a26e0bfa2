package app

import (
	"context"
	"fmt"
	"os"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/krishkalaria12/echo-interview/internal/analysis"
	"github.com/krishkalaria12/echo-interview/internal/clients/openai"
	goredis "github.com/krishkalaria12/echo-interview/internal/clients/redis"
	"github.com/krishkalaria12/echo-interview/internal/clients/stream"
	"github.com/krishkalaria12/echo-interview/internal/data/db"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/identity"
	"github.com/krishkalaria12/echo-interview/internal/data/repos/interviews"
	"github.com/krishkalaria12/echo-interview/internal/enrichment"
	apphttp "github.com/krishkalaria12/echo-interview/internal/http"
	httpH "github.com/krishkalaria12/echo-interview/internal/http/handlers"
	"github.com/krishkalaria12/echo-interview/internal/observability"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
	"github.com/krishkalaria12/echo-interview/internal/services"
	"github.com/krishkalaria12/echo-interview/internal/temporalx"
	wfinterviews "github.com/krishkalaria12/echo-interview/internal/temporalx/interviews"
	"github.com/krishkalaria12/echo-interview/internal/temporalx/temporalworker"
	"github.com/krishkalaria12/echo-interview/internal/transcript"
)

type Repos struct {
	Users      identity.UserRepo
	Interviews interviews.InterviewRepo
	Agents     interviews.AgentRepo
}

type Clients struct {
	OpenAI   openai.Client
	Stream   stream.Client
	Guard    goredis.Guard
	Temporal temporalsdkclient.Client
}

type App struct {
	Log     *logger.Logger
	DB      *gorm.DB
	Cfg     Config
	Repos   Repos
	Clients Clients

	Webhooks services.WebhookService
	Server   *apphttp.Server

	worker       *temporalworker.Runner
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig()

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "echo-interview",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	gdb := pg.DB()

	reposet := Repos{
		Users:      identity.NewUserRepo(gdb, log),
		Interviews: interviews.NewInterviewRepo(gdb, log),
		Agents:     interviews.NewAgentRepo(gdb, log),
	}

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	streamClient, err := stream.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init stream client: %w", err)
	}
	guard, err := goredis.NewGuard(log)
	if err != nil {
		// Workflow emission degrades to workflow-ID dedupe only.
		log.Warn("Redis guard unavailable; continuing without it", "error", err)
		guard = nil
	}
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init temporal client: %w", err)
	}

	clientset := Clients{
		OpenAI:   openaiClient,
		Stream:   streamClient,
		Guard:    guard,
		Temporal: tc,
	}

	transcriptFetcher := transcript.NewFetcher(cfg.TranscriptFetchTimeout)
	resolver := transcript.NewResolver(log, reposet.Users, reposet.Agents)
	analyzer := analysis.NewAnalyzer(log, openaiClient)
	enricher := enrichment.NewEnricher(log, enrichment.NewFetcher(log, cfg.EnrichFetchTimeout), openaiClient)

	var worker *temporalworker.Runner
	if tc != nil {
		acts := &wfinterviews.Activities{
			Log:        log,
			Interviews: reposet.Interviews,
			Agents:     reposet.Agents,
			Fetcher:    transcriptFetcher,
			Resolver:   resolver,
			Analyzer:   analyzer,
			Enricher:   enricher,
			Model:      openaiClient,
			Guard:      guard,
		}
		worker, err = temporalworker.NewRunner(log, tc, acts)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init temporal worker: %w", err)
		}
	}

	var starter services.WorkflowStarter
	if tc != nil {
		starter = tc
	}
	webhooks := services.NewWebhookService(
		log,
		reposet.Interviews,
		reposet.Agents,
		reposet.Users,
		streamClient,
		openaiClient,
		starter,
		guard,
	)

	server := apphttp.NewServer(apphttp.RouterConfig{
		Log:              log,
		WebhookHandler:   httpH.NewWebhookHandler(log, streamClient, webhooks),
		InterviewHandler: httpH.NewInterviewHandler(log, webhooks),
		HealthHandler:    httpH.NewHealthHandler(),
	})

	return &App{
		Log:          log,
		DB:           gdb,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Webhooks:     webhooks,
		Server:       server,
		worker:       worker,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the Temporal worker in the background. The HTTP server is
// run separately via Run so webhook intake survives a worker that cannot
// reach its cluster yet.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.worker != nil {
		go func() {
			if err := a.worker.Start(ctx); err != nil && ctx.Err() == nil {
				a.Log.Error("Temporal worker exited", "error", err)
			}
		}()
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.Temporal != nil {
		a.Clients.Temporal.Close()
	}
	if a.Clients.Guard != nil {
		if err := a.Clients.Guard.Close(); err != nil {
			a.Log.Warn("closing redis guard", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
