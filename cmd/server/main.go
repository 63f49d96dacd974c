// Command server starts the VeriCV HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/vericv/internal/adapter/ai"
	"github.com/fairyhunter13/vericv/internal/adapter/ai/real"
	"github.com/fairyhunter13/vericv/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/vericv/internal/adapter/geoip"
	httpserver "github.com/fairyhunter13/vericv/internal/adapter/httpserver"
	"github.com/fairyhunter13/vericv/internal/adapter/langdetect"
	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/vericv/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/vericv/internal/adapter/repo/supabase"
	"github.com/fairyhunter13/vericv/internal/adapter/report"
	tikaext "github.com/fairyhunter13/vericv/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/vericv/internal/app"
	"github.com/fairyhunter13/vericv/internal/config"
	"github.com/fairyhunter13/vericv/internal/domain"
	"github.com/fairyhunter13/vericv/internal/service/ratelimiter"
	"github.com/fairyhunter13/vericv/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	prompts, err := config.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		slog.Error("prompt catalog invalid", slog.Any("error", err))
		os.Exit(1)
	}

	// Infra: DB pool and schema
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL, postgres.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	})
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("db migrate failed", slog.Any("error", err))
		os.Exit(1)
	}

	cvRepo := postgres.NewCVRepo(pool)
	feedbackRepo := postgres.NewFeedbackRepo(pool)
	interviewRepo := postgres.NewInterviewRepo(pool)
	var (
		quizStore  domain.QuizStore        = postgres.NewQuizStore(pool)
		resultRepo domain.ResultRepository = postgres.NewResultRepo(pool)
		storePing  app.Pinger
	)
	if cfg.UseSupabase() {
		sb := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey)
		quizStore, resultRepo, storePing = supabase.NewQuizStore(sb), supabase.NewResultRepo(sb), sb
		slog.Info("quizzes and results stored in supabase")
	}

	// Redis is optional; without it generation is unthrottled and geo lookups are uncached.
	var (
		geoCache  redis.Cmdable
		redisPing app.RedisPinger
		limiter   ratelimiter.Limiter
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		geoCache, redisPing = rdb, rdb
		limiter = ratelimiter.NewRedisLimiter(rdb, map[string]ratelimiter.Rule{
			ratelimiter.BucketGenerate:  ratelimiter.PerHour(cfg.GenRateLimitPerHour),
			ratelimiter.BucketInterview: ratelimiter.PerHour(cfg.InterviewRateLimitPerHour),
		})
	}

	var events domain.EventPublisher = redpanda.Noop{}
	if cfg.EventsEnabled() {
		pub, err := redpanda.NewPublisher(ctx, cfg.KafkaBrokers, redpanda.TopicSpec{
			Name:       cfg.KafkaTopic,
			Partitions: cfg.KafkaPartitions,
			Retention:  cfg.KafkaRetention,
		})
		if err != nil {
			slog.Error("redpanda publisher unavailable, events disabled", slog.Any("error", err))
		} else {
			events = pub
			defer func() {
				if err := pub.Close(); err != nil {
					slog.Error("failed to close publisher", slog.Any("error", err))
				}
			}()
		}
	}

	aicl := ai.Guard(real.New(cfg))
	tokens := tokencount.NewCounter()
	tikaClient := tikaext.New(cfg.TikaURL)
	extractor := httpserver.NewUploadExtractor(tikaClient)

	quizGen := usecase.NewQuizGenerator(aicl, prompts, tokens, cfg.ChatModel, cfg.CVTokenBudget)
	svc := httpserver.Services{
		CVs: usecase.CVService{
			CVs:         cvRepo,
			Extractor:   extractor,
			Lang:        langdetect.New(),
			AI:          aicl,
			Geo:         geoip.New(cfg.GeoIPURL, geoCache),
			Prompts:     prompts,
			Tokens:      tokens,
			Model:       cfg.ChatModel,
			TokenBudget: cfg.CVTokenBudget,
		},
		Quizzes: usecase.NewQuizService(quizGen, quizStore, events),
		Submissions: usecase.SubmitService{
			Grader:       usecase.NewGrader(quizStore),
			Feedback:     usecase.NewFeedbackSynthesizer(aicl, prompts),
			Quizzes:      quizStore,
			Results:      resultRepo,
			FeedbackRepo: feedbackRepo,
			Events:       events,
		},
		Results: usecase.NewResultService(resultRepo, feedbackRepo),
		Interviews: usecase.InterviewService{
			CVs:         cvRepo,
			Interviews:  interviewRepo,
			AI:          aicl,
			STT:         aicl,
			Prompts:     prompts,
			Events:      events,
			Tokens:      tokens,
			Model:       cfg.ChatModel,
			TokenBudget: cfg.CVTokenBudget,
		},
		Reports: usecase.ReportService{
			CVs:        cvRepo,
			Results:    resultRepo,
			Interviews: interviewRepo,
			Renderer:   report.New(cfg.ReportFontPath),
		},
	}

	srv := httpserver.NewServer(cfg, svc, limiter)
	app.BuildReadinessChecks(app.Dependencies{
		DB:    pool,
		Redis: redisPing,
		Tika:  tikaClient,
		Store: storePing,
	}).ApplyTo(srv)

	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("store", cfg.StoreBackend))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
