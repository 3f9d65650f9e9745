package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"sheet-quiz/internal/app"
	"sheet-quiz/internal/config"
	"sheet-quiz/internal/domain"
	"sheet-quiz/internal/infra/file"
	"sheet-quiz/internal/infra/memory"
	"sheet-quiz/internal/infra/postgres"
	redisstore "sheet-quiz/internal/infra/redis"
	"sheet-quiz/internal/infra/sheet"
	"sheet-quiz/internal/logging"
	"sheet-quiz/internal/metrics"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// runtime holds everything a command needs to open sessions.
type runtime struct {
	cfg      config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	sheet    *sheet.Client
	pool     *pgxpool.Pool
	redis    *redis.Client

	questions app.QuestionSource
	attempts  app.AttemptTracker
	emails    app.EmailChecker
	reporter  *app.Reporter
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}, os.Stderr)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func newRuntime(ctx context.Context, cfg config.Config, log *zap.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.metrics = metrics.New(rt.registry)

	if cfg.Endpoint != "" {
		httpClient := &http.Client{Timeout: config.TTLDuration(cfg.EndpointTimeout, 15*time.Second)}
		rt.sheet = sheet.NewClient(cfg.Endpoint, httpClient, log.Named("sheet"))
	}
	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.pool = pool
	}

	rt.questions = rt.questionSource()
	rt.attempts = rt.attemptTracker()

	switch cfg.Quiz.CheckEmail {
	case "sheet":
		rt.emails = rt.sheet
	case "archive":
		rt.emails = postgres.NewResultArchive(rt.pool)
	}

	var sinks []app.ResultSink
	if rt.sheet != nil {
		sinks = append(sinks, rt.sheet)
	}
	if cfg.Report.Archive {
		sinks = append(sinks, postgres.NewResultArchive(rt.pool))
	}
	rt.reporter = app.NewReporter(log.Named("reporter"), rt.metrics, sinks...).
		WithRetry(cfg.Report.Retries, config.TTLDuration(cfg.Report.Backoff, time.Second))

	log.Info("quiz wired",
		zap.String("source", cfg.Quiz.Source),
		zap.String("attempts", cfg.Attempts.Store),
		zap.String("policy", string(cfg.Quiz.Policy)),
		zap.Bool("shuffle", cfg.Quiz.Shuffle),
		zap.Int("max_attempts", cfg.Quiz.MaxAttempts),
		zap.Int("sinks", len(sinks)),
	)
	return rt, nil
}

func (rt *runtime) questionSource() app.QuestionSource {
	var loader memory.QuestionLoader
	switch rt.cfg.Quiz.Source {
	case "static":
		return memory.NewStaticQuestionSource(demoQuestions())
	case "postgres":
		loader = postgres.NewQuestionLoader(rt.pool, rt.cfg.Quiz.QuestionSet)
	default:
		loader = rt.sheet
	}

	ttl := config.TTLDuration(rt.cfg.Quiz.QuestionTTL, 0)
	switch {
	case ttl <= 0:
		return loader
	case rt.redis != nil:
		return redisstore.NewQuestionCache(rt.redis, loader, ttl, rt.log.Named("question-cache"))
	default:
		return memory.NewQuestionCache(loader, ttl)
	}
}

func (rt *runtime) attemptTracker() app.AttemptTracker {
	switch rt.cfg.Attempts.Store {
	case "file":
		return file.NewAttemptStore(rt.cfg.Attempts.Path)
	case "redis":
		return redisstore.NewAttemptStore(rt.redis)
	default:
		return memory.NewAttemptStore()
	}
}

func (rt *runtime) newSession() *app.Session {
	return app.NewSession(app.Deps{
		Questions: rt.questions,
		Attempts:  rt.attempts,
		Emails:    rt.emails,
		Reporter:  rt.reporter,
		Metrics:   rt.metrics,
		Logger:    rt.log,
	}, app.Options{
		Policy:        rt.cfg.Quiz.Policy,
		Shuffle:       rt.cfg.Quiz.Shuffle,
		Instructions:  rt.cfg.Quiz.Instructions,
		MaxAttempts:   rt.cfg.Quiz.MaxAttempts,
		CheckEmail:    rt.emails != nil,
		ReportAnswers: rt.cfg.Quiz.ReportsAnswers(),
	})
}

// Close waits for pending result deliveries and releases connections.
func (rt *runtime) Close() {
	if rt.reporter != nil {
		rt.reporter.Wait()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.log.Warn("closing redis", zap.Error(err))
		}
	}
	_ = rt.log.Sync()
}

// demoQuestions backs quiz.source static, for trying the quiz without an endpoint.
func demoQuestions() domain.QuestionSet {
	return domain.NormalizeQuestions([]domain.RawQuestion{
		{Question: "What is 2 + 2?", Options: []domain.Cell{"3", "4", "5"}, Correct: []domain.Cell{"B"}},
		{Question: "Which of these are prime?", Options: []domain.Cell{"2", "4", "7", "9"}, Correct: []domain.Cell{"A", "C"}},
		{Question: "Which planet is closest to the sun?", Options: []domain.Cell{"Venus", "Mercury", "Mars"}, Correct: []domain.Cell{"B"}},
	})
}
