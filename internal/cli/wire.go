package cli

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"trivia-engine/internal/app"
	"trivia-engine/internal/config"
	"trivia-engine/internal/dedup"
	"trivia-engine/internal/dynamic"
	"trivia-engine/internal/infra/memory"
	"trivia-engine/internal/infra/postgres"
	redisinfra "trivia-engine/internal/infra/redis"
	"trivia-engine/internal/logger"
	"trivia-engine/internal/metrics"
)

const defaultPoolMinimum = 10

// engine bundles the wired services plus the handles that need closing.
type engine struct {
	questions  *app.QuestionService
	sessions   *app.SessionService
	completion *app.CompletionEngine
	dialogs    *app.DialogService
	metrics    *metrics.Metrics
	log        *logrus.Entry

	poolMinimum int

	db   *bun.DB
	pool *pgxpool.Pool
}

func (e *engine) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.db != nil {
		_ = e.db.Close()
	}
}

// buildEngine wires the full service graph from config. Without a
// Postgres URL everything runs on the in-memory store, which is enough
// for local experiments but loses state on restart.
func buildEngine(ctx context.Context, cfg config.Config) (*engine, error) {
	log := logger.New("engine")
	m := metrics.New()

	e := &engine{metrics: m, log: log, poolMinimum: cfg.Pool.Minimum}
	if e.poolMinimum <= 0 {
		e.poolMinimum = defaultPoolMinimum
	}

	var store app.Store
	var stats dynamic.StatsProvider
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		e.db = bun.NewDB(sqldb, pgdialect.New())
		store = postgres.NewStore(e.db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.pool = pool
		stats = postgres.NewStatsProvider(pool)
	} else {
		log.Warn("postgres url not configured, using in-memory store")
		store = memory.NewStore()
		stats = memory.NewStaticStatsProvider(nil)
	}

	calculator := dynamic.NewCalculator(stats, logger.New("dynamic"))
	cacheTTL := config.TTLDuration(cfg.Dynamic.CacheTTL, 10*time.Minute)

	var answers dynamic.AnswerSource
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		answers = redisinfra.NewAnswerCache(client, calculator, cacheTTL)
	} else {
		answers = memory.NewAnswerCache(calculator, cacheTTL)
	}

	detector := dedup.New(store.Questions(), cfg.DupThreshold(), logger.New("dedup"))

	e.questions = app.NewQuestionService(store, detector, m, logger.New("questions"))
	e.sessions = app.NewSessionService(store, answers, m, logger.New("sessions"))
	e.completion = app.NewCompletionEngine(store, m, logger.New("completion"))
	e.dialogs = app.NewDialogService(store, m, logger.New("dialogs")).WithTTLs(
		config.TTLDuration(cfg.Dialogs.ApprovalTTL, app.DefaultApprovalTTL),
		config.TTLDuration(cfg.Dialogs.ReviewTTL, app.DefaultReviewTTL),
	)
	return e, nil
}

// sweepOnce runs every maintenance pass: hanging sessions, expired
// dialogs, pool replenishment.
func (e *engine) sweepOnce(ctx context.Context) {
	if n, err := e.sessions.CleanupHanging(ctx); err != nil {
		e.log.WithError(err).Warn("session sweep failed")
	} else if n > 0 {
		e.log.WithField("expired", n).Info("expired hanging sessions")
	}

	if n, err := e.dialogs.CleanupExpired(ctx); err != nil {
		e.log.WithError(err).Warn("dialog sweep failed")
	} else if n > 0 {
		e.log.WithField("expired", n).Info("expired stale dialogs")
	}

	report, err := e.questions.EnsureMinimumPool(ctx, e.poolMinimum)
	if err != nil {
		e.log.WithError(err).Warn("pool sweep failed")
		return
	}
	if report.Recycled > 0 || report.StillNeeded > 0 {
		e.log.WithFields(logrus.Fields{
			"available":    report.Available,
			"recycled":     report.Recycled,
			"still_needed": report.StillNeeded,
		}).Info("pool replenishment pass")
	}
}
