package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-engine/internal/app"
	"trivia-engine/internal/dedup"
	"trivia-engine/internal/domain"
	"trivia-engine/internal/dynamic"
	"trivia-engine/internal/infra/postgres"
	pgmigrations "trivia-engine/internal/infra/postgres/migrations"
	infraredis "trivia-engine/internal/infra/redis"
	"trivia-engine/internal/logger"
	"trivia-engine/internal/metrics"
)

func TestTriviaRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migrateAndOpen(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	log := logger.Discard()
	m := metrics.Nop()
	store := postgres.NewStore(db)
	calculator := dynamic.NewCalculator(postgres.NewStatsProvider(pool), log)
	answers := infraredis.NewAnswerCache(redisClient, calculator, 5*time.Minute)
	detector := dedup.New(store.Questions(), 0.75, log)

	questions := app.NewQuestionService(store, detector, m, log)
	sessions := app.NewSessionService(store, answers, m, log)
	completion := app.NewCompletionEngine(store, m, log)

	q := &domain.Question{
		Text:          "Which valve puzzle game stars a silent test subject?",
		CorrectAnswer: "Portal",
		SubmitterID:   strptr("mod1"),
	}
	if _, err := questions.Add(ctx, q); err != nil {
		t.Fatalf("add question: %v", err)
	}

	session, err := sessions.Start(ctx, q.ID, "daily")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if res, err := sessions.SubmitAnswer(ctx, session.ID, "alice", "portal!"); err != nil || !res.Accepted {
		t.Fatalf("submit alice: res=%+v err=%v", res, err)
	}
	if res, err := sessions.SubmitAnswer(ctx, session.ID, "alice", "changed my mind"); err != nil || res.Accepted {
		t.Fatalf("expected duplicate rejection, res=%+v err=%v", res, err)
	}
	if res, err := sessions.SubmitAnswer(ctx, session.ID, "bob", "Doom"); err != nil || !res.Accepted {
		t.Fatalf("submit bob: res=%+v err=%v", res, err)
	}
	if res, err := sessions.SubmitAnswer(ctx, session.ID, "mod1", "Portal"); err != nil || !res.Conflict {
		t.Fatalf("expected conflict flag for submitter, res=%+v err=%v", res, err)
	}

	result, err := completion.Complete(ctx, session.ID, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.TotalParticipants != 2 || result.CorrectCount != 1 {
		t.Fatalf("expected 2 participants / 1 correct, got %+v", result)
	}
	if result.FirstCorrectUserID == nil || *result.FirstCorrectUserID != "alice" {
		t.Fatalf("expected alice first correct, got %+v", result.FirstCorrectUserID)
	}

	// Completion is idempotent.
	again, err := completion.Complete(ctx, session.ID, nil)
	if err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	if again.CorrectCount != result.CorrectCount || again.TotalParticipants != result.TotalParticipants {
		t.Fatalf("idempotence violated: %+v vs %+v", again, result)
	}
}

func TestDynamicQuestionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := migrateAndOpen(t, ctx, pgURL)
	defer db.Close()

	seedCatalog(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	log := logger.Discard()
	m := metrics.Nop()
	store := postgres.NewStore(db)
	calculator := dynamic.NewCalculator(postgres.NewStatsProvider(pool), log)
	sessions := app.NewSessionService(store, calculator, m, log)
	completion := app.NewCompletionEngine(store, m, log)

	q := &domain.Question{
		Text:        "Which game in the catalog has the most views?",
		IsDynamic:   true,
		DynamicKind: "most_viewed",
		Status:      domain.QuestionAvailable,
		Kind:        domain.QuestionSingle,
		CreatedAt:   time.Now(),
	}
	if err := store.Questions().Insert(ctx, q); err != nil {
		t.Fatalf("insert question: %v", err)
	}

	session, err := sessions.Start(ctx, q.ID, "daily")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.CalculatedAnswer == nil || *session.CalculatedAnswer != "Half-Life 2" {
		t.Fatalf("expected snapshot Half-Life 2, got %+v", session.CalculatedAnswer)
	}

	if res, err := sessions.SubmitAnswer(ctx, session.ID, "alice", "hl2"); err != nil || !res.Accepted {
		t.Fatalf("submit: res=%+v err=%v", res, err)
	}

	result, err := completion.Complete(ctx, session.ID, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.CorrectCount != 1 {
		t.Fatalf("abbreviation should match snapshot, got %+v", result)
	}
}

func TestDialogSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := migrateAndOpen(t, ctx, pgURL)
	defer db.Close()

	log := logger.Discard()
	m := metrics.Nop()

	dialogs := app.NewDialogService(postgres.NewStore(db), m, log)
	created, err := dialogs.Create(ctx, "mod1", domain.DialogApproval, "await_decision", []byte(`{"question_id":1}`), 0)
	if err != nil {
		t.Fatalf("create dialog: %v", err)
	}

	// A fresh service over the same database sees the open dialog.
	restarted := app.NewDialogService(postgres.NewStore(db), m, log)
	got, err := restarted.GetActive(ctx, "mod1", domain.DialogApproval)
	if err != nil {
		t.Fatalf("get active after restart: %v", err)
	}
	if got.ID != created.ID || got.Step != "await_decision" {
		t.Fatalf("expected dialog %d at await_decision, got %+v", created.ID, got)
	}
}

func migrateAndOpen(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCatalog(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	rows := []struct {
		name    string
		metrics string
	}{
		{"Half-Life 2", `{"views": 5400, "plays": 310}`},
		{"Portal", `{"views": 3200, "plays": 280}`},
		{"Doom", `{"views": 1100, "plays": 90}`},
	}
	for _, r := range rows {
		_, err := db.ExecContext(ctx,
			`INSERT INTO catalog_items (name, metrics) VALUES (?, ?::jsonb)`, r.name, r.metrics)
		if err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

func strptr(s string) *string { return &s }
