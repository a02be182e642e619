package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"arcquiz-service/internal/app"
	"arcquiz-service/internal/domain"
	"arcquiz-service/internal/infra/postgres"
	pgmigrations "arcquiz-service/internal/infra/postgres/migrations"
	infraredis "arcquiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestCompletedQuizLandsOnLeaderboard(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	if _, err := pgmigrations.Apply(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	source := postgres.NewQuestionSource(pool, "integration")
	if _, err := source.LoadQuestions(ctx); err == nil {
		t.Fatalf("expected missing bank before import")
	}
	if err := source.Store(ctx, sampleBank()); err != nil {
		t.Fatalf("store bank: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	board := postgres.NewLeaderboard(db)
	service := app.NewQuizService(
		infraredis.NewBankCache(redisClient, source, "integration", 5*time.Minute),
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		board,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		app.WithRand(rand.New(rand.NewSource(11))),
	)

	if n, ok := service.Available(ctx); !ok || n != 3 {
		t.Fatalf("expected 3 questions available, got %d ok=%v", n, ok)
	}
	if _, err := service.Start(ctx, "v1", "Alice", "3"); err != nil {
		t.Fatalf("start: %v", err)
	}

	for {
		view, outcome, err := service.Current(ctx, "v1")
		if err != nil {
			t.Fatalf("current: %v", err)
		}
		if outcome == app.OutcomeComplete {
			break
		}
		if _, err := service.Answer(ctx, "v1", correctLetter(view)); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		res, outcome, err := service.Result(ctx, "v1")
		if err != nil {
			t.Fatalf("result: %v", err)
		}
		if outcome == app.OutcomeNoSession || outcome == app.OutcomeInProgress {
			t.Fatalf("unexpected outcome %s", outcome)
		}
		if res.Score != 3 || res.Total != 3 || res.Grade.Title != "Excellent" {
			t.Fatalf("unexpected result %+v", res)
		}
	}

	entries, err := board.Top(ctx, 20)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Alice" || entries[0].Percent != 100 {
		t.Fatalf("expected one perfect entry for Alice, got %+v", entries)
	}
}

// correctLetter finds the right option by its text, which survives shuffling.
func correctLetter(view app.QuestionView) string {
	answers := map[string]string{}
	for _, q := range sampleBank() {
		answers[q.Text] = q.Options[q.AnswerIndex]
	}
	for _, opt := range view.Options {
		if opt.Text == answers[view.Text] {
			return opt.Letter
		}
	}
	return ""
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{ID: "1", Text: "What is 2 + 2?", Options: [4]string{"3", "4", "5", "6"}, AnswerIndex: 1, Explanation: "Basic addition."},
		{ID: "2", Text: "Largest ocean?", Options: [4]string{"Atlantic", "Indian", "Arctic", "Pacific"}, AnswerIndex: 3, Explanation: "The Pacific."},
		{ID: "3", Text: "Bits in a byte?", Options: [4]string{"4", "8", "16", "32"}, AnswerIndex: 1, Explanation: "Eight bits."},
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
