package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"flashcard-quiz-service/internal/app"
	"flashcard-quiz-service/internal/domain"
	"flashcard-quiz-service/internal/infra/postgres"
	pgmigrations "flashcard-quiz-service/internal/infra/postgres/migrations"
	infraredis "flashcard-quiz-service/internal/infra/redis"
	"flashcard-quiz-service/internal/report"
)

func TestSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migrateDB(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := postgres.NewDeckLoader(pool)
	if err := loader.SaveDeck(ctx, sampleDeck()); err != nil {
		t.Fatalf("seed deck: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	deckRepo := infraredis.NewDeckRepository(redisClient, loader, 5*time.Minute, nil)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	statements := postgres.NewStatementStore(db)
	stream := infraredis.NewStatementStream(redisClient, "")
	service := app.NewQuizService(sessionStore, deckRepo, app.FanoutSink{statements, stream})

	session, err := service.Start(ctx, "deck-1", domain.Learner{ID: "u1", Name: "Alice"}, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Answer(ctx, session, "paris"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	service.Navigate(ctx, session, app.MoveNext)

	// a second instance picks the session up from Redis
	resumed, err := service.Resume(ctx, session.ID(), nil)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	ev, err := service.Answer(ctx, resumed, "Bonn")
	if err != nil {
		t.Fatalf("answer resumed: %v", err)
	}
	if !ev.Correct || !ev.Complete {
		t.Fatalf("expected correct final answer, got %+v", ev)
	}

	rows, err := statements.ListByLearner(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("list statements: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one stored statement, got %d", len(rows))
	}
	row := rows[0]
	if row.Verb != report.VerbCompleted || row.ScoreRaw != 2 || row.ScoreMax != 2 || !row.Success {
		t.Fatalf("unexpected stored statement %+v", row)
	}
	var stored report.Statement
	if err := json.Unmarshal(row.Payload, &stored); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if stored.Result.Response != "paris[,]Bonn" {
		t.Fatalf("unexpected response %q", stored.Result.Response)
	}

	entries, err := redisClient.XLen(ctx, infraredis.DefaultStatementStream).Result()
	if err != nil || entries != 1 {
		t.Fatalf("expected one stream entry, got %d (%v)", entries, err)
	}
}

func TestDeckLoaderMissingDeck(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	db := migrateDB(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	_, err = postgres.NewDeckLoader(pool).LoadDeck(ctx, "nope")
	if !errors.Is(err, domain.ErrDeckNotFound) {
		t.Fatalf("expected deck not found, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	addr, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "cards", "POSTGRES_PASSWORD": "cardspass", "POSTGRES_DB": "flashcards"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	return fmt.Sprintf("postgres://cards:cardspass@%s/flashcards?sslmode=disable", addr), cleanup
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	addr, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	return "redis://" + addr, cleanup
}

// startContainer runs req and returns host:port of its first exposed port.
func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) (string, func()) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	cleanup := func() { _ = container.Terminate(ctx) }

	host, err := container.Host(ctx)
	if err != nil {
		cleanup()
		t.Fatalf("%s host: %v", req.Image, err)
	}
	port, err := container.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	if err != nil {
		cleanup()
		t.Fatalf("%s port: %v", req.Image, err)
	}
	return net.JoinHostPort(host, port.Port()), cleanup
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
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

func sampleDeck() domain.Deck {
	return domain.Deck{
		ID:    "deck-1",
		Title: "Capitals",
		Cards: []domain.Card{
			{Question: "Capital of France?", Answer: "Paris"},
			{Question: "Former capital of Germany?", Answer: "Bonn/Berlin"},
		},
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
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
