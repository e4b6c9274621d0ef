package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"aic-scoring-service/internal/app"
	"aic-scoring-service/internal/domain"
	pgloader "aic-scoring-service/internal/infra/postgres"
	pgmigrations "aic-scoring-service/internal/infra/postgres/migrations"
	infraredis "aic-scoring-service/internal/infra/redis"
	"aic-scoring-service/internal/infra/synthetic"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestScoringEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestion(t, ctx, pgURL, sampleQuestion())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewGroundTruthLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	catalog := infraredis.NewCatalog(redisClient, loader, 5*time.Minute)
	sessions := infraredis.NewSessionRegistry(redisClient, 5*time.Minute)
	engine := app.NewEngine(sessions, catalog, synthetic.NewSeededGenerator(5, 1), domain.DefaultScoringParams())

	info, err := engine.Start(ctx, "1", 0, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if info.QuestionID != "1" || info.TimeLimit != 300 {
		t.Fatalf("unexpected session info: %+v", info)
	}

	result, err := engine.Submit(ctx, "1", "team-a", domain.Submission{
		AnswerSets: []domain.AnswerSet{{Answers: []domain.Answer{
			{MediaItemName: "L26_V017", Start: "4890"},
			{MediaItemName: "L26_V017", Start: "5000"},
			{MediaItemName: "L26_V017", Start: "5001"},
			{MediaItemName: "L26_V017", Start: "5020"},
		}}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Outcome != domain.OutcomeScored || result.Score <= 0 {
		t.Fatalf("expected scored submission, got %+v", result)
	}

	lb, err := engine.Leaderboard("1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	found := false
	for _, row := range lb.Rows {
		if row.TeamID == "team-a" && row.Real {
			found = true
		}
	}
	if !found {
		t.Fatalf("team-a missing from leaderboard: %+v", lb.Rows)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "scoring", "POSTGRES_PASSWORD": "scoringpass", "POSTGRES_DB": "scoringdb"},
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
	dsn := fmt.Sprintf("postgres://scoring:scoringpass@%s:%s/scoringdb?sslmode=disable", host, port.Port())
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

func seedQuestion(t *testing.T, ctx context.Context, dsn string, question domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(question)
	if err != nil {
		t.Fatalf("marshal question: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO questions (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, question.ID, string(data)); err != nil {
		t.Fatalf("insert question: %v", err)
	}
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:      "1",
		Type:    domain.TaskKIS,
		SceneID: "L26",
		VideoID: "V017",
		Points:  []int{4890, 5000, 5001, 5020},
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
