package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aic-scoring-service/internal/app"
	"aic-scoring-service/internal/config"
	"aic-scoring-service/internal/domain"
	"aic-scoring-service/internal/infra/file"
	"aic-scoring-service/internal/infra/memory"
	pgloader "aic-scoring-service/internal/infra/postgres"
	redisinfra "aic-scoring-service/internal/infra/redis"
	"aic-scoring-service/internal/infra/synthetic"
	transport "aic-scoring-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the scoring server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	gtTTL := config.TTLDuration(cfg.GroundTruth.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// Ground-truth loader priority: Postgres, then the CSV hand-off file,
	// then the built-in demo table.
	var loader memory.GroundTruthLoader
	var lister transport.QuestionLister
	switch {
	case pool != nil:
		loader = pgloader.NewGroundTruthLoader(pool)
	case cfg.GroundTruth.CSVPath != "":
		questions, err := file.LoadCSV(cfg.GroundTruth.CSVPath)
		if err != nil {
			return err
		}
		static := memory.NewStaticLoader(questions)
		loader, lister = static, static
		log.Printf("loaded %d ground truth entries from %s", len(questions), cfg.GroundTruth.CSVPath)
	default:
		static := memory.NewStaticLoader(sampleGroundTruth())
		loader, lister = static, static
	}

	var catalog app.Catalog
	if redisClient != nil {
		catalog = redisinfra.NewCatalog(redisClient, loader, gtTTL)
	} else {
		catalog = memory.NewCatalog(loader, gtTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionRegistry(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionRegistry()
	}

	syntheticTeams := cfg.Synthetic.Teams
	if syntheticTeams <= 0 {
		syntheticTeams = 15
	}
	generator := synthetic.NewGenerator(syntheticTeams)

	engine := app.NewEngine(sessions, catalog, generator, cfg.ScoringParams())
	handler := transport.NewHandler(engine, lister, cfg.HomeTeam)
	wsHandler := transport.NewWSHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting scoring service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleGroundTruth provides a minimal table so the server runs without a
// CSV or database; replace via config for a real competition.
func sampleGroundTruth() map[string]domain.Question {
	return map[string]domain.Question{
		"1": {
			ID: "1", Type: domain.TaskKIS, SceneID: "L26", VideoID: "V017",
			Points: []int{4890, 5000, 5001, 5020},
		},
		"2": {
			ID: "2", Type: domain.TaskQA, SceneID: "K01", VideoID: "V021",
			Points: []int{12000, 12345},
		},
		"3": {
			ID: "3", Type: domain.TaskTR, SceneID: "L26", VideoID: "V017",
			Points: []int{240, 252, 300, 312},
		},
	}
}
