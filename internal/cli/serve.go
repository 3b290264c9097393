package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-content-service/internal/app"
	"quiz-content-service/internal/config"
	"quiz-content-service/internal/domain"
	"quiz-content-service/internal/infra/httpsource"
	"quiz-content-service/internal/infra/memory"
	pgsource "quiz-content-service/internal/infra/postgres"
	redisstore "quiz-content-service/internal/infra/redis"
	sqlitestore "quiz-content-service/internal/infra/sqlite"
	transport "quiz-content-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand that runs the launch sync pass and
// serves the local snapshot over HTTP.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Sync content and serve it from the local snapshot",
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

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	source, closeSource, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	if closeSource != nil {
		defer closeSource()
	}

	manifestTimeout := config.Duration(cfg.Manifest.Timeout, 5*time.Second)
	coordinator := app.NewUpdateCoordinator(store, source, manifestTimeout)
	service := app.NewContentService(store, source)

	launch, err := coordinator.Launch(ctx)
	if err != nil {
		return err
	}
	switch launch.State {
	case app.StateBlocked:
		log.Printf("content blocked: %s", launch.BlockMessage)
	default:
		log.Printf("launch complete: version=%q bootstrapped=%v", launch.Version, launch.Bootstrapped)
		if launch.UpdateNotice != "" {
			log.Printf("update available: %s", launch.UpdateNotice)
		}
	}

	handler := transport.NewHandler(service, coordinator, launch)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz content service on :%s", finalPort)
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

// buildStore picks the snapshot store: redis when configured, else sqlite,
// else in-memory.
func buildStore(cfg config.Config) (app.SnapshotStore, func(), error) {
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisstore.NewSnapshotStore(client), func() { client.Close() }, nil
	}
	if cfg.Store.SQLitePath != "" {
		store, err := sqlitestore.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return memory.NewSnapshotStore(), nil, nil
}

// buildSource picks the content source: postgres when configured, else HTTP,
// else a static in-memory sample.
func buildSource(ctx context.Context, cfg config.Config) (app.ContentSource, func(), error) {
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgsource.NewContentSource(pool), pool.Close, nil
	}
	if cfg.API.BaseURL != "" || cfg.Manifest.URL != "" {
		return httpsource.New(cfg.Manifest.URL, cfg.API.BaseURL), nil, nil
	}
	return memory.NewStaticContentSource("1.0", sampleSubjects(), nil), nil, nil
}

// sampleSubjects provides minimal demo content for running without any remote
// source configured.
func sampleSubjects() domain.SubjectTree {
	return domain.SubjectTree{
		"Computer Basics": {
			"q1": {
				Prompt: "What does CPU stand for?",
				Options: map[string]string{
					"a": "Central Processing Unit",
					"b": "Computer Processing Unit",
					"c": "Control Program Unit",
					"d": "Central Program Utility",
				},
				Answer: "a",
			},
			"q2": {
				Prompt: "Which of the following is an input device?",
				Options: map[string]string{
					"a": "Monitor",
					"b": "Printer",
					"c": "Keyboard",
					"d": "Speaker",
				},
				Answer: "c",
			},
			"q3": {
				Prompt: "Which memory is volatile?",
				Options: map[string]string{
					"a": "ROM",
					"b": "Hard Disk",
					"c": "RAM",
					"d": "DVD",
				},
				Answer: "c",
			},
		},
		"Networking": {
			"q1": {
				Prompt: "What is the full form of LAN?",
				Options: map[string]string{
					"a": "Local Area Network",
					"b": "Large Area Network",
					"c": "Long Area Node",
					"d": "Local Access Network",
				},
				Answer: "a",
			},
		},
	}
}
