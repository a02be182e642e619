package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcquiz-service/internal/app"
	"arcquiz-service/internal/config"
	"arcquiz-service/internal/infra/memory"
	"arcquiz-service/internal/infra/postgres"
	pgmigrations "arcquiz-service/internal/infra/postgres/migrations"
	redisstore "arcquiz-service/internal/infra/redis"
	"arcquiz-service/internal/infra/sqlite"
	transport "arcquiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the storage chosen from configuration and what to close on exit.
type backends struct {
	questions   app.QuestionSource
	sessions    app.SessionRepository
	leaderboard app.LeaderboardRepository
	closers     []io.Closer
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i].Close()
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	service := app.NewQuizService(b.questions, b.sessions, b.leaderboard, logger,
		app.WithDefaultAmount(cfg.Quiz.DefaultAmount),
		app.WithLeaderboardLimit(cfg.Quiz.LeaderboardLimit),
	)
	if n, ok := service.Available(ctx); ok {
		logger.Info("question bank loaded", "questions", n)
	}

	pages, err := transport.NewHandler(service, logger, transport.Options{
		CookieName:    cfg.Server.CookieName,
		CookieSecure:  cfg.Server.CookieSecure,
		DefaultAmount: cfg.Quiz.DefaultAmount,
	})
	if err != nil {
		return err
	}
	wsHandler := transport.NewWSHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws/leaderboard", wsHandler.ServeWS)
	pages.RegisterRoutes(mux)

	// WriteTimeout stays unset: the websocket feed holds connections open.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.Logging(logger)(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting quiz service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}
	var questions app.QuestionSource = fileOrEmbedded(cfg)

	if cfg.Postgres.URL != "" {
		db := postgres.OpenDB(cfg.Postgres.URL)
		b.closers = append(b.closers, db)
		applied, err := pgmigrations.Apply(ctx, db)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("migrations applied", "count", len(applied))
		b.leaderboard = postgres.NewLeaderboard(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, closerFunc(func() error { pool.Close(); return nil }))

		pg := postgres.NewQuestionSource(pool, cfg.Quiz.BankName)
		seeded, err := seedBank(ctx, pg, questions)
		if err != nil {
			logger.Warn("question bank seed skipped", "bank", cfg.Quiz.BankName, "error", err)
		} else if seeded {
			logger.Info("question bank seeded", "bank", cfg.Quiz.BankName)
		}
		questions = pg
		logger.Info("using postgres storage", "bank", cfg.Quiz.BankName)
	} else {
		path := cfg.SQLitePath()
		board, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, board)
		b.leaderboard = board
		logger.Info("using sqlite leaderboard", "path", path)
	}

	bankTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping failed", "addr", cfg.Redis.Addr, "error", err)
		}
		b.sessions = redisstore.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
		b.questions = redisstore.NewBankCache(client, questions, cfg.Quiz.BankName, bankTTL)
		logger.Info("using redis sessions", "addr", cfg.Redis.Addr)
	} else {
		b.sessions = memory.NewSessionStore()
		b.questions = memory.NewBankCache(questions, bankTTL)
	}
	return b, nil
}
