package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/config"
	"quiz-gauntlet/internal/infra/memory"
	redisinfra "quiz-gauntlet/internal/infra/redis"
	transport "quiz-gauntlet/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand that serves extra-stage runs over WebSocket.
func NewServeCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve extra-stage runs to browsers over WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", os.Getenv("PORT"), "port to listen on")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	b, err := openBackend(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer b.Close()

	if b.cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, b.cfg, b.log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = b.cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	bank, _, err := b.questions()
	if err != nil {
		return err
	}
	raster, err := b.rasterizer()
	if err != nil {
		return err
	}

	var runs app.RunRepository
	if b.redis != nil {
		runs = redisinfra.NewRunStore(b.redis, config.TTLDuration(b.cfg.Redis.TTL, 10*time.Minute))
	} else {
		runs = memory.NewRunStore()
	}
	service := b.extraService(bank, runs)
	wsHandler := transport.NewWSHandler(service, b.players(raster), b.log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		b.log.Info("starting quiz server", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			b.log.Error("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		b.log.Info("shutting down server")
	case <-ctx.Done():
		b.log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// players keeps each browser's device state apart: a redis hash per owner
// when redis is configured, otherwise an in-process store per owner.
func (b *backend) players(raster app.Rasterizer) transport.PlayerFunc {
	var (
		mu     sync.Mutex
		stores = make(map[string]app.KeyValueStore)
	)
	return func(ownerID string) transport.Player {
		var kv app.KeyValueStore
		if b.redis != nil {
			kv = redisinfra.NewKVStore(b.redis, ownerID)
		} else {
			mu.Lock()
			kv = stores[ownerID]
			if kv == nil {
				kv = memory.NewKVStore()
				stores[ownerID] = kv
			}
			mu.Unlock()
		}
		p := b.newPlayer(kv, raster)
		return transport.Player{Profile: p.profile, Presenter: p.presenter}
	}
}
