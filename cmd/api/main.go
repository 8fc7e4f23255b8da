package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/engeseg/sstcontrol/internal/auth"
	"github.com/engeseg/sstcontrol/internal/cadastro"
	"github.com/engeseg/sstcontrol/internal/config"
	"github.com/engeseg/sstcontrol/internal/db"
	internalhttp "github.com/engeseg/sstcontrol/internal/http"
	"github.com/engeseg/sstcontrol/internal/liberacao"
	"github.com/engeseg/sstcontrol/internal/storage"
	"github.com/engeseg/sstcontrol/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	backend, err := montarBackend(ctx, cfg)
	if err != nil {
		return err
	}
	registros := store.NewCacheStore(backend)

	uploader, err := montarUploader(cfg)
	if err != nil {
		return err
	}

	sessoes, err := montarSessoes(ctx, cfg)
	if err != nil {
		return err
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTSessionTTL)
	cadastroSvc := cadastro.NewService(registros)
	liberacaoSvc := liberacao.NewService(registros, sessoes, jwtManager, cfg.SenhaHash)

	router := internalhttp.NewRouter(cfg, registros, uploader, cadastroSvc, liberacaoSvc, jwtManager)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("backend", cfg.StoreBackend).Msg("api iniciada")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("encerrando api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}

func montarBackend(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return store.NewPostgresStore(pool), nil
	case config.BackendPlanilha:
		st, err := store.NewPlanilhaStore(cfg.PlanilhaPath)
		if err != nil {
			return nil, fmt.Errorf("planilha: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("backend desconhecido: %s", cfg.StoreBackend)
	}
}

func montarUploader(cfg *config.Config) (storage.Uploader, error) {
	switch cfg.Storage.Provider {
	case "s3":
		return storage.NewS3Uploader(storage.S3Config{
			Endpoint:     cfg.Storage.S3Endpoint,
			Region:       cfg.Storage.S3Region,
			Bucket:       cfg.Storage.S3Bucket,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey,
			PublicDomain: cfg.Storage.S3PublicURL,
		})
	case "local":
		return storage.NewLocalUploader(cfg.Storage.DocsDir)
	default:
		log.Warn().Msg("nenhum armazenamento de documentos configurado; uploads desabilitados")
		return storage.NoopUploader{}, nil
	}
}

func montarSessoes(ctx context.Context, cfg *config.Config) (liberacao.SessaoStore, error) {
	if cfg.RedisURL == "" {
		return liberacao.NewMemoriaSessaoStore(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	return liberacao.NewRedisSessaoStore(client), nil
}
