package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/config"
	"jobscout/scraper-service/internal/db"
	"jobscout/scraper-service/internal/httpapi"
	"jobscout/scraper-service/internal/identity"
	"jobscout/scraper-service/internal/match"
	"jobscout/scraper-service/internal/scheduler"
	"jobscout/scraper-service/internal/scraper"
	"jobscout/scraper-service/internal/secrets"
	"jobscout/scraper-service/internal/task"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "scraper").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("schema")
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	defer rdb.Close()

	cipher, err := secrets.NewCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("cipher")
	}

	accountStore := identity.NewPGStore(pool)
	accounts := identity.NewPool(accountStore, cipher,
		identity.Limits{DailyCap: cfg.DailyRequestCap, Cooldown: cfg.Cooldown}, log)

	stealth, err := scraper.NewStealthEngine(cfg.DelayMin, cfg.DelayMax)
	if err != nil {
		log.Fatal().Err(err).Msg("stealth engine")
	}
	basic := scraper.NewBasicEngine(cfg.DelayMin, cfg.DelayMax)
	dual := scraper.NewDual(stealth, basic, cfg.DelayMin, cfg.DelayMax, log)

	var scorer match.Scorer
	if cfg.AIAPIKey != "" {
		scorer = match.NewAIScorer(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
	} else {
		log.Warn().Msg("AI_API_KEY not set, every match uses the keyword scorer")
	}
	matcher := match.NewMatcher(scorer, match.NewRedisCache(rdb), log)

	taskStore := task.NewPGStore(pool)
	orch := task.NewOrchestrator(accounts, dual, matcher, taskStore,
		task.NewRedisPublisher(rdb), cfg.ScrapeTimeout, cfg.MatchConcurrency, log)
	tasks := task.NewService(ctx, taskStore, orch, cfg.WorkerBudget, cfg.TaskTimeout, log)

	sched, err := scheduler.New(accountStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}
	sched.Start()
	defer sched.Stop()

	handler := httpapi.NewHandler(tasks, accounts, log)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("scraper service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}
