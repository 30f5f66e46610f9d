package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/coursebot/internal/access"
	"github.com/example/coursebot/internal/auth"
	"github.com/example/coursebot/internal/bot"
	"github.com/example/coursebot/internal/config"
	"github.com/example/coursebot/internal/conversation"
	"github.com/example/coursebot/internal/database"
	"github.com/example/coursebot/internal/excel"
	"github.com/example/coursebot/internal/httpapi"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/payment"
	"github.com/example/coursebot/internal/quiz"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/internal/resource/restclient"
	"github.com/example/coursebot/internal/scheduler"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	importPath := flag.String("import", "", "import a catalog workbook or CSV sheet and exit")
	adminToken := flag.Int64("admin-token", 0, "print an HTTP API token for this admin id and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal("failed to create token issuer", "error", err)
	}

	if *adminToken != 0 {
		token, _, err := tokens.Issue(*adminToken)
		if err != nil {
			log.Fatal("failed to issue admin token", "error", err)
		}
		fmt.Println(token)
		return
	}

	// Создаем канал для сигналов
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Подключаемся к хранилищу
	var (
		api   resource.API
		store *database.Store
	)
	switch cfg.ResourceBackend {
	case config.BackendREST:
		client, err := restclient.New(log, cfg.ResourceAPIURL, cfg.ResourceAPIToken, 0)
		if err != nil {
			log.Fatal("failed to create resource client", "error", err)
		}
		api = client
	default:
		db, err := database.Connect(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			log.Fatal("failed to connect to database", "driver", cfg.DBDriver, "error", err)
		}
		store = database.NewStore(db, tokens)
		defer store.Close()
		api = store
	}

	if *importPath != "" {
		if store == nil {
			log.Fatal("catalog import needs the sql backend")
		}
		res, err := excel.NewImporter(store, excel.DefaultImportConfig(), log).ImportFile(ctx, *importPath)
		if err != nil {
			log.Fatal("catalog import failed", "file", *importPath, "error", err)
		}
		for _, e := range res.Errors {
			log.Warn("import row skipped", "reason", e)
		}
		log.Info("catalog imported", "file", *importPath, "imported", res.Imported(), "skipped", res.Skipped)
		return
	}

	// Состояние диалогов
	var (
		sessions conversation.Store
		memory   *conversation.MemoryStore
	)
	switch cfg.StateBackend {
	case config.StateRedis:
		client, err := conversation.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		defer client.Close()
		sessions = conversation.NewRedisStore(client, cfg.StateTTL)
	default:
		memory = conversation.NewMemoryStore(cfg.StateTTL)
		sessions = memory
	}

	cache := auth.NewCache(api, cfg.TokenTTL, log)
	payments := payment.NewEngine(api, cache, nil, cfg.AdminIDs, log)
	machine := conversation.NewMachine(conversation.Deps{
		API:      api,
		Auth:     cache,
		Payments: payments,
		Quizzes:  quiz.NewEngine(api, log),
		Gate:     access.NewGate(api),
		Store:    sessions,
	}, conversation.Config{PaymentCard: cfg.PaymentCard, Currency: cfg.Currency}, log)

	// Создаем бота
	tg, err := bot.NewAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal("failed to create bot", "error", err)
	}
	botCfg := bot.DefaultConfig()
	botCfg.Currency = cfg.Currency
	botCfg.RateLimit = rate.Limit(cfg.RateLimit)
	botCfg.RateBurst = cfg.RateBurst
	botCfg.ReminderAfter = cfg.PendingReminderAfter

	b := bot.New(tg, machine, payments, botCfg, log)
	payments.SetNotifier(b)
	b.SetReports(api)
	if store != nil {
		b.SetImporter(excel.NewImporter(store, excel.DefaultImportConfig(), log))
	}

	sched := scheduler.New(payments, scheduler.Config{
		ReminderInterval: cfg.ReminderInterval,
		PendingOlderThan: cfg.PendingReminderAfter,
		StartHour:        cfg.ReminderStartHour,
		EndHour:          cfg.ReminderEndHour,
	}, log)
	if memory != nil {
		sched.AddSweeper("sessions", memory)
	}
	sched.AddSweeper("auth", cache)
	sched.AddSweeper("throttle", b)
	b.SetReminder(sched)
	if err := sched.Start(ctx); err != nil {
		log.Fatal("failed to start scheduler", "error", err)
	}

	var srv *httpapi.Server
	if cfg.HTTPAddr != "" {
		srv = httpapi.New(cfg.HTTPAddr, api, machine, payments, tokens, cfg.Currency, log)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("http api stopped", "error", err)
			}
		}()
	}

	// Канал для ожидания завершения бота
	done := make(chan struct{})

	// Горутина для обработки сигналов
	go func() {
		sig := <-sigChan
		log.Info("received signal", "signal", sig.String())
		cancel()

		// Даем время на graceful shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		sched.Stop()
		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("http api shutdown", "error", err)
			}
		}
		if err := b.Stop(shutdownCtx); err != nil {
			log.Warn("error during shutdown", "error", err)
		}
		close(done)
	}()

	log.Info("bot started, press Ctrl+C to stop", "backend", cfg.ResourceBackend, "state", cfg.StateBackend)
	go func() {
		if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("bot error", "error", err)
		}
	}()

	<-done
	log.Info("bot stopped successfully")
}
