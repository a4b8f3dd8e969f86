package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/market-sales/internal/config"
	"github.com/iliyamo/market-sales/internal/database"
	"github.com/iliyamo/market-sales/internal/handler"
	"github.com/iliyamo/market-sales/internal/logger"
	"github.com/iliyamo/market-sales/internal/metrics"
	"github.com/iliyamo/market-sales/internal/middleware"
	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/queue"
	"github.com/iliyamo/market-sales/internal/repository"
	"github.com/iliyamo/market-sales/internal/router"
	"github.com/iliyamo/market-sales/internal/scheduler"
	"github.com/iliyamo/market-sales/internal/service"
	"github.com/iliyamo/market-sales/internal/syncer"
	"github.com/iliyamo/market-sales/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load() // required settings; exits on a missing variable
	if err := utils.CheckBcryptCost(cfg.BcryptCost); err != nil {
		log.Fatal(err)
	}
	app, err := config.LoadApp()
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.Setup(app.Log)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if app.MigrationsEnabled {
		if err := database.Migrate(db); err != nil {
			lg.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		log.Fatal(err)
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		log.Fatal(err)
	}
	rateCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		log.Fatal(err)
	}
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		lg.Warn("redis unavailable; sync, cache and rate limit disabled", "addr", redisCfg.Addr)
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := queue.NewPublisher(app.Rabbit.URL, app.Rabbit.Queue, lg)
	audit := &queue.AuditConsumer{URL: app.Rabbit.URL, Queue: app.Rabbit.Queue, Path: "logs/mercadillo.log", Log: lg}
	go func() {
		if err := audit.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("audit consumer stopped", "error", err)
		}
	}()

	mx := metrics.New(prometheus.DefaultRegisterer)

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	settings := repository.NewSettingsRepo(db)
	mercadillos := repository.NewMercadilloRepo(db)
	tickets := repository.NewTicketRepo(db)
	expenses := repository.NewExpenseRepo(db)
	saved := repository.NewSavedBalanceRepo(db)
	categories := repository.NewCategoryRepo(db)
	articles := repository.NewArticleRepo(db)

	// Services
	mercSvc := service.NewMercadilloService(service.MercadilloDeps{
		Mercadillos:     mercadillos,
		Tickets:         tickets,
		Expenses:        expenses,
		Settings:        settings,
		Saved:           saved,
		Events:          events,
		Metrics:         mx,
		Log:             lg,
		Location:        app.Location(),
		FreeMaxUpcoming: app.Premium.FreeMaxUpcoming,
	})
	balanceSvc := service.NewBalanceService(saved, mercSvc, lg)
	salesSvc, err := service.NewSalesService(tickets, expenses, articles, mercSvc, lg)
	if err != nil {
		log.Fatal(err)
	}
	catalogSvc := service.NewCatalogService(categories, articles)
	settingsSvc := service.NewSettingsService(settings)

	// Soft sync runs only with a reachable Redis. The interfaces stay nil
	// otherwise so the scheduler and the handler see "disabled".
	var (
		resync  scheduler.Resyncer
		syncAPI handler.Syncer
	)
	if rdb != nil && app.Sync.Enabled {
		s := newSyncer(rdb, app.Sync.Prefix, mercadillos, saved, categories, articles, mx, events, lg, mercSvc)
		resync, syncAPI = s, s
	}

	sched := scheduler.New(mercSvc, resync, app.Scheduler.TickInterval, app.Sync.MaxAttempts, app.Sync.Backoff, lg)
	schedDone := sched.Start(ctx)

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(lg))

	var (
		cache   echo.MiddlewareFunc
		limiter echo.MiddlewareFunc
	)
	if rdb != nil {
		cache = middleware.NewRedisCache(cacheCfg, rdb, lg)
		limiter = middleware.NewTokenBucket(rateCfg, rdb, lg)
	}
	router.RegisterRoutes(e, cache)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, sched, lg))
	v1 := router.Protected(e, cfg.JWTSecret, settings, limiter)
	router.RegisterMercadillos(v1, handler.NewMercadilloHandler(mercSvc, balanceSvc, lg))
	router.RegisterSales(v1, handler.NewSalesHandler(salesSvc, lg))
	router.RegisterCatalog(v1, handler.NewCatalogHandler(catalogSvc, lg))
	router.RegisterAccount(v1, handler.NewSettingsHandler(settingsSvc, lg), handler.NewSyncHandler(syncAPI, lg))

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown failed", "error", err)
	}
	<-schedDone
	sched.Wait()
}

// newSyncer binds the synced repositories to the Redis document store. A
// sync that pulled changes recomputes the user's states.
func newSyncer(rdb *redis.Client, prefix string, mercadillos *repository.MercadilloRepo, saved *repository.SavedBalanceRepo,
	categories *repository.CategoryRepo, articles *repository.ArticleRepo, mx *metrics.Metrics, events *queue.Publisher,
	lg *slog.Logger, states *service.MercadilloService) *syncer.Syncer {
	return syncer.New(syncer.Options{
		Remote: syncer.NewRemote(rdb, prefix),
		Sources: []syncer.Source{
			syncer.Bind[model.Mercadillo]("mercadillos", mercadillos, func(m model.Mercadillo) (string, int64) { return m.ID, m.Version }),
			syncer.Bind[model.SavedBalance]("saved_balances", saved, func(b model.SavedBalance) (string, int64) { return b.ID, b.Version }),
			syncer.Bind[model.Category]("categories", categories, func(c model.Category) (string, int64) { return c.ID, c.Version }),
			syncer.Bind[model.Article]("articles", articles, func(a model.Article) (string, int64) { return a.ID, a.Version }),
		},
		Metrics: mx,
		Events:  events,
		Log:     lg,
		OnComplete: func(ctx context.Context, userID uint64) {
			if _, err := states.RecomputeStates(ctx, userID, service.TriggerSync); err != nil {
				lg.Error("state recompute after sync failed", "user_id", userID, "error", err)
			}
		},
	})
}

// requestLogger feeds echo's request log into slog.
func requestLogger(lg *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String()}
			if uid, ok := middleware.UserID(c); ok {
				attrs = append(attrs, "user_id", uid)
			}
			if v.Error != nil {
				lg.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			lg.Info("request", attrs...)
			return nil
		},
	})
}
