package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/time/rate"

	"github.com/padraicbc/todoapi/auth"
	"github.com/padraicbc/todoapi/config"
	"github.com/padraicbc/todoapi/db"
	"github.com/padraicbc/todoapi/handlers"
	applog "github.com/padraicbc/todoapi/logger"
	mw "github.com/padraicbc/todoapi/middleware"
	"github.com/padraicbc/todoapi/objstore"
	"github.com/padraicbc/todoapi/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bdb, err := db.Setup(ctx, cfg)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}
	defer bdb.Close()

	if err := db.CreateTables(ctx, bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	users := store.NewUsers(bdb, store.WithTimeout(cfg.StoreTimeout), store.WithCost(cfg.BcryptCost))
	tasks := store.NewTasks(bdb, store.WithTimeout(cfg.StoreTimeout))
	authn := auth.New(users, logger, auth.WithCost(cfg.BcryptCost))

	var files handlers.Attachments
	if cfg.AttachmentsEnabled() {
		s3store, err := objstore.NewFromConfig(ctx, cfg)
		if err != nil {
			logger.Fatal("object store setup failed", zap.Error(err))
		}
		files = s3store
		logger.Info("attachments enabled", zap.String("bucket", cfg.S3Bucket))
	}

	h := handlers.New(authn, tasks, files, logger)

	e := newServer(cfg, logger, h, mw.Session(authn))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	if cfg.Debug || len(cfg.TLSDomains) == 0 {
		logger.Info("starting server", zap.Bool("debug", cfg.Debug), zap.String("addr", cfg.Port))
		if err := e.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server exited", zap.Error(err))
		}
		return
	}

	autoTLS := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(".cache"),
		HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
	}

	s := &http.Server{
		Addr:         ":443",
		Handler:      e,
		TLSConfig:    autoTLS.TLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	logger.Info("starting tls server", zap.Strings("domains", cfg.TLSDomains))
	if err := s.ListenAndServeTLS("", ""); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("tls server exited", zap.Error(err))
		os.Exit(1)
	}
}

// newServer assembles the echo instance: middleware stack, API routes and
// the metrics endpoint. Metrics wraps Recover so panics are counted as 5xx.
func newServer(cfg *config.Config, logger *zap.Logger, h *handlers.Handler, gate echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if u := mw.Username(c); u != "" {
				fields = append(fields, zap.String("username", u))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(mw.Metrics())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	limiter := echomw.RateLimiter(echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RateLimit),
		Burst:     cfg.RateBurst(),
		ExpiresIn: 3 * time.Minute,
	}))
	h.Routes(e, limiter, gate)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
