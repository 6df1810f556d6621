package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-auth/internal/config"
	"storefront-auth/internal/database"
	"storefront-auth/internal/handler"
	"storefront-auth/internal/identity"
	"storefront-auth/internal/logger"
	"storefront-auth/internal/mailer"
	"storefront-auth/internal/middleware"
	"storefront-auth/internal/otp"
	"storefront-auth/internal/repository"
	"storefront-auth/internal/router"
	"storefront-auth/internal/service"
	"storefront-auth/internal/session"
	"storefront-auth/internal/token"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.Production, cfg.LogLevel)
	slog.SetDefault(log)

	var cleanupFuncs []func()
	var store repository.Store
	var health *handler.HealthHandler

	if cfg.DatabaseURL != "" {
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		store = repository.NewPostgresStore(db.Pool)
		health = handler.NewHealthHandler(db)
		cleanupFuncs = append(cleanupFuncs, db.Close)
		slog.Info("database ready")
	} else {
		slog.Warn("DATABASE_URL not set, accounts are kept in memory")
		store = repository.NewMemoryStore()
		health = handler.NewHealthHandler(nil)
	}

	var sender mailer.Sender
	if cfg.MailDriver == "smtp" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		sender = mailer.NewLogSender(log)
	}

	issuer, err := token.NewIssuer(token.Settings{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		ResetTTL:      cfg.ResetTokenTTL,
	})
	if err != nil {
		runCleanup(cleanupFuncs)
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	otpEngine := otp.NewEngine(store, sender, otp.Options{TTL: cfg.OTPTTL, Issuer: cfg.OTPIssuer})
	authService := service.NewAuthService(store, otpEngine, issuer, log)

	cookies := session.CookiePolicy{
		Name:     cfg.RefreshCookieName,
		Secure:   cfg.Production,
		SameSite: cfg.SameSiteMode(),
		MaxAge:   cfg.RefreshTokenTTL,
	}
	sessionMiddleware := middleware.NewSessionMiddleware(session.NewVerifier(issuer), cookies)

	var authHandler *handler.AuthHandler
	if cfg.GoogleEnabled() {
		google := identity.NewGoogleProvider(identity.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
		})
		authHandler = handler.NewAuthHandler(authService, cookies, google, cfg.GoogleLoginRedirect)
	} else {
		slog.Info("google sign-in disabled")
		authHandler = handler.NewAuthHandler(authService, cookies, nil, cfg.GoogleLoginRedirect)
	}

	appRouter := router.New(cfg, sessionMiddleware, router.Handlers{
		Auth:   authHandler,
		Health: health,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		runCleanup(a.cleanupFuncs)
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.server.Shutdown(ctx)
	runCleanup(a.cleanupFuncs)
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runCleanup(funcs []func()) {
	for _, cleanup := range funcs {
		cleanup()
	}
}
