// Package server wires the application together: database, push hub,
// services, handlers, middleware, and routes, plus the server lifecycle.
// This is the composition root — dependencies are constructed here and
// nowhere else.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/likey-social/likey/internal/auth"
	"github.com/likey-social/likey/internal/handler"
	"github.com/likey-social/likey/internal/middleware"
	"github.com/likey-social/likey/internal/realtime"
	sqliteRepo "github.com/likey-social/likey/internal/repository/sqlite"
	"github.com/likey-social/likey/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	// GitHub OAuth is optional; leave the fields empty to disable the
	// /auth/github routes.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the resources that need closing on shutdown:
// the database connection and the push hub.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	hub    *realtime.Hub
}

// New assembles the full dependency graph:
//
//	sqlite.DB → repositories → services (+ hub) → handlers → routes
//
// Each layer receives only what it needs; handlers never touch the database
// and services never touch HTTP.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		hub:    realtime.NewHub(logger),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		s.hub.Shutdown()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	// Services. The sqlite DB implements every repository interface.
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	messageService := service.NewMessageService(s.db, s.db, s.db, s.hub, s.logger)
	notificationService := service.NewNotificationService(s.db, s.hub, s.logger)
	followService := service.NewFollowService(s.db, s.db, notificationService, s.logger)
	discoveryService := service.NewDiscoveryService(s.db, s.logger)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	messageHandler := handler.NewMessageHandler(messageService, s.logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)
	followHandler := handler.NewFollowHandler(followService, s.logger)
	discoveryHandler := handler.NewDiscoveryHandler(discoveryService, s.logger)
	eventsHandler := handler.NewEventsHandler(messageService, notificationService, s.logger)

	// Global middleware, in order: request ID, real IP, panic recovery,
	// logging, metrics.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics())

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", promhttp.Handler())

	// OAuth browser flow (no auth; these create the session).
	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	s.router.Route("/api", func(r chi.Router) {
		// Account endpoints that create or destroy the session.
		r.Post("/auth/signup", authHandler.HandleSignUp)
		r.Post("/auth/signin", authHandler.HandleSignIn)
		r.Post("/auth/signout", authHandler.HandleSignOut)
		r.Post("/auth/reset/request", authHandler.HandleRequestPasswordReset)
		r.Post("/auth/reset", authHandler.HandleResetPassword)

		// Discovery reads work for anonymous callers too.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/search/users", discoveryHandler.HandleSearchUsers)
			r.Get("/discover/trending-posts", discoveryHandler.HandleTrendingPosts)
			r.Get("/discover/trending-users", discoveryHandler.HandleTrendingUsers)
			r.Get("/discover/explore", discoveryHandler.HandleExplorePosts)
			r.Get("/discover/recommendations", discoveryHandler.HandleRecommendations)
			r.Get("/users/{userID}/follow", followHandler.HandleStatus)
			r.Post("/follows/status", followHandler.HandleBatchStatus)
		})

		// Everything below needs a signed-in user.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)
			r.Patch("/me", authHandler.HandleUpdateProfile)

			r.Post("/conversations", messageHandler.HandleOpenConversation)
			r.Get("/conversations", messageHandler.HandleListConversations)
			r.Get("/conversations/{conversationID}/messages", messageHandler.HandleListMessages)
			r.Post("/conversations/{conversationID}/messages", messageHandler.HandleSendMessage)
			r.Post("/conversations/{conversationID}/read", messageHandler.HandleMarkRead)
			r.Get("/conversations/{conversationID}/events", eventsHandler.HandleConversationEvents)
			r.Patch("/messages/{messageID}", messageHandler.HandleEditMessage)
			r.Delete("/messages/{messageID}", messageHandler.HandleDeleteMessage)
			r.Post("/messages/{messageID}/forward", messageHandler.HandleForwardMessage)
			r.Get("/messages/unread-count", messageHandler.HandleUnreadCount)

			r.Get("/notifications", notificationHandler.HandleLoad)
			r.Post("/notifications/read-all", notificationHandler.HandleMarkAllRead)
			r.Post("/notifications/{notificationID}/read", notificationHandler.HandleMarkRead)
			r.Get("/notifications/events", eventsHandler.HandleNotificationEvents)

			r.Post("/users/{userID}/follow", followHandler.HandleFollow)
			r.Delete("/users/{userID}/follow", followHandler.HandleUnfollow)
			r.Post("/users/{userID}/follow/toggle", followHandler.HandleToggle)

			r.Post("/discover/trending-posts/refresh", discoveryHandler.HandleRefreshTrending)
		})
	})

	return nil
}

// Router exposes the configured mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the hub and the database.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.hub.Shutdown()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE streams stay open indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
