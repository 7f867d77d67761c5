package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filmcrew-backend/internal/config"
	"filmcrew-backend/internal/handlers"
	"filmcrew-backend/internal/middleware"
	"filmcrew-backend/internal/repository"
	"filmcrew-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	cityRepo := repository.NewCityRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	jobRepo := repository.NewJobRepository(db)
	supportRepo := repository.NewSupportRepository(db)

	// Initialize services
	storageService, err := services.NewStorageService(
		cfg.AWS.Region,
		cfg.AWS.S3Bucket,
		cfg.AWS.AccessKey,
		cfg.AWS.SecretKey,
		cfg.AWS.Endpoint,
		nil,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage service")
	}

	var pusher services.Pusher
	if cfg.APNS.Enabled {
		notifyService, err := services.NewNotifyService(
			cfg.APNS.KeyFile,
			cfg.APNS.KeyID,
			cfg.APNS.TeamID,
			cfg.APNS.Topic,
			cfg.APNS.Production,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create notify service")
		}
		pusher = notifyService
	}

	wsHub := services.NewWSHub(cfg.Chat.TypingTTL, nil)

	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	membershipService := services.NewMembershipService(
		userRepo,
		submissionRepo,
		cfg.Membership.CacheTTL,
		cfg.Membership.FreeMonthlyLimit,
		cfg.Membership.ProMonthlyLimit,
		nil,
	)
	userService.SetTierChangeHook(membershipService.Invalidate)

	chatService := services.NewChatService(convRepo, msgRepo, userRepo, cityRepo, wsHub, pusher, nil)
	discoveryService := services.NewDiscoveryService(cityRepo, userRepo, jobRepo)
	jobService := services.NewJobService(jobRepo, membershipService, nil)
	submissionService := services.NewSubmissionService(submissionRepo, membershipService, storageService, nil)
	supportService := services.NewSupportService(supportRepo, userRepo, nil)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, membershipService)
	chatHandler := handlers.NewChatHandler(chatService, storageService)
	discoveryHandler := handlers.NewDiscoveryHandler(discoveryService)
	jobHandler := handlers.NewJobHandler(jobService)
	submissionHandler := handlers.NewSubmissionHandler(submissionService, storageService)
	supportHandler := handlers.NewSupportHandler(supportService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, chatService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", userHandler.Register)
		r.Post("/auth/login", userHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/me", userHandler.Me)
			r.Put("/me", userHandler.UpdateProfile)
			r.Put("/me/push-token", userHandler.UpdatePushToken)
			r.Post("/me/xp", userHandler.GrantXP)
			r.Post("/me/tier", userHandler.UpgradeTier)
			r.Get("/me/membership", userHandler.Membership)

			r.Get("/users/{user_id}", userHandler.GetProfile)
			r.Post("/users/{user_id}/support", supportHandler.Support)
			r.Delete("/users/{user_id}/support", supportHandler.Unsupport)
			r.Get("/users/{user_id}/relationship", supportHandler.Relationship)
			r.Get("/users/{user_id}/supporting", supportHandler.ListSupporting)
			r.Get("/users/{user_id}/supporters", supportHandler.ListSupporters)

			r.Get("/conversations", chatHandler.ListConversations)
			r.Post("/conversations/direct", chatHandler.StartDirect)
			r.Post("/conversations/city", chatHandler.JoinCityGroup)
			r.Get("/conversations/{conversation_id}", chatHandler.GetConversation)
			r.Get("/conversations/{conversation_id}/messages", chatHandler.History)
			r.Post("/conversations/{conversation_id}/messages", chatHandler.SendMessage)
			r.Post("/conversations/{conversation_id}/attachments", chatHandler.SendAttachment)
			r.Post("/conversations/{conversation_id}/typing", chatHandler.Typing)

			r.Get("/cities/search", discoveryHandler.SearchCities)
			r.Get("/cities/{city_id}/creatives", discoveryHandler.ListCreatives)
			r.Get("/cities/{city_id}/jobs", discoveryHandler.ListOpenJobs)

			r.Post("/jobs", jobHandler.Create)
			r.Get("/jobs/{job_id}", jobHandler.Get)
			r.Post("/jobs/{job_id}/close", jobHandler.Close)
			r.Post("/jobs/{job_id}/apply", jobHandler.Apply)
			r.Get("/jobs/{job_id}/applications", jobHandler.Applications)

			r.Post("/submissions", submissionHandler.Create)
			r.Get("/submissions", submissionHandler.List)
			r.Delete("/submissions/{submission_id}", submissionHandler.Delete)
			r.Post("/submissions/{submission_id}/vote", submissionHandler.Vote)
			r.Get("/submissions/{submission_id}/video-url", submissionHandler.VideoURL)
			r.Post("/submissions/uploads", submissionHandler.StartUpload)
			r.Post("/submissions/uploads/complete", submissionHandler.CompleteUpload)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
