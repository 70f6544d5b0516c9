package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hearth-backend/config"
	"hearth-backend/database"
	"hearth-backend/handlers"
	"hearth-backend/metrics"
	authmiddleware "hearth-backend/middleware"
	"hearth-backend/repository"
	"hearth-backend/services"
	"hearth-backend/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	if os.Getenv("ENV") == "development" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	db, err := database.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(startupCtx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	householdRepo := repository.NewHouseholdRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)

	receipts := storage.NewObjectStorage(cfg.StorageURL, cfg.StoragePublicURL, cfg.StorageServiceKey)

	expenseService := services.NewExpenseService(expenseRepo, householdRepo, db, receipts, cfg.ReceiptsBucket, cfg.LedgerHistoryLimit)
	settlementService := services.NewSettlementService(expenseRepo, settlementRepo, householdRepo, cfg.LedgerHistoryLimit)

	var suggester services.SplitSuggester
	if cfg.AIEnabled && cfg.AIProvider == services.ProviderGemini {
		if cfg.GeminiAPIKey == "" {
			logger.Warn("AI_PROVIDER is gemini but GEMINI_API_KEY is empty, using heuristic suggestions")
		} else {
			gemini, err := services.NewGeminiSuggester(startupCtx, cfg.GeminiAPIKey, cfg.AIModel)
			if err != nil {
				logger.Fatal("Failed to create Gemini client", zap.Error(err))
			}
			defer gemini.Close()
			suggester = gemini
		}
	}
	splitSuggestionService := services.NewSplitSuggestionService(cfg.AIEnabled, suggester, householdRepo)

	authMiddleware := authmiddleware.NewAuthMiddleware(cfg.AuthJWTSecret, cfg.AuthIssuerURL)

	h := handlers.NewHandlers(expenseService, settlementService, splitSuggestionService, cfg.MaxUploadSize)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmiddleware.ZapLogger(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(authmiddleware.SecurityHeaders)
	r.Use(authmiddleware.MaxBodySize(cfg.MaxBodySize))
	if cfg.Env == "production" {
		r.Use(authmiddleware.StrictTransportSecurity)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(httprate.LimitByIP(services.GeneralRateLimit, 1*time.Minute))
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(services.AIRateLimit, 1*time.Minute))
			r.Post("/splits/suggest", h.SuggestSplit)
		})

		h.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.Bool("ai_enabled", cfg.AIEnabled))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
