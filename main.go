package main

import (
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/scenariobudget/src/config"
	"github.com/username/scenariobudget/src/database"
	"github.com/username/scenariobudget/src/handlers"
	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/model"
	"github.com/username/scenariobudget/src/processors"
	"github.com/username/scenariobudget/src/services"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func enableCORS(origins []string) func(http.Handler) http.Handler {
	allowedOrigins := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowedOrigins[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
			} else if origin == "" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func newConversionGateway(cfg *config.AppConfig, client *http.Client) services.ConversionGateway {
	if cfg.ConversionProvider == config.ConversionProviderRPC {
		logger.L.Info("Using RPC conversion gateway", "url", cfg.ConversionRPCURL)
		return services.NewRPCConversionGateway(cfg.ConversionRPCURL, cfg.ConversionRPCAPIKey, client)
	}
	logger.L.Info("Using ECB exchange rate conversion gateway", "url", cfg.ECBAPIBaseURL)
	return services.NewRateConversionGateway(processors.NewExchangeRateProcessor(cfg.ECBAPIBaseURL, client), time.Now)
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Scenario budget server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations()

	queryCache := services.NewQueryCache(config.Cfg.QueryStaleTime, config.Cfg.QueryGCTime,
		services.WithBackgroundFetchTimeout(config.Cfg.BackgroundFetchTimeout))

	httpClient := &http.Client{Timeout: config.Cfg.HTTPClientTimeout}
	resolver := services.NewConvertedAmountResolver(queryCache, newConversionGateway(config.Cfg, httpClient))

	scenarioService := services.NewScenarioService(queryCache, model.NewScenarioStore(database.DB))
	incomeService := services.NewIncomeService(queryCache, model.NewIncomeStore(database.DB), resolver, scenarioService, time.Now)
	expenseService := services.NewExpenseService(queryCache, model.NewExpenseStore(database.DB), resolver, scenarioService, time.Now)
	savingsService := services.NewSavingsService(queryCache, model.NewSavingsStore(database.DB), resolver, scenarioService, time.Now)
	allocationService := services.NewAllocationService(queryCache, model.NewAllocationStore(database.DB), savingsService)
	goalService := services.NewGoalService(queryCache, model.NewGoalStore(database.DB), resolver, scenarioService, allocationService, time.Now)
	summaryService := services.NewSummaryService(queryCache, scenarioService, incomeService, expenseService, goalService, savingsService)
	defer summaryService.Close()

	limiter := rate.NewLimiter(rate.Every(config.Cfg.RateLimitInterval), config.Cfg.RateLimitBurst)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS(config.Cfg.AllowedOrigins))
	r.Use(rateLimitMiddleware(limiter))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Scenario budget backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		handlers.RegisterAPIRoutes(r, handlers.Services{
			Scenarios:   scenarioService,
			Incomes:     incomeService,
			Expenses:    expenseService,
			Goals:       goalService,
			Savings:     savingsService,
			Allocations: allocationService,
			Summaries:   summaryService,
			Now:         time.Now,
		}, handlers.AuthMiddleware([]byte(config.Cfg.JWTSecret)))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
