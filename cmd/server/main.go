package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecodrop-backend/internal/config"
	"ecodrop-backend/internal/database"
	"ecodrop-backend/internal/destination"
	"ecodrop-backend/internal/handlers"
	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/models"
	"ecodrop-backend/internal/services"
	"ecodrop-backend/internal/tracker"
	"ecodrop-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 ECODROP BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: invalid configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("❌ FATAL ERROR: DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		log.Println("⚠️  APP_JWT_SECRET is not set, bearer tokens will be rejected")
	}

	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: Database migrations failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: User seeding failed: %v", err)
	}
	if err := database.SeedBins(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: Bins seeding failed: %v", err)
	}
	log.Println("✅ Seed data ready")

	store := database.NewStore(db)

	// Advisory destination copy: Redis when configured, memory otherwise
	var destinations destination.Repository
	if cfg.RedisURL != "" {
		redisRepo, err := destination.NewRedisRepository(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable: %v (destinations kept in memory)", err)
			destinations = destination.NewMemoryRepository()
		} else {
			defer redisRepo.Close()
			destinations = redisRepo
			log.Println("✅ Redis connected for destination sessions")
		}
	} else {
		destinations = destination.NewMemoryRepository()
		log.Println("ℹ️  REDIS_URL not set, destinations kept in memory")
	}

	// Firebase Cloud Messaging: base64 credentials first, then the file
	var fcmService *services.FCMService
	if cfg.FirebaseCredentialsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(cfg.FirebaseCredentialsBase64)
	} else {
		fcmService, err = services.NewFCMService(cfg.FirebaseCredentialsFile)
	}
	if err != nil {
		log.Printf("⚠️  Failed to initialize FCM: %v (push notifications disabled)", err)
		fcmService = nil
	} else {
		log.Println("✅ Firebase Cloud Messaging initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	ledger := services.NewRewardLedger(store, cfg.Policy, wsHub, services.NewPushNotifier(fcmService, store))
	confirmation := services.NewDropConfirmationService(store, store, ledger, cfg.Policy, cfg.DropDayLocation)
	retrier := services.NewRewardRetrier(store, ledger, cfg.RewardRetryInterval)
	go retrier.Run(ctx)

	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.TrustUserIDHeader, cfg.JWTExpiry)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.UserIDHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)

	r.Get("/ws", websocket.HandleWebSocket(wsHub, auth, store, tracker.DefaultConfig()))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", handlers.Login(store, auth))

		r.Get("/bins", handlers.GetBins(store))
		r.Get("/bins/nearby", handlers.GetNearbyBins(store))
		r.Get("/bins/{id}", handlers.GetBin(store))
		r.Get("/leaderboard", handlers.GetLeaderboard(store))

		// the service answers the unauthenticated case itself
		r.With(auth.Optional).Post("/drop/confirm", handlers.ConfirmDrop(confirmation))

		r.Group(func(r chi.Router) {
			r.Use(auth.Auth)

			r.Get("/user/me", handlers.GetMe(store))
			r.Get("/user/drops", handlers.GetMyDrops(store))
			r.Get("/user/activity", handlers.GetMyActivity(store))
			r.Post("/user/fcm-token", handlers.RegisterFCMToken(store))
			r.Post("/user/destination", handlers.SaveDestination(destinations, store))
			r.Get("/user/destination", handlers.GetDestination(destinations))
			r.Delete("/user/destination", handlers.ClearDestination(destinations))
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Auth)
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Get("/admin/drops", handlers.GetAdminDrops(store))
			r.Patch("/admin/bins/{id}", handlers.UpdateBin(store, wsHub))
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Graceful shutdown failed: %v", err)
		}
	}()

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Printf("✅ Server listening on :%s", cfg.Port)
	log.Println("═══════════════════════════════════════════════════════════════════")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
