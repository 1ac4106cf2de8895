package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wishtune-backend-go/internal/api"
	"wishtune-backend-go/internal/config"
	"wishtune-backend-go/internal/core"
	"wishtune-backend-go/internal/db"
	"wishtune-backend-go/internal/gateway"
	"wishtune-backend-go/internal/generation"
	"wishtune-backend-go/internal/middleware"
)

func main() {
	// --- 1. Initialize Logger (Zap) ---
	// NewDevelopment gives human-readable output; switch to zap.NewProduction()
	// for structured JSON in deployed environments.
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Zap logger initialized successfully.")

	// --- 2. Load Application Configuration ---
	// A local .env file is optional; real deployments set env vars directly.
	if err := godotenv.Load(); err == nil {
		zapLogger.Info("Loaded environment from .env file.")
	}
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.")

	// --- 3. Initialize Firebase Admin SDK (includes Firestore and Auth clients) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirestore(initCtx, appConfig); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
	}
	zapLogger.Info("Firebase Admin SDK (Firestore, Auth) initialized successfully.")

	// --- 4. Retrieve initialized clients ---
	firestoreClient := db.GetFirestoreClient()
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firestoreClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firestore client is nil after initialization. Application cannot start.")
	}
	if firebaseAuthClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firebase Auth client is nil after initialization. Application cannot start.")
	}

	// --- 5. Initialize Repositories ---
	creditRepo := db.NewFirestoreCreditRepository(firestoreClient)
	songRepo := db.NewFirestoreSongRepository(firestoreClient)
	txnRepo := db.NewFirestoreTransactionRepository(firestoreClient)
	sessionRepo := db.NewFirestorePaymentSessionRepository(firestoreClient)
	packageRepo := db.NewFirestoreCreditPackageRepository(firestoreClient)
	auditRepo := db.NewFirestoreAuditRepository(firestoreClient)
	zapLogger.Info("Repositories initialized successfully.")

	// --- 6. Initialize External Provider Clients ---
	// Both clients tolerate missing configuration: they report Configured()
	// false and refuse calls, so local development runs without live keys.
	paymentGateway := gateway.NewClient(appConfig.PaymentGatewayBaseURL, appConfig.PaymentGatewayAPIKey, zapLogger)
	if !paymentGateway.Configured() {
		zapLogger.Warn("Payment gateway is not configured; checkout and reconciliation will be unavailable.")
	}
	generationProvider := generation.NewClient(appConfig.GenerationBaseURL, appConfig.GenerationAPIKey, zapLogger)
	if !generationProvider.Configured() {
		zapLogger.Warn("Generation provider is not configured; songs will be created with local task ids only.")
	}

	// --- 7. Initialize Services ---
	auditService := core.NewAuditService(auditRepo)
	creditService := core.NewCreditService(creditRepo)
	songService := core.NewSongService(
		songRepo,
		creditService,
		generationProvider,
		auditService,
		core.NewMemoryRateLimiter(),
		appConfig.GenerationCallbackURL,
		zapLogger,
	)
	paymentService := core.NewPaymentService(
		txnRepo,
		sessionRepo,
		packageRepo,
		paymentGateway,
		auditService,
		appConfig.PaymentCallbackURL,
		zapLogger,
	)
	callbackService := core.NewGenerationCallbackService(songRepo, zapLogger)
	zapLogger.Info("Core services initialized successfully.")

	// --- 8. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	// --- 9. Apply Global Middleware (Order is important) ---
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured. API might not be accessible from a web frontend.")
	}

	// --- 10. Setup API Routes ---
	api.SetupRoutes(
		router,
		appConfig,
		zapLogger,
		creditService,
		songService,
		paymentService,
		callbackService,
	)

	// --- 11. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 12. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting gracefully.")
}
