package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wishtune-backend-go/internal/config"
	"wishtune-backend-go/internal/core"
	"wishtune-backend-go/internal/db"
	"wishtune-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and
// middleware. Global middleware (Logging, Recovery, CORS) are expected to be
// applied to the router before this function is called, typically in main.go.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	creditService core.CreditService,
	songService core.SongService,
	paymentService core.PaymentService,
	callbackService core.GenerationCallbackService,
) {
	// The auth client must be available after db.InitFirestore().
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firebaseAuthClient == nil {
		logger.Fatal("Firebase Auth client is not initialized; routes cannot be secured")
	}
	authMW := middleware.NewAuthMiddleware(firebaseAuthClient, logger)

	creditHandler := NewCreditHandler(creditService, logger)
	songHandler := NewSongHandler(songService, logger)
	paymentHandler := NewPaymentHandler(paymentService, appConfig.PaymentWebhookSecret, logger)
	callbackHandler := NewCallbackHandler(callbackService, logger)

	apiV1 := router.Group("/api/v1")
	{
		// --- Credit Endpoints ---
		// The ledger belongs to authenticated users only; anonymous free
		// songs are tracked on the song records themselves.
		creditsGroup := apiV1.Group("/credits", authMW.VerifyToken())
		{
			creditsGroup.GET("", creditHandler.GetCredits)
			creditsGroup.GET("/eligibility", creditHandler.GetEligibility)
		}

		// --- Song Endpoints ---
		// Optional auth: anonymous visitors create and browse their songs
		// with a visitor id, signed-in users with their Firebase UID.
		songsGroup := apiV1.Group("/songs", authMW.OptionalToken())
		{
			songsGroup.POST("", songHandler.CreateSong)
			songsGroup.GET("", songHandler.ListSongs)
			songsGroup.GET("/:songId", songHandler.GetSong)
			songsGroup.POST("/:songId/save", songHandler.SaveSong)
			songsGroup.DELETE("/:songId", songHandler.DeleteSong)
		}

		// --- Payment Endpoints ---
		paymentsGroup := apiV1.Group("/payments")
		{
			paymentsGroup.GET("/packages", paymentHandler.ListPackages)
			paymentsGroup.POST("/checkout", authMW.VerifyToken(), paymentHandler.CreateCheckout)

			// The reconcile callback arrives via a client redirect whose
			// session may not have survived the round trip to the gateway,
			// so auth is optional and identity recovery happens server-side.
			paymentsGroup.POST("/callback", authMW.OptionalToken(), paymentHandler.ReconcileCallback)

			// The gateway authenticates webhooks via HMAC signature, handled
			// in the handler. No user auth middleware here.
			paymentsGroup.POST("/webhook", paymentHandler.HandleWebhook)
		}

		// --- Generation Provider Callback ---
		// Called server-to-server by the music generation provider.
		apiV1.POST("/callbacks/generation", callbackHandler.HandleGenerationCallback)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "WishTune backend is healthy."})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
