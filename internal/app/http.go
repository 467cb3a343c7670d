package app

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/BitsOfPraneet/The-Gates/internal/auth/handler"
	"github.com/BitsOfPraneet/The-Gates/internal/config"
	"github.com/BitsOfPraneet/The-Gates/internal/middleware"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	authHandler := handler.NewHandler(
		infra.Identity,
		infra.Sessions,
		infra.Profiles,
		handler.Options{
			BootstrapTimeout: cfg.BootstrapTimeout,
			SessionTTL:       cfg.SessionTTL,
			Logger:           slog.Default(),
		},
	)

	authMiddleware := middleware.NewAuthMiddleware(infra.Sessions)

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", func(c *gin.Context) {
		userID, _ := middleware.UserIDFromContext(c.Request.Context())
		c.JSON(200, gin.H{"user_id": userID})
	})

	api.GET("/profile", authHandler.GetProfile)
	api.PATCH("/profile", authHandler.UpdateProfile)

	return router, infra.Close, nil
}
