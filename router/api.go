package router

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/permgate/permgate/handlers"
	"github.com/permgate/permgate/internal/config"
	"github.com/permgate/permgate/perms"
	"github.com/permgate/permgate/services"
)

// NewGinRouter wires the permission engine and its HTTP surface. The
// redis client is optional; without it, cache invalidation stays local to
// this process.
func NewGinRouter(pg *sql.DB, redisClient *redis.Client, logger zerolog.Logger) (*gin.Engine, *perms.Engine) {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	perms.InitMetrics(nil)

	store := perms.NewSQLRuleStore(pg)
	resolver := perms.NewSQLGroupResolver(pg)

	opts := []perms.Option{perms.WithLogger(logger)}
	if redisClient != nil {
		opts = append(opts, perms.WithInvalidator(perms.NewRedisInvalidator(redisClient, logger)))
	}
	engine := perms.NewEngine(store, resolver, opts...)

	tokenService := services.NewTokenService(pg)
	authMiddleware := handlers.NewAuthMiddleware(config.App.JWTSecret, tokenService)
	permissionHandler := handlers.NewPermissionHandler(engine)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", authMiddleware.RequireAuth())
	{
		api.POST("/permissions/check", permissionHandler.Check)
		api.GET("/permissions/levels", permissionHandler.ListLevels)

		api.GET("/permissions", permissionHandler.ListRules)
		api.POST("/permissions", permissionHandler.CreateRule)
		api.GET("/permissions/:id", permissionHandler.GetRule)
		api.PUT("/permissions/:id", permissionHandler.UpdateRule)
		api.DELETE("/permissions/:id", permissionHandler.DeleteRule)
		api.POST("/permissions/:id/move", permissionHandler.MoveRule)
	}

	return r, engine
}
