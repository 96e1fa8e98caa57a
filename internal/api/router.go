package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"lab-allocation-backend/config"
	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. cacheStore backs the GET response
// cache; callers flush it when state changes outside a request.
func NewRouter(handler *Handler, resolver mw.IdentityResolver, cacheStore *cache.Cache, cfg config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	caching := mw.Cache(cacheStore, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		authed := api.Group("")
		authed.Use(mw.Authenticate(resolver), caching)
		{
			// Any caller
			authed.GET("/systems", handler.ListSystems)
			authed.GET("/systems/:id", handler.GetSystem)
			authed.GET("/stats", handler.GetStats)

			authed.GET("/subscriptions", handler.GetSubscription)
			authed.PUT("/subscriptions", handler.PutSubscription)
			authed.DELETE("/subscriptions", handler.DeleteSubscription)

			// Requesters
			authed.POST("/requests", handler.CreateRequest)
			authed.GET("/requests/mine", handler.ListMyRequests)
			authed.POST("/requests/:id/cancel", handler.CancelRequest)
		}

		admin := authed.Group("")
		admin.Use(mw.RequireRole(model.RoleAdmin))
		{
			admin.GET("/requests/pending", handler.ListPendingRequests)
			admin.POST("/requests/:id/allocate", handler.AllocateRequest)
			admin.POST("/requests/:id/approve", handler.ApproveRequest)
			admin.POST("/requests/:id/reject", handler.RejectRequest)
			admin.GET("/schedule", handler.GetSchedule)

			admin.PUT("/systems/:id/maintenance", handler.SetMaintenance)
			admin.POST("/systems/:id/check-in", handler.CheckInSystem)
			admin.POST("/systems/:id/release", handler.ReleaseSystem)
		}
	}

	return r
}
