package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/murmur/internal/account"
	"github.com/lalith-99/murmur/internal/feed"
	"github.com/lalith-99/murmur/internal/middleware"
	"github.com/lalith-99/murmur/internal/observ"
	"github.com/lalith-99/murmur/internal/ratelimit"
	"github.com/lalith-99/murmur/internal/repository"
	"github.com/lalith-99/murmur/internal/session"
	"go.uber.org/zap"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Store    *repository.Store
	Feed     *feed.Service
	Accounts *account.Service
	Sessions session.Store

	JWTSecret      string
	MessageLimiter ratelimit.Limiter
	AuthLimiter    ratelimit.Limiter

	Metrics        *observ.Metrics
	MetricsHandler http.Handler
	Health         func(ctx context.Context) error

	Logger *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), observ.RequestLogger(d.Logger), d.Metrics.Instrument())

	r.GET("/v1/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(c.Request.Context()); err != nil {
				d.Logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	authHandler := NewAuthHandler(d.Accounts, d.Logger)
	userHandler := NewUserHandler(d.Store.Users, d.Logger)
	channelHandler := NewChannelHandler(d.Store.Channels, d.Store.Memberships, d.Logger)
	membershipHandler := NewMembershipHandler(d.Store.Memberships, d.Store.Channels, d.Store.Users, d.Logger)
	messageHandler := NewMessageHandler(d.Feed, d.Logger)

	requireAuth := middleware.AuthMiddleware(d.JWTSecret, d.Sessions, d.Logger)
	authLimit := middleware.RateLimit(d.AuthLimiter, "auth", middleware.ByClientIP, d.Metrics)
	postLimit := middleware.RateLimit(d.MessageLimiter, "message", middleware.ByUser, d.Metrics)

	public := r.Group("/v1/auth")
	public.POST("/register", authLimit, authHandler.Register)
	public.POST("/login", authLimit, authHandler.Login)

	v1 := r.Group("/v1")
	v1.Use(requireAuth)

	v1.POST("/auth/logout", authHandler.Logout)
	v1.GET("/users/me", userHandler.GetMe)

	v1.POST("/channels", channelHandler.Create)
	v1.GET("/channels", channelHandler.List)
	v1.GET("/channels/:id", channelHandler.GetByID)

	v1.POST("/channels/:id/join", membershipHandler.Join)
	v1.POST("/channels/:id/leave", membershipHandler.Leave)
	v1.GET("/channels/:id/members", membershipHandler.ListMembers)
	v1.POST("/channels/:id/members", membershipHandler.AddMember)

	v1.POST("/channels/:id/messages", postLimit, messageHandler.Create)
	v1.GET("/channels/:id/messages", messageHandler.List)
	v1.GET("/channels/:id/messages/recent", messageHandler.Recent)

	// Default-channel aliases.
	v1.POST("/messages", postLimit, messageHandler.Create)
	v1.GET("/messages", messageHandler.List)
	v1.GET("/messages/recent", messageHandler.Recent)

	return r
}
