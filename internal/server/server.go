package server

import (
	"context"
	"net/http"
	"time"

	"innata/internal/auth"
	"innata/internal/balance"
	"innata/internal/booking"
	"innata/internal/config"
	"innata/internal/packages"
	"innata/internal/settings"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Booking  *booking.Handler
	Packages *packages.Handler
	Balance  *balance.Handler
	Settings *settings.Handler
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, h Handlers, health HealthChecker) *Server {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
		corsMiddleware(),
		RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	router.GET("/health", Health(health))
	router.GET("/metrics", Metrics())
	router.GET("/packages", h.Packages.ListCatalog)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/reservations", h.Booking.Book)
		protected.DELETE("/reservations/:id", h.Booking.Cancel)
		protected.GET("/me/reservations", h.Booking.ListMy)
		protected.GET("/me/packages", h.Packages.ListMy)
		protected.GET("/me/balance", h.Balance.GetBalance)
		protected.GET("/me/balance/transactions", h.Balance.ListTransactions)
		protected.GET("/classes/:classID/availability", h.Booking.Availability)
		protected.GET("/unlimited-week/eligibility", h.Booking.Eligibility)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/classes/:classID/waitlist", h.Booking.ClassWaitlist)
		admin.GET("/classes/:classID/reservations", h.Booking.ClassReservations)
		admin.POST("/users/:userID/packages", h.Packages.Assign)
		admin.GET("/settings", h.Settings.List)
		admin.PUT("/settings/:key", h.Settings.Update)
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
