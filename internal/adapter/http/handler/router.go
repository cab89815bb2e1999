package handler

import (
	"vendor-ledger/internal/adapter/http/middleware"
	redisStore "vendor-ledger/internal/adapter/storage/redis"
	"vendor-ledger/internal/core/ports"
	"vendor-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	ConsumerSvc      ports.SettlementConsumer
	PayoutSvc        ports.PayoutService
	ReportingSvc     ports.ReportingService
	SigSvc           ports.SignatureService
	NonceStore       ports.NonceStore
	TokenSvc         ports.TokenService
	SettlementSecret string
	RateLimitStore   *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers   []ports.HealthChecker
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL and Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- HMAC-authenticated ingress (order-fulfillment collaborator) ---
	hmacAuth := middleware.HMACAuth(deps.SettlementSecret, deps.SigSvc, deps.NonceStore, deps.Logger)
	settlementHandler := NewSettlementHandler(deps.ConsumerSvc)
	settlement := v1.Group("/settlement", hmacAuth)
	{
		settlement.POST("/events", rl("settlement"), settlementHandler.IngestEvent)
	}

	// --- JWT-authenticated vendor routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	vendorOnly := middleware.RequireRole(service.RoleVendor)
	walletHandler := NewWalletHandler(deps.ReportingSvc)
	payoutHandler := NewPayoutHandler(deps.PayoutSvc)

	wallet := v1.Group("/wallet", jwtAuth, vendorOnly)
	{
		wallet.GET("", rl("vendor_read"), walletHandler.GetWallet)
		wallet.GET("/transactions", rl("vendor_read"), walletHandler.ListTransactions)
	}

	payouts := v1.Group("/payouts", jwtAuth, vendorOnly)
	{
		payouts.POST("", rl("payouts"), payoutHandler.Request)
		payouts.GET("", rl("vendor_read"), payoutHandler.History)
	}

	// --- JWT-authenticated admin routes ---
	adminOnly := middleware.RequireRole(service.RoleAdmin)
	adminHandler := NewAdminHandler(deps.PayoutSvc, deps.ReportingSvc)

	admin := v1.Group("/admin", jwtAuth, adminOnly)
	{
		admin.GET("/payouts/pending", rl("admin"), adminHandler.ListPendingPayouts)
		admin.POST("/payouts/:id/approve", rl("admin"), adminHandler.ApprovePayout)
		admin.POST("/payouts/:id/reject", rl("admin"), adminHandler.RejectPayout)
		admin.GET("/settlement/parked", rl("admin"), adminHandler.ListParkedEvents)
		admin.GET("/wallets/:vendorID/replay", rl("admin"), adminHandler.ReplayWallet)
	}

	return r
}
